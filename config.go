package caphost

// Config describes the set of capability providers a host should load at
// startup, and the middleware chain they should run behind. It's a thin,
// declarative struct with both json and yaml tags, loaded by LoadConfig
// and checked by ValidateConfig before anything is actually registered.
type Config struct {
	// Bindings lists the capability providers to load, in order.
	Bindings []BindingConfig `json:"bindings" yaml:"bindings"`
	// Middleware lists the middleware to install, in registration order —
	// the order pre-hooks run in and the same order post-hooks run in too.
	Middleware []MiddlewareConfig `json:"middleware,omitempty" yaml:"middleware,omitempty"`
}

// BindingConfig describes one capability provider to load via
// plugin.GetFactory.
type BindingConfig struct {
	// Binding is the binding name this instance is addressed under
	// (invocation.DefaultBinding if omitted).
	Binding string `json:"binding,omitempty" yaml:"binding,omitempty"`
	// Factory names the plugin.Factory registered for this provider kind,
	// e.g. "kvstore", "httpclient", "bedrockllm", "openaillm".
	Factory string `json:"factory" yaml:"factory"`
	// Settings is passed verbatim to the factory, and also validated
	// against the constructed provider's CapabilityDescriptor.ConfigSchema
	// if one is published.
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
	// CircuitBreaker overrides the default breaker thresholds for this
	// binding's provider.
	CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// CircuitBreakerConfig configures the per-provider circuit breaker inside
// plugin.Manager.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Defaults to 5.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold"`
	// SuccessThreshold is the number of consecutive successes in
	// half-open state required to close the circuit. Defaults to 1.
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold"`
	// Timeout is the duration the circuit stays open before transitioning
	// to half-open (e.g. "30s"). Defaults to "30s".
	Timeout string `json:"timeout" yaml:"timeout"`
}

// MiddlewareConfig names a middleware to install and its settings. Built-in
// middleware kinds are registered the same way providers are, via a small
// package-level factory registry in the middleware package.
type MiddlewareConfig struct {
	Name     string         `json:"name" yaml:"name"`
	Settings map[string]any `json:"settings,omitempty" yaml:"settings,omitempty"`
}
