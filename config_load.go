package caphost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/internal/schema"
	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/middleware"
	"github.com/ferro-labs/caphost/plugin"
)

// LoadConfig reads and parses a config file from the given path. Supported
// formats: JSON (.json), YAML (.yaml, .yml), dispatched by file extension
// with no auto-detection.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness before it is applied
// to a Host.
func ValidateConfig(cfg Config) error {
	seen := make(map[invocation.RouteKey]bool, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		if b.Factory == "" {
			return fmt.Errorf("binding entry is missing a factory name")
		}
		factory, ok := plugin.GetFactory(b.Factory)
		if !ok {
			return fmt.Errorf("no provider factory registered under %q", b.Factory)
		}

		// The route key is keyed on the capability id the constructed
		// provider actually publishes, not on the factory name — two
		// different factories (e.g. bedrockllm, openaillm) can both
		// resolve to the same capability id (wascc:llm) and would
		// otherwise pass here only to collide in Apply.
		provider, err := factory(b.Settings)
		if err != nil {
			return fmt.Errorf("construct provider %q: %w", b.Factory, err)
		}
		capabilityID := provider.Descriptor().ID
		_ = provider.Shutdown()

		binding := b.Binding
		if binding == "" {
			binding = invocation.DefaultBinding
		}
		key := invocation.RouteKey{Binding: binding, CapabilityID: capabilityID}
		if seen[key] {
			return fmt.Errorf("duplicate binding %s in config", key)
		}
		seen[key] = true
	}
	for _, m := range cfg.Middleware {
		if _, ok := middleware.GetFactory(m.Name); !ok {
			return fmt.Errorf("no middleware factory registered under %q", m.Name)
		}
	}
	return nil
}

// Apply constructs every provider and middleware named in cfg and installs
// them on h, in the order they appear in cfg. Each provider's settings are
// validated against its published ConfigSchema, if any, before
// registration; a binding's CircuitBreakerConfig, if present, overrides
// the default breaker thresholds for that provider.
func Apply(h *Host, cfg Config) error {
	for _, b := range cfg.Bindings {
		factory, ok := plugin.GetFactory(b.Factory)
		if !ok {
			return fmt.Errorf("no provider factory registered under %q", b.Factory)
		}
		provider, err := factory(b.Settings)
		if err != nil {
			return fmt.Errorf("construct provider %q: %w", b.Factory, err)
		}
		if err := schema.Validate(provider.Descriptor().ConfigSchema, b.Settings); err != nil {
			return fmt.Errorf("provider %q: %w: %w", b.Factory, caphosterr.ErrPluginLoad, err)
		}

		binding := b.Binding
		if binding == "" {
			binding = invocation.DefaultBinding
		}

		var opts []CapabilityOption
		if b.CircuitBreaker != nil {
			opts = append(opts, WithCircuitBreaker(
				b.CircuitBreaker.FailureThreshold,
				b.CircuitBreaker.SuccessThreshold,
				breakerTimeout(b.CircuitBreaker),
			))
		}
		if err := h.AddNativeCapability(binding, provider, opts...); err != nil {
			return fmt.Errorf("register provider %q under binding %q: %w", b.Factory, binding, err)
		}
	}

	for _, m := range cfg.Middleware {
		factory, ok := middleware.GetFactory(m.Name)
		if !ok {
			return fmt.Errorf("no middleware factory registered under %q", m.Name)
		}
		mw, err := factory(m.Settings)
		if err != nil {
			return fmt.Errorf("construct middleware %q: %w", m.Name, err)
		}
		h.AddMiddleware(mw)
	}

	return nil
}

// breakerTimeout parses a CircuitBreakerConfig's Timeout string, falling
// back to circuitbreaker.New's own zero-value default when empty or
// unparseable.
func breakerTimeout(cfg *CircuitBreakerConfig) time.Duration {
	if cfg == nil || cfg.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0
	}
	return d
}
