package middleware

// Factory constructs a Middleware instance from a configuration payload,
// mirroring plugin.Factory so config-driven bootstrap can install
// middleware by name the same way it loads capability providers.
type Factory func(settings map[string]any) (Middleware, error)

var factoryRegistry = map[string]Factory{}

// RegisterFactory registers a middleware factory under name.
func RegisterFactory(name string, factory Factory) {
	factoryRegistry[name] = factory
}

// GetFactory returns the factory registered under name, if any.
func GetFactory(name string) (Factory, bool) {
	f, ok := factoryRegistry[name]
	return f, ok
}

// RegisteredFactories returns the names of all registered middleware factories.
func RegisteredFactories() []string {
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	return names
}
