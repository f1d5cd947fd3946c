// Package plugin owns the set of loaded capability providers and the
// Dispatcher handle each one is given at registration time.
//
// A Manager holds the live instances plus a package-level factory
// registry for constructing them from a name in config. Here a "plugin"
// is a native capability provider addressed by (binding, capability_id).
// The bookkeeping pattern is map + RWMutex + fail loud on duplicate key.
package plugin

import "github.com/ferro-labs/caphost/invocation"

// Dispatcher is the outbound handle given to each provider at registration
// so it can call into actors and synchronously await a reply. See
// dispatcher.go for the implementation and its documented single-flight
// contract.
type Dispatcher interface {
	Dispatch(actor, op string, msg []byte) ([]byte, error)
}

// Provider is the contract every loadable capability provider must
// implement.
type Provider interface {
	// Configure is called exactly once, at registration, with the
	// Dispatcher this provider should use to call into actors. May fail,
	// in which case registration is aborted.
	Configure(d Dispatcher) error

	// HandleCall is the invocation entry point: binding is the name this
	// instance was bound under, operation is the method name the caller
	// wants, and msg is the opaque request payload.
	HandleCall(binding, operation string, msg []byte) ([]byte, error)

	// Descriptor returns static metadata about this provider, including the
	// capability id it must be registered under.
	Descriptor() invocation.CapabilityDescriptor

	// Shutdown is the cleanup hook invoked on removal, after the worker
	// goroutine owning this provider has already stopped reading from its
	// inbound channel.
	Shutdown() error
}

// Factory constructs a new Provider instance, typically from a
// configuration payload decoded by the caller.
type Factory func(settings map[string]any) (Provider, error)

var factoryRegistry = map[string]Factory{}

// RegisterFactory registers a provider factory under name, so config-driven
// bootstrap (see config_load.go) can construct providers by name without
// the caller importing every provider package directly.
func RegisterFactory(name string, factory Factory) {
	factoryRegistry[name] = factory
}

// GetFactory returns the factory registered under name, if any.
func GetFactory(name string) (Factory, bool) {
	f, ok := factoryRegistry[name]
	return f, ok
}

// RegisteredFactories returns the names of all registered provider factories.
func RegisteredFactories() []string {
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	return names
}
