package caphost

// Guest is the external contract the surrounding actor/WebAssembly runtime
// must satisfy. The host never inspects msg's contents; it is an opaque
// payload the guest module and its caller have agreed on out of band.
// The guest runtime itself — loading, instantiating, and sandboxing actor
// modules — is out of this repo's scope; only the interface the core
// dispatches through lives here.
type Guest interface {
	Call(actor, operation string, msg []byte) ([]byte, error)
}

// UnimplementedGuest satisfies Guest without ever succeeding. It is the
// default used by New when the caller supplies no guest runtime, and it
// is also what a provider's own Dispatcher effectively talks to today:
// the provider-to-actor dispatch hook is unimplemented at the worker
// level in the current design, so every Dispatcher.Dispatch call
// currently resolves to caphosterr.ErrBadDispatch before any Guest is
// ever consulted.
type UnimplementedGuest struct{}

func (UnimplementedGuest) Call(actor, operation string, msg []byte) ([]byte, error) {
	return nil, errUnimplementedGuest
}
