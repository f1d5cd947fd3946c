// Package router implements the concurrently accessed address table that
// maps (binding, capability_id) pairs to a provider's channel endpoints.
//
// The table lock is held only while mutating or cloning out handles, never
// while a channel operation or provider call is in flight.
package router

import (
	"sync"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/invocation"
)

// Entry holds the channel endpoints a worker goroutine owns for one loaded
// provider. InboundTx is the send side of the invocation channel (the host
// façade and Dispatcher write on it); ResponseRx is the receive side of the
// response channel (the host façade reads replies from it); TerminateTx
// signals the worker to stop.
type Entry struct {
	InboundTx   chan<- invocation.Invocation
	ResponseRx  <-chan invocation.InvocationResponse
	TerminateTx chan<- struct{}
}

// Router is a concurrent mapping from invocation.RouteKey to Entry.
//
// Invariants: every entry corresponds to a live worker goroutine until its
// terminate signal is consumed; a worker never looks its own entry up in
// the router, since it already holds its endpoints directly; a caller that
// has obtained an Entry may keep using it even if the route is removed
// from the table mid-call — the worker still drains up to its terminate
// signal.
type Router struct {
	mu     sync.RWMutex
	routes map[invocation.RouteKey]Entry
}

// New returns an empty Router.
func New() *Router {
	return &Router{routes: make(map[invocation.RouteKey]Entry)}
}

// AddRoute inserts a new route. It fails with caphosterr.ErrDuplicateRoute
// if the key is already present; the existing entry is left untouched.
func (r *Router) AddRoute(key invocation.RouteKey, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[key]; exists {
		return &duplicateRouteError{key: key}
	}
	r.routes[key] = entry
	return nil
}

// RemoveRoute deletes a route. It is idempotent: removing a key that is not
// present is not an error.
func (r *Router) RemoveRoute(key invocation.RouteKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, key)
}

// GetRoute returns a copy of the channel handles for key, or ok=false if no
// such route exists. The table lock is released before the caller uses the
// returned handles — no provider call or channel operation is ever
// performed while the lock is held.
func (r *Router) GetRoute(key invocation.RouteKey) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.routes[key]
	return e, ok
}

// RouteExists reports whether key has a registered route.
func (r *Router) RouteExists(key invocation.RouteKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.routes[key]
	return ok
}

// TerminateRoute signals the worker behind key to stop, if one is
// registered. The caller does not block waiting for the worker to exit;
// the signal is buffered so the send never blocks the caller either.
func (r *Router) TerminateRoute(key invocation.RouteKey) {
	r.mu.RLock()
	e, ok := r.routes[key]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case e.TerminateTx <- struct{}{}:
	default:
	}
}

// TerminateAll signals every registered route to stop. Keys are snapshotted
// under the read lock, which is then released before any signal is sent.
func (r *Router) TerminateAll() {
	r.mu.RLock()
	keys := make([]invocation.RouteKey, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	for _, k := range keys {
		r.TerminateRoute(k)
	}
}

// Len reports the number of currently registered routes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Keys returns a snapshot of all registered route keys.
func (r *Router) Keys() []invocation.RouteKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]invocation.RouteKey, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	return keys
}

type duplicateRouteError struct {
	key invocation.RouteKey
}

func (e *duplicateRouteError) Error() string {
	return "duplicate route: " + e.key.String()
}

func (e *duplicateRouteError) Unwrap() error {
	return caphosterr.ErrDuplicateRoute
}
