package plugin

import (
	"fmt"
	"sync"
	"time"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/internal/circuitbreaker"
	"github.com/ferro-labs/caphost/invocation"
)

// record pairs a loaded provider with the circuit breaker guarding its
// HandleCall entry point. One breaker per (binding, capability_id): a
// misbehaving provider should not be hammered on every invocation, even
// though the core dispatch path itself has no notion of timeouts or
// cancellation.
type record struct {
	provider Provider
	breaker  *circuitbreaker.CircuitBreaker
}

// Manager owns the set of loaded capability providers, keyed by
// (binding, capability_id). It never calls into a provider while holding
// its own lock — the lock protects only the bookkeeping map. The lock
// order throughout this runtime is middlewares → plugins → router, never
// a provider call nested inside any of the three locks.
type Manager struct {
	mu      sync.RWMutex
	plugins map[invocation.RouteKey]*record
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{plugins: make(map[invocation.RouteKey]*record)}
}

// AddPlugin takes ownership of provider under key, guarded by a circuit
// breaker built with circuitbreaker.New's own defaults. It fails with
// caphosterr.ErrDuplicatePlugin if key is already loaded; the existing
// provider is left untouched.
func (m *Manager) AddPlugin(key invocation.RouteKey, provider Provider) error {
	return m.AddPluginWithBreaker(key, provider, 0, 0, 0)
}

// AddPluginWithBreaker is AddPlugin with explicit circuit breaker
// thresholds; a zero value for any of the three falls back to
// circuitbreaker.New's own default for that field. Used by config-driven
// bootstrap (see config_load.go's Apply) to honor a binding's
// CircuitBreakerConfig override.
func (m *Manager) AddPluginWithBreaker(key invocation.RouteKey, provider Provider, failureThreshold, successThreshold int, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plugins[key]; exists {
		return fmt.Errorf("capability provider %s is already loaded: %w", key, caphosterr.ErrDuplicatePlugin)
	}
	m.plugins[key] = &record{
		provider: provider,
		breaker:  circuitbreaker.New(failureThreshold, successThreshold, timeout),
	}
	return nil
}

// RegisterDispatcher hands provider its outbound Dispatcher by invoking
// Configure exactly once, at registration. Fails with
// caphosterr.ErrPluginLoad, wrapping the provider's own error, if
// Configure rejects it or if key names no loaded plugin.
func (m *Manager) RegisterDispatcher(key invocation.RouteKey, d Dispatcher) error {
	m.mu.RLock()
	rec, ok := m.plugins[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no such plugin %s: %w", key, caphosterr.ErrPluginLoad)
	}
	if err := rec.provider.Configure(d); err != nil {
		return fmt.Errorf("configure capability provider %s: %w: %w", key, caphosterr.ErrPluginLoad, err)
	}
	return nil
}

// Call resolves key from inv.Target and invokes the provider's HandleCall
// entry point. It fails with caphosterr.ErrBadDispatch if inv targets an
// Actor — a Manager only ever serves capability calls, never actor calls.
// A provider error is wrapped as caphosterr.ErrCapabilityFailure; an open
// circuit breaker rejects the call before the provider is touched at all.
//
// Call is only ever invoked from the worker goroutine that already
// dequeued inv; it never touches a router or channel itself.
func (m *Manager) Call(inv invocation.Invocation) invocation.InvocationResponse {
	if inv.Target.Kind() != invocation.TargetCapability {
		return invocation.Error(inv, caphosterr.ErrBadDispatch)
	}
	key := inv.Target.RouteKey()

	m.mu.RLock()
	rec, ok := m.plugins[key]
	m.mu.RUnlock()
	if !ok {
		return invocation.Error(inv, fmt.Errorf("%s: %w", key, caphosterr.ErrUnknownRoute))
	}

	if !rec.breaker.Allow() {
		return invocation.Error(inv, fmt.Errorf("%s: %w: %w", key, caphosterr.ErrCapabilityFailure, circuitbreaker.ErrCircuitOpen))
	}

	msg, err := rec.provider.HandleCall(key.Binding, inv.Operation, inv.Msg)
	if err != nil {
		rec.breaker.RecordFailure()
		return invocation.Error(inv, fmt.Errorf("%w: %w", caphosterr.ErrCapabilityFailure, err))
	}
	rec.breaker.RecordSuccess()
	return invocation.Success(inv, msg)
}

// RemovePlugin drops the record, then invokes the provider's Shutdown hook
// outside the lock. It is idempotent: removing a key that names no loaded plugin is
// a no-op, matching router.Router.RemoveRoute's idempotency so teardown
// can call both unconditionally in either order.
func (m *Manager) RemovePlugin(key invocation.RouteKey) error {
	m.mu.Lock()
	rec, ok := m.plugins[key]
	if ok {
		delete(m.plugins, key)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return rec.provider.Shutdown()
}

// Descriptor returns the descriptor of the plugin loaded under key, if any.
func (m *Manager) Descriptor(key invocation.RouteKey) (invocation.CapabilityDescriptor, bool) {
	m.mu.RLock()
	rec, ok := m.plugins[key]
	m.mu.RUnlock()
	if !ok {
		return invocation.CapabilityDescriptor{}, false
	}
	return rec.provider.Descriptor(), true
}

// Len reports the number of currently loaded providers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// Keys returns a snapshot of all currently loaded plugin keys.
func (m *Manager) Keys() []invocation.RouteKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]invocation.RouteKey, 0, len(m.plugins))
	for k := range m.plugins {
		keys = append(keys, k)
	}
	return keys
}
