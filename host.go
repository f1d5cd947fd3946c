// Package caphost implements the public surface of the capability-provider
// host runtime: registering and removing native capability providers,
// adding middleware, invoking capabilities and actors, and tearing the
// whole runtime down.
//
// A single struct glues together the router, the plugin manager, and the
// middleware chain behind a small, synchronous public API, with
// structured logging and Prometheus metrics threaded through every call.
package caphost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/internal/logging"
	"github.com/ferro-labs/caphost/internal/metrics"
	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/middleware"
	"github.com/ferro-labs/caphost/plugin"
	"github.com/ferro-labs/caphost/router"

	"github.com/ferro-labs/caphost/extras"
)

var errUnimplementedGuest = errors.New("caphost: no guest runtime configured")

// inboundQueueDepth bounds how many invocations can be buffered for a
// single provider before its worker has drained them. There is no
// backpressure policy beyond this; a buffer that fills up simply makes
// the next send block, same as an unbounded channel would eventually
// exhaust memory instead.
const inboundQueueDepth = 64

// Host owns the router, the plugin manager, and the middleware chain, and
// is the only type application code is expected to construct directly.
type Host struct {
	mu     sync.RWMutex
	router *router.Router
	mgr    *plugin.Manager
	chain  *middleware.Chain
	guest  Guest
	logger *slog.Logger

	caps map[invocation.RouteKey]invocation.CapabilityDescriptor

	workers sync.WaitGroup
}

// Option configures a Host at construction time.
type Option func(*Host)

// WithGuest sets the guest runtime used by InvokeActor. Without this
// option, Host uses UnimplementedGuest.
func WithGuest(g Guest) Option {
	return func(h *Host) { h.guest = g }
}

// WithLogger overrides the *slog.Logger used for host-level logging.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// New builds a Host and registers the built-in wascc:extras capability
// under the default binding.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		router: router.New(),
		mgr:    plugin.NewManager(),
		chain:  middleware.NewChain(),
		guest:  UnimplementedGuest{},
		logger: logging.FromContext(context.Background()),
		caps:   make(map[invocation.RouteKey]invocation.CapabilityDescriptor),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.ensureExtras(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Host) ensureExtras() error {
	key := invocation.RouteKey{Binding: invocation.DefaultBinding, CapabilityID: extras.CapabilityID}
	if h.router.RouteExists(key) {
		return nil
	}
	return h.AddNativeCapability(invocation.DefaultBinding, extras.New())
}

// AddMiddleware appends mw to the end of the shared middleware chain. Like
// the underlying Chain, this is append-only: there is no RemoveMiddleware.
func (h *Host) AddMiddleware(mw middleware.Middleware) {
	h.chain.Use(mw)
}

// CapabilityOption configures a single AddNativeCapability call.
type CapabilityOption func(*capabilityOptions)

type capabilityOptions struct {
	failureThreshold int
	successThreshold int
	timeout          time.Duration
}

// WithCircuitBreaker overrides the default circuit breaker thresholds
// guarding this provider's HandleCall entry point. A zero value for any
// argument falls back to circuitbreaker.New's own default for that field.
func WithCircuitBreaker(failureThreshold, successThreshold int, timeout time.Duration) CapabilityOption {
	return func(o *capabilityOptions) {
		o.failureThreshold = failureThreshold
		o.successThreshold = successThreshold
		o.timeout = timeout
	}
}

// AddNativeCapability loads provider under binding, spawns its worker
// goroutine, and does not return until that goroutine has registered its
// route and is ready to receive invocations. A caller that successfully
// returns from this call can immediately invoke the new route without a
// registration race.
func (h *Host) AddNativeCapability(binding string, provider plugin.Provider, opts ...CapabilityOption) error {
	desc := provider.Descriptor()
	key := invocation.RouteKey{Binding: binding, CapabilityID: desc.ID}

	if h.router.RouteExists(key) {
		return fmt.Errorf("%s: %w", key, caphosterr.ErrDuplicateRoute)
	}

	var capOpts capabilityOptions
	for _, opt := range opts {
		opt(&capOpts)
	}
	if err := h.mgr.AddPluginWithBreaker(key, provider, capOpts.failureThreshold, capOpts.successThreshold, capOpts.timeout); err != nil {
		return err
	}

	inbound := make(chan invocation.Invocation, inboundQueueDepth)
	response := make(chan invocation.InvocationResponse, inboundQueueDepth)
	terminate := make(chan struct{}, 1)

	var ready sync.WaitGroup
	ready.Add(1)
	var regErr error

	h.workers.Add(1)
	go h.runWorker(key, inbound, response, terminate, &ready, &regErr)
	ready.Wait()

	if regErr != nil {
		_ = h.mgr.RemovePlugin(key)
		return regErr
	}

	h.mu.Lock()
	h.caps[key] = desc
	h.mu.Unlock()

	return nil
}

// InvokeCapability sends an invocation to the provider registered at
// target's route and blocks for the reply. origin identifies the caller
// for logging and for the middleware chain, not for authorization — claim
// validation is an external collaborator.
func (h *Host) InvokeCapability(origin string, target invocation.Target, operation string, msg []byte) ([]byte, error) {
	key := target.RouteKey()
	entry, ok := h.router.GetRoute(key)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, caphosterr.ErrUnknownRoute)
	}

	inv := invocation.New(origin, target, operation, msg)

	entry.InboundTx <- inv
	resp := <-entry.ResponseRx

	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", caphosterr.ErrCapabilityFailure, resp.Error)
	}
	return resp.Msg, nil
}

// InvokeActor runs the actor middleware chain around a call into the guest
// runtime. This is the C7 façade's actor-call path; it is distinct from
// (and not reachable through) a provider's own Dispatcher, which pushes
// Actor-target invocations onto its own worker's inbound channel instead —
// a path the worker always rejects today (see worker.go).
func (h *Host) InvokeActor(origin, actor, operation string, msg []byte) ([]byte, error) {
	inv := invocation.New(origin, invocation.NewActorTarget(actor), operation, msg)

	transformed, err := h.chain.RunActorPreInvoke(inv)
	if err != nil {
		h.logger.Error("actor pre-invoke middleware failed, proceeding with original invocation",
			"error", err, "actor", actor, "operation", operation)
		metrics.MiddlewareErrorsTotal.WithLabelValues("actor_pre").Inc()
		transformed = inv
	}

	start := time.Now()
	resultMsg, callErr := h.guest.Call(transformed.Target.ActorID(), transformed.Operation, transformed.Msg)
	var resp invocation.InvocationResponse
	if callErr != nil {
		resp = invocation.Error(transformed, fmt.Errorf("%w: %s", caphosterr.ErrHostCallFailure, callErr))
	} else {
		resp = invocation.Success(transformed, resultMsg)
	}

	status := "ok"
	if resp.IsError() {
		status = "error"
	}
	metrics.InvocationsTotal.WithLabelValues(invocation.DefaultBinding, actor, "actor", status).Inc()
	metrics.InvocationDuration.WithLabelValues(invocation.DefaultBinding, actor).Observe(time.Since(start).Seconds())

	finalResp, err := h.chain.RunActorPostInvoke(resp)
	if err != nil {
		h.logger.Error("actor post-invoke middleware failed, proceeding with unmodified response",
			"error", err, "actor", actor, "operation", operation)
		metrics.MiddlewareErrorsTotal.WithLabelValues("actor_post").Inc()
		finalResp = resp
	}

	if finalResp.IsError() {
		return nil, errors.New(finalResp.Error)
	}
	return finalResp.Msg, nil
}

// Descriptors returns a snapshot of every currently loaded capability's
// descriptor, keyed by its route.
func (h *Host) Descriptors() map[invocation.RouteKey]invocation.CapabilityDescriptor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[invocation.RouteKey]invocation.CapabilityDescriptor, len(h.caps))
	for k, v := range h.caps {
		out[k] = v
	}
	return out
}

// RemoveCapability signals the worker behind key to stop and returns
// without waiting for it. The worker then tears down on its own goroutine:
// removing the descriptor, removing the route, and removing the plugin
// record (which invokes the provider's Shutdown hook), in that order.
func (h *Host) RemoveCapability(key invocation.RouteKey) {
	h.router.TerminateRoute(key)
}

// Shutdown terminates every loaded provider and waits for all worker
// goroutines to finish tearing down before returning. It is safe to call
// more than once.
func (h *Host) Shutdown() {
	h.router.TerminateAll()
	h.workers.Wait()
}
