package caphost

import (
	"sync"
	"time"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/internal/metrics"
	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
	"github.com/ferro-labs/caphost/router"
)

// runWorker is the per-provider goroutine: it configures the provider's
// Dispatcher, registers the route, signals readiness, then loops over its
// inbound invocation channel until a terminate signal arrives.
func (h *Host) runWorker(
	key invocation.RouteKey,
	inbound chan invocation.Invocation,
	response chan invocation.InvocationResponse,
	terminate chan struct{},
	ready *sync.WaitGroup,
	regErr *error,
) {
	defer h.workers.Done()

	dispatcher := plugin.NewDispatcher(key.CapabilityID, inbound, response)
	if err := h.mgr.RegisterDispatcher(key, dispatcher); err != nil {
		*regErr = err
		ready.Done()
		return
	}

	entry := router.Entry{InboundTx: inbound, ResponseRx: response, TerminateTx: terminate}
	if err := h.router.AddRoute(key, entry); err != nil {
		*regErr = err
		ready.Done()
		return
	}

	metrics.RoutesRegistered.Inc()
	h.logger.Info("capability provider ready", "route", key.String())
	ready.Done()

	depth := metrics.WorkerQueueDepth.WithLabelValues(key.Binding, key.CapabilityID)
	for {
		select {
		case inv := <-inbound:
			depth.Set(float64(len(inbound)))
			response <- h.dispatchInbound(key, inv)
		case <-terminate:
			depth.Set(0)
			h.teardown(key)
			return
		}
	}
}

// dispatchInbound handles exactly one invocation delivered on a provider's
// own inbound channel. A Capability-target invocation is the normal,
// host-initiated call path; an Actor-target invocation can only arrive
// here from the provider's own Dispatcher (see guest.go), and is always
// rejected as caphosterr.ErrBadDispatch, since the provider-to-actor hook
// is unimplemented at the worker level in the current design.
func (h *Host) dispatchInbound(key invocation.RouteKey, inv invocation.Invocation) invocation.InvocationResponse {
	if inv.Target.Kind() == invocation.TargetActor {
		h.logger.Error("invocation target of native host can't be actor", "route", key.String())
		metrics.InvocationsTotal.WithLabelValues(key.Binding, key.CapabilityID, "actor", "error").Inc()
		return invocation.Error(inv, caphosterr.ErrBadDispatch)
	}

	start := time.Now()

	transformed, err := h.chain.RunCapabilityPreInvoke(inv)
	if err != nil {
		h.logger.Error("capability pre-invoke middleware failed, proceeding with original invocation",
			"error", err, "route", key.String())
		metrics.MiddlewareErrorsTotal.WithLabelValues("capability_pre").Inc()
		transformed = inv
	}

	resp := h.mgr.Call(transformed)

	finalResp, err := h.chain.RunCapabilityPostInvoke(resp)
	if err != nil {
		h.logger.Error("capability post-invoke middleware failed, proceeding with unmodified response",
			"error", err, "route", key.String())
		metrics.MiddlewareErrorsTotal.WithLabelValues("capability_post").Inc()
		finalResp = resp
	}

	status := "ok"
	if finalResp.IsError() {
		status = "error"
	}
	metrics.InvocationsTotal.WithLabelValues(key.Binding, key.CapabilityID, "capability", status).Inc()
	metrics.InvocationDuration.WithLabelValues(key.Binding, key.CapabilityID).Observe(time.Since(start).Seconds())

	return finalResp
}

// teardown removes key from the descriptor cache, the router, and finally
// the plugin manager, in that order: the route is gone before the
// provider's Shutdown hook ever runs, so no concurrent caller can reach a
// provider that is in the middle of tearing itself down (e.g. a kvstore
// closing its *sql.DB). A lookup racing this teardown sees either the last
// successful response or ErrUnknownRoute, never a call into a shut-down
// provider.
func (h *Host) teardown(key invocation.RouteKey) {
	h.mu.Lock()
	delete(h.caps, key)
	h.mu.Unlock()

	h.router.RemoveRoute(key)

	if err := h.mgr.RemovePlugin(key); err != nil {
		h.logger.Error("capability provider shutdown failed", "error", err, "route", key.String())
	}

	metrics.RoutesRegistered.Dec()
	h.logger.Info("capability provider terminated", "route", key.String())
}
