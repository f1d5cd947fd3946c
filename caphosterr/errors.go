// Package caphosterr defines the sentinel error kinds raised across the
// capability host. Call sites wrap these with fmt.Errorf("...: %w", ...)
// to attach context.
package caphosterr

import "errors"

// Registration-path errors. These propagate synchronously to the caller of
// Host.AddNativeCapability / PluginManager.AddPlugin / Router.AddRoute.
var (
	// ErrDuplicateRoute is returned when a (binding, capability_id) pair is
	// already present in the router table.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrDuplicatePlugin is returned when a (binding, capability_id) pair is
	// already present in the plugin manager.
	ErrDuplicatePlugin = errors.New("duplicate plugin")

	// ErrPluginLoad is returned when a provider rejects configuration or its
	// settings fail validation against its descriptor's config schema.
	ErrPluginLoad = errors.New("plugin load failed")
)

// Invocation-path errors. These never propagate out of a worker goroutine;
// they are wrapped into InvocationResponse.Error instead.
var (
	// ErrUnknownRoute is returned when a capability invocation targets a
	// (binding, capability_id) with no registered route.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrUnknownActor is returned when the actor-call path cannot reach the
	// named actor through the guest runtime.
	ErrUnknownActor = errors.New("unknown actor")

	// ErrUnauthorizedCapability is returned when an actor invokes a
	// capability it holds no claim for.
	ErrUnauthorizedCapability = errors.New("unauthorized capability")

	// ErrCapabilityFailure wraps an error returned by a provider's
	// HandleCall entry point.
	ErrCapabilityFailure = errors.New("capability provider failure")

	// ErrHostCallFailure wraps an error returned by the guest runtime's Call.
	ErrHostCallFailure = errors.New("guest call failure")

	// ErrBadDispatch is returned when an invocation's target cannot be
	// served on the current path — the documented case is an Actor-target
	// invocation reaching a native provider worker.
	ErrBadDispatch = errors.New("invocation target of native host can't be actor")

	// ErrChannelSend is returned by Dispatcher.Dispatch when the provider's
	// inbound channel has no reader left (the worker has terminated).
	ErrChannelSend = errors.New("channel send failed: worker terminated")

	// ErrChannelReceive is returned by Dispatcher.Dispatch when the paired
	// response channel is closed before a reply arrives.
	ErrChannelReceive = errors.New("channel receive failed: worker terminated")

	// ErrInvocation wraps a response-level error surfaced by the far side of
	// a Dispatcher.Dispatch call.
	ErrInvocation = errors.New("invocation error")
)

// ErrMiddleware marks a middleware hook failure. These are logged, never
// returned to a caller — invocation processing continues with the
// untransformed value per the host's documented non-fatal policy.
var ErrMiddleware = errors.New("middleware error")
