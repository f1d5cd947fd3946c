// Package invocation defines the immutable request/response envelopes that
// flow through the capability host: Invocation, InvocationResponse, their
// addressing types, and the RouteKey two-part address used to look up a
// provider in the router.
package invocation

import (
	"fmt"
	"sync/atomic"
)

// RouteKey addresses one loaded capability provider by the pair the spec
// calls (binding, capability_id). Equality is byte-exact on both fields.
// The zero value is never a valid key; Binding and CapabilityID must be
// non-empty.
type RouteKey struct {
	Binding      string
	CapabilityID string
}

// DefaultBinding is the conventional binding name used when a capability is
// not otherwise distinguished from other instances of the same id.
const DefaultBinding = "default"

// String renders the key as "binding/capability_id", used in log lines and
// error messages.
func (k RouteKey) String() string {
	return fmt.Sprintf("%s/%s", k.Binding, k.CapabilityID)
}

// TargetKind distinguishes the two shapes an InvocationTarget can take.
type TargetKind int

const (
	// TargetCapability addresses a loaded provider by (binding, capability_id).
	TargetCapability TargetKind = iota
	// TargetActor addresses an external actor module by its opaque id.
	TargetActor
)

// Target is a tagged variant: either an Actor(actor_id) or a
// Capability{capability_id, binding}. Construct with NewActorTarget or
// NewCapabilityTarget; the zero value is not a valid target.
type Target struct {
	kind         TargetKind
	actorID      string
	capabilityID string
	binding      string
}

// NewActorTarget builds a Target addressing an external actor by id.
func NewActorTarget(actorID string) Target {
	return Target{kind: TargetActor, actorID: actorID}
}

// NewCapabilityTarget builds a Target addressing a loaded provider.
func NewCapabilityTarget(capabilityID, binding string) Target {
	return Target{kind: TargetCapability, capabilityID: capabilityID, binding: binding}
}

// Kind reports which variant this Target holds.
func (t Target) Kind() TargetKind { return t.kind }

// ActorID returns the actor id. Valid only when Kind() == TargetActor.
func (t Target) ActorID() string { return t.actorID }

// CapabilityID returns the capability id. Valid only when Kind() == TargetCapability.
func (t Target) CapabilityID() string { return t.capabilityID }

// Binding returns the binding name. Valid only when Kind() == TargetCapability.
func (t Target) Binding() string { return t.binding }

// RouteKey returns the RouteKey this target resolves to. Valid only when
// Kind() == TargetCapability.
func (t Target) RouteKey() RouteKey {
	return RouteKey{Binding: t.binding, CapabilityID: t.capabilityID}
}

// String renders the target for logging.
func (t Target) String() string {
	if t.kind == TargetActor {
		return fmt.Sprintf("actor:%s", t.actorID)
	}
	return fmt.Sprintf("capability:%s/%s", t.binding, t.capabilityID)
}

var idSeq atomic.Uint64

// NextID returns a monotonically increasing identifier used only for
// logging/correlation. It never participates in response matching: each
// provider has a dedicated response channel pair (see the plugin and
// caphost packages), so invocation ids are not looked up against anything.
func NextID() uint64 {
	return idSeq.Add(1)
}

// Invocation is an immutable request envelope. Construct with New; all
// fields are read-only by convention once built, matching the spec's
// "immutable once constructed" invariant (Go has no const structs, so this
// is enforced by convention — no method on Invocation mutates it).
type Invocation struct {
	ID        uint64
	Origin    string // capability id of the sender, or actor id
	Target    Target
	Operation string
	Msg       []byte
}

// New constructs an Invocation with a fresh correlation id.
func New(origin string, target Target, operation string, msg []byte) Invocation {
	return Invocation{
		ID:        NextID(),
		Origin:    origin,
		Target:    target,
		Operation: operation,
		Msg:       msg,
	}
}

// InvocationResponse is the reply to exactly one Invocation. Exactly one of
// (Msg meaningful, Error set) holds per response; callers treat a non-empty
// Error as failure regardless of Msg's contents.
type InvocationResponse struct {
	InvocationID uint64
	Msg          []byte
	Error        string
}

// Success builds a successful response to inv carrying msg.
func Success(inv Invocation, msg []byte) InvocationResponse {
	return InvocationResponse{InvocationID: inv.ID, Msg: msg}
}

// Error builds a failure response to inv. err's message becomes the
// response's Error string; it is never propagated as a Go error across the
// channel boundary (transport never unwinds out of a worker goroutine).
func Error(inv Invocation, err error) InvocationResponse {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return InvocationResponse{InvocationID: inv.ID, Error: msg}
}

// IsError reports whether this response represents a failure.
func (r InvocationResponse) IsError() bool { return r.Error != "" }

// CapabilityDescriptor is provider-supplied metadata. The core treats it as
// opaque except for ID, which must equal the capability id the provider is
// registered under.
type CapabilityDescriptor struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	SupportedOps []string          `json:"supported_operations,omitempty"`
	ConfigSchema string            `json:"config_schema,omitempty"` // JSON Schema, validated by internal/schema
	Metadata     map[string]string `json:"metadata,omitempty"`
}
