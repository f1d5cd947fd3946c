package caphost

import (
	"errors"
	"testing"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/extras"
	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

// echoProvider is a minimal Provider that returns whatever it was sent,
// used across the conformance scenarios below.
type echoProvider struct {
	id       string
	shutdown bool
}

func newEchoProvider(id string) *echoProvider { return &echoProvider{id: id} }

func (p *echoProvider) Configure(_ plugin.Dispatcher) error { return nil }

func (p *echoProvider) HandleCall(_, _ string, msg []byte) ([]byte, error) {
	return msg, nil
}

func (p *echoProvider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{ID: p.id, Name: "Echo", Version: "0.1.0"}
}

func (p *echoProvider) Shutdown() error {
	p.shutdown = true
	return nil
}

// countingMiddleware records how many times each hook fired.
type countingMiddleware struct {
	actorPre, actorPost, capPre, capPost int
}

func (m *countingMiddleware) ActorPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	m.actorPre++
	return inv, nil
}
func (m *countingMiddleware) ActorPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	m.actorPost++
	return resp, nil
}
func (m *countingMiddleware) CapabilityPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	m.capPre++
	return inv, nil
}
func (m *countingMiddleware) CapabilityPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	m.capPost++
	return resp, nil
}

// S1 + S7: echo round-trip, including the empty payload.
func TestEchoRoundTrip(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}

	for _, payload := range [][]byte{{0x01, 0x02, 0x03}, nil, {}} {
		target := invocation.NewCapabilityTarget("tea:echo", "default")
		got, err := h.InvokeCapability("test", target, "echo", payload)
		if err != nil {
			t.Fatalf("payload %v: %v", payload, err)
		}
		if string(got) != string(payload) {
			t.Fatalf("got %v, want %v", got, payload)
		}
	}
}

// S2: duplicate registration fails and leaves the first provider intact.
func TestDuplicateRegistrationRejected(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}
	err = h.AddNativeCapability("default", newEchoProvider("tea:echo"))
	if !errors.Is(err, caphosterr.ErrDuplicateRoute) {
		t.Fatalf("got %v, want wrapped ErrDuplicateRoute", err)
	}
	if err == nil || !contains(err.Error(), "tea:echo") || !contains(err.Error(), "default") {
		t.Fatalf("error %v should name both binding and capability id", err)
	}

	target := invocation.NewCapabilityTarget("tea:echo", "default")
	if _, err := h.InvokeCapability("test", target, "echo", []byte("still alive")); err != nil {
		t.Fatalf("first registration should still be serving: %v", err)
	}
}

// S3: a chain of one counting middleware sees each hook fire exactly K
// times after K capability invocations, with actor counters left at zero.
func TestCountingMiddlewareAfterKInvocations(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	mw := &countingMiddleware{}
	h.AddMiddleware(mw)

	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}

	const k = 3
	target := invocation.NewCapabilityTarget("tea:echo", "default")
	for i := 0; i < k; i++ {
		if _, err := h.InvokeCapability("test", target, "echo", []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	if mw.capPre != k || mw.capPost != k {
		t.Fatalf("got (capPre=%d, capPost=%d), want (%d, %d)", mw.capPre, mw.capPost, k, k)
	}
	if mw.actorPre != 0 || mw.actorPost != 0 {
		t.Fatalf("actor hooks should stay at zero with no actor calls, got %+v", mw)
	}
}

// failingMiddleware always fails capability_pre_invoke; this must not
// prevent the invocation from completing.
type failingMiddleware struct{ calls int }

func (m *failingMiddleware) ActorPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	return inv, nil
}
func (m *failingMiddleware) ActorPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	return resp, nil
}
func (m *failingMiddleware) CapabilityPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	m.calls++
	return inv, errors.New("boom")
}
func (m *failingMiddleware) CapabilityPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	return resp, nil
}

func TestMiddlewareFailureIsNonFatal(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	mw := &failingMiddleware{}
	h.AddMiddleware(mw)

	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}

	target := invocation.NewCapabilityTarget("tea:echo", "default")
	got, err := h.InvokeCapability("test", target, "echo", []byte("payload"))
	if err != nil {
		t.Fatalf("invocation should complete despite the failing middleware: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q, want the untransformed payload", got)
	}
	if mw.calls != 1 {
		t.Fatalf("expected the failing hook to have run once, got %d", mw.calls)
	}
}

// S4: shutdown is idempotent, and invocations after shutdown fail with
// UnknownRoute.
func TestShutdownIdempotent(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}

	h.Shutdown()
	h.Shutdown() // must not panic or block

	target := invocation.NewCapabilityTarget("tea:echo", "default")
	if _, err := h.InvokeCapability("test", target, "echo", nil); !errors.Is(err, caphosterr.ErrUnknownRoute) {
		t.Fatalf("got %v, want wrapped ErrUnknownRoute", err)
	}
}

// S5: wascc:extras is registered by the time New returns.
func TestExtrasPresentAtStart(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	key := invocation.RouteKey{Binding: invocation.DefaultBinding, CapabilityID: extras.CapabilityID}
	descs := h.Descriptors()
	if _, ok := descs[key]; !ok {
		t.Fatalf("expected %s to be registered immediately after New", key)
	}
}

// S6 + S8: an Actor-target invocation reaching a native worker's own
// inbound channel is rejected with the documented bad-dispatch string.
// This can only happen via the provider's own Dispatcher (see worker.go),
// so the test reaches into the router directly rather than going through
// the public InvokeCapability/InvokeActor surface.
func TestActorTargetRejectedByNativeWorker(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	key := invocation.RouteKey{Binding: invocation.DefaultBinding, CapabilityID: extras.CapabilityID}
	entry, ok := h.router.GetRoute(key)
	if !ok {
		t.Fatal("expected wascc:extras to already be routed")
	}

	inv := invocation.New("test", invocation.NewActorTarget("a1"), "anything", nil)
	entry.InboundTx <- inv
	resp := <-entry.ResponseRx

	if !resp.IsError() {
		t.Fatal("expected an error response")
	}
	if resp.Error != caphosterr.ErrBadDispatch.Error() {
		t.Fatalf("got %q, want %q", resp.Error, caphosterr.ErrBadDispatch.Error())
	}
}

// Teardown order: after Shutdown, every route is gone and the plugin set
// is empty.
func TestTeardownRemovesEverything(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.AddNativeCapability("default", newEchoProvider("tea:echo")); err != nil {
		t.Fatal(err)
	}
	if err := h.AddNativeCapability("default", newEchoProvider("tea:counter")); err != nil {
		t.Fatal(err)
	}

	h.Shutdown()

	if got := len(h.Descriptors()); got != 0 {
		t.Fatalf("got %d descriptors after shutdown, want 0", got)
	}
	if h.mgr.Len() != 0 {
		t.Fatalf("got %d loaded plugins after shutdown, want 0", h.mgr.Len())
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
