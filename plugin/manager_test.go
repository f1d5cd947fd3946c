package plugin

import (
	"errors"
	"strings"
	"testing"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/internal/circuitbreaker"
	"github.com/ferro-labs/caphost/invocation"
)

// echoProvider is a minimal Provider that returns whatever it was sent,
// used to drive PluginManager.Call without depending on a real provider
// package.
type echoProvider struct {
	configured bool
	shutdown   bool
	fail       error
	descriptor invocation.CapabilityDescriptor
}

func (p *echoProvider) Configure(d Dispatcher) error {
	p.configured = true
	return nil
}

func (p *echoProvider) HandleCall(binding, operation string, msg []byte) ([]byte, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	return msg, nil
}

func (p *echoProvider) Descriptor() invocation.CapabilityDescriptor { return p.descriptor }

func (p *echoProvider) Shutdown() error {
	p.shutdown = true
	return nil
}

func testKey() invocation.RouteKey {
	return invocation.RouteKey{Binding: "default", CapabilityID: "tea:echo"}
}

func TestAddPluginDuplicateRejected(t *testing.T) {
	m := NewManager()
	key := testKey()
	if err := m.AddPlugin(key, &echoProvider{}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := m.AddPlugin(key, &echoProvider{})
	if !errors.Is(err, caphosterr.ErrDuplicatePlugin) {
		t.Fatalf("got %v, want wrapped ErrDuplicatePlugin", err)
	}
	if m.Len() != 1 {
		t.Fatalf("got %d plugins, want 1", m.Len())
	}
}

func TestCallRoundTripsPayload(t *testing.T) {
	m := NewManager()
	key := testKey()
	if err := m.AddPlugin(key, &echoProvider{}); err != nil {
		t.Fatal(err)
	}
	inv := invocation.New("test", invocation.NewCapabilityTarget(key.CapabilityID, key.Binding), "echo", []byte("hello"))
	resp := m.Call(inv)
	if resp.IsError() {
		t.Fatalf("unexpected error response: %s", resp.Error)
	}
	if string(resp.Msg) != "hello" {
		t.Fatalf("got %q, want %q", resp.Msg, "hello")
	}
}

func TestCallActorTargetIsBadDispatch(t *testing.T) {
	m := NewManager()
	inv := invocation.New("test", invocation.NewActorTarget("actor1"), "op", nil)
	resp := m.Call(inv)
	if !resp.IsError() {
		t.Fatal("expected an error response")
	}
	if resp.Error != caphosterr.ErrBadDispatch.Error() {
		t.Fatalf("got %q, want %q", resp.Error, caphosterr.ErrBadDispatch.Error())
	}
}

func TestCallUnknownRoute(t *testing.T) {
	m := NewManager()
	inv := invocation.New("test", invocation.NewCapabilityTarget("tea:missing", "default"), "op", nil)
	resp := m.Call(inv)
	if !resp.IsError() {
		t.Fatal("expected an error response")
	}
}

func TestCallFailureTripsBreaker(t *testing.T) {
	m := NewManager()
	key := testKey()
	p := &echoProvider{fail: errors.New("boom")}
	if err := m.AddPlugin(key, p); err != nil {
		t.Fatal(err)
	}
	inv := invocation.New("test", invocation.NewCapabilityTarget(key.CapabilityID, key.Binding), "op", nil)

	var lastResp invocation.InvocationResponse
	for i := 0; i < 6; i++ {
		lastResp = m.Call(inv)
	}
	if !lastResp.IsError() {
		t.Fatal("expected the circuit to reject after repeated failures")
	}
	if !strings.Contains(lastResp.Error, circuitbreaker.ErrCircuitOpen.Error()) {
		t.Fatalf("got %q, want a rejection by the open circuit breaker", lastResp.Error)
	}
}

func TestRemovePluginInvokesShutdownAndIsIdempotent(t *testing.T) {
	m := NewManager()
	key := testKey()
	p := &echoProvider{}
	if err := m.AddPlugin(key, p); err != nil {
		t.Fatal(err)
	}
	if err := m.RemovePlugin(key); err != nil {
		t.Fatal(err)
	}
	if !p.shutdown {
		t.Fatal("expected Shutdown to be called")
	}
	if err := m.RemovePlugin(key); err != nil {
		t.Fatalf("second removal should be a no-op, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("got %d plugins, want 0", m.Len())
	}
}

func TestRegisterDispatcherConfiguresProvider(t *testing.T) {
	m := NewManager()
	key := testKey()
	p := &echoProvider{}
	if err := m.AddPlugin(key, p); err != nil {
		t.Fatal(err)
	}
	invocTx := make(chan invocation.Invocation, 1)
	respRx := make(chan invocation.InvocationResponse, 1)
	d := NewDispatcher(key.CapabilityID, invocTx, respRx)
	if err := m.RegisterDispatcher(key, d); err != nil {
		t.Fatal(err)
	}
	if !p.configured {
		t.Fatal("expected Configure to be called")
	}
}
