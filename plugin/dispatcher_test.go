package plugin

import (
	"testing"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/invocation"
)

func TestDispatchRoundTrip(t *testing.T) {
	invocTx := make(chan invocation.Invocation, 1)
	respRx := make(chan invocation.InvocationResponse, 1)
	d := NewDispatcher("tea:echo", invocTx, respRx)

	done := make(chan struct{})
	var gotMsg []byte
	var gotErr error
	go func() {
		gotMsg, gotErr = d.Dispatch("actor1", "greet", []byte("hi"))
		close(done)
	}()

	inv := <-invocTx
	if inv.Target.Kind() != invocation.TargetActor || inv.Target.ActorID() != "actor1" {
		t.Fatalf("got target %v, want actor1", inv.Target)
	}
	respRx <- invocation.Success(inv, []byte("hi back"))
	<-done

	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if string(gotMsg) != "hi back" {
		t.Fatalf("got %q, want %q", gotMsg, "hi back")
	}
}

func TestDispatchPropagatesResponseError(t *testing.T) {
	invocTx := make(chan invocation.Invocation, 1)
	respRx := make(chan invocation.InvocationResponse, 1)
	d := NewDispatcher("tea:echo", invocTx, respRx)

	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = d.Dispatch("actor1", "greet", nil)
		close(done)
	}()

	inv := <-invocTx
	respRx <- invocation.Error(inv, caphosterr.ErrUnknownActor)
	<-done

	if gotErr == nil {
		t.Fatal("expected an error")
	}
}

func TestDispatchChannelClosedIsChannelSendError(t *testing.T) {
	invocTx := make(chan invocation.Invocation)
	close(invocTx)
	respRx := make(chan invocation.InvocationResponse)
	d := NewDispatcher("tea:echo", invocTx, respRx)

	if _, err := d.Dispatch("actor1", "op", nil); err == nil {
		t.Fatal("expected a channel send error from a closed channel")
	}
}

func TestDispatchChannelClosedBeforeReplyIsChannelReceiveError(t *testing.T) {
	invocTx := make(chan invocation.Invocation, 1)
	respRx := make(chan invocation.InvocationResponse)
	close(respRx)
	d := NewDispatcher("tea:echo", invocTx, respRx)

	_, err := d.Dispatch("actor1", "op", nil)
	if err == nil {
		t.Fatal("expected a channel receive error")
	}
}
