package plugin

import (
	"fmt"

	"github.com/ferro-labs/caphost/caphosterr"
	"github.com/ferro-labs/caphost/invocation"
)

// nativeDispatcher is the concrete Dispatcher handed to a provider at
// registration: a send side feeding the provider's own worker inbound
// channel, and a receive side on that worker's response channel. That
// response channel is the same one host-initiated calls to this provider
// read their replies from, and replies are not matched by invocation id,
// so a provider must serialize its own outbound Dispatch calls. One
// nativeDispatcher exists per loaded provider — it is never shared.
type nativeDispatcher struct {
	capabilityID string
	invocTx      chan<- invocation.Invocation
	respRx       <-chan invocation.InvocationResponse
}

// NewDispatcher builds the Dispatcher a provider should be configured
// with. invocTx is the send side of the provider's worker inbound
// channel; respRx is the receive side of that worker's response channel.
func NewDispatcher(capabilityID string, invocTx chan<- invocation.Invocation, respRx <-chan invocation.InvocationResponse) Dispatcher {
	return &nativeDispatcher{capabilityID: capabilityID, invocTx: invocTx, respRx: respRx}
}

// Dispatch sends an actor-targeted Invocation on behalf of this
// dispatcher's owning provider and blocks until the matching response
// arrives on its dedicated response channel. There is no timeout: a host
// that never replies leaves the calling goroutine blocked forever.
func (d *nativeDispatcher) Dispatch(actor, op string, msg []byte) (result []byte, err error) {
	inv := invocation.New(d.capabilityID, invocation.NewActorTarget(actor), op, msg)

	defer func() {
		if recover() != nil {
			err = fmt.Errorf("dispatch %s/%s: %w", actor, op, caphosterr.ErrChannelSend)
		}
	}()
	d.invocTx <- inv

	resp, ok := <-d.respRx
	if !ok {
		return nil, fmt.Errorf("dispatch %s/%s: %w", actor, op, caphosterr.ErrChannelReceive)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s", caphosterr.ErrInvocation, resp.Error)
	}
	return resp.Msg, nil
}
