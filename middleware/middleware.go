// Package middleware implements the ordered pre/post transform chain that
// wraps every actor-call and every capability-call.
//
// The chain runner is a slice of registered hooks run in registration
// order, each able to transform the value passing through it and to
// short-circuit the rest of the chain with an error.
//
// A chain failure is never fatal to the invocation: the caller (see
// caphost's worker dispatchInbound and Host.InvokeActor) logs the error and falls back
// to the untransformed value the chain started from. If any middleware in
// the chain errors, the whole chain's transformation is discarded in favor
// of the pre-chain value, not just that one hook's.
package middleware

import (
	"sync"

	"github.com/ferro-labs/caphost/invocation"
)

// Middleware is implemented by anything that wants to observe or transform
// invocations and responses on both the actor-call and capability-call
// paths. All four hooks must be implemented; a no-op hook simply returns
// its input unchanged.
type Middleware interface {
	ActorPreInvoke(inv invocation.Invocation) (invocation.Invocation, error)
	ActorPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error)
	CapabilityPreInvoke(inv invocation.Invocation) (invocation.Invocation, error)
	CapabilityPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error)
}

// Chain is an ordered, append-only sequence of Middleware. Pre-hooks run in
// registration order; post-hooks run in the same order, not reversed — this
// is an explicit, documented design choice, not an oversight.
type Chain struct {
	mu  sync.RWMutex
	mws []Middleware
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Use appends mw to the end of the chain.
func (c *Chain) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mws = append(c.mws, mw)
}

// Len reports the number of registered middlewares.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mws)
}

// snapshot copies the current middleware slice so a concurrent Use call
// can't race with a chain already in flight.
func (c *Chain) snapshot() []Middleware {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Middleware, len(c.mws))
	copy(out, c.mws)
	return out
}

// RunActorPreInvoke runs every middleware's ActorPreInvoke hook in
// registration order, feeding each hook's output to the next. On the first
// hook failure it stops and returns that error alongside the original
// (pre-chain) invocation — the caller is expected to log the error and use
// the returned invocation, never the partially transformed one.
func (c *Chain) RunActorPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	return runPre(c.snapshot(), inv, Middleware.ActorPreInvoke)
}

// RunActorPostInvoke is the post-invoke analogue of RunActorPreInvoke.
func (c *Chain) RunActorPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	return runPost(c.snapshot(), resp, Middleware.ActorPostInvoke)
}

// RunCapabilityPreInvoke is the capability-call analogue of RunActorPreInvoke.
func (c *Chain) RunCapabilityPreInvoke(inv invocation.Invocation) (invocation.Invocation, error) {
	return runPre(c.snapshot(), inv, Middleware.CapabilityPreInvoke)
}

// RunCapabilityPostInvoke is the capability-call analogue of RunActorPostInvoke.
func (c *Chain) RunCapabilityPostInvoke(resp invocation.InvocationResponse) (invocation.InvocationResponse, error) {
	return runPost(c.snapshot(), resp, Middleware.CapabilityPostInvoke)
}

func runPre(
	mws []Middleware,
	inv invocation.Invocation,
	hook func(Middleware, invocation.Invocation) (invocation.Invocation, error),
) (invocation.Invocation, error) {
	cur := inv
	for _, mw := range mws {
		next, err := hook(mw, cur)
		if err != nil {
			return inv, err
		}
		cur = next
	}
	return cur, nil
}

func runPost(
	mws []Middleware,
	resp invocation.InvocationResponse,
	hook func(Middleware, invocation.InvocationResponse) (invocation.InvocationResponse, error),
) (invocation.InvocationResponse, error) {
	cur := resp
	for _, mw := range mws {
		next, err := hook(mw, cur)
		if err != nil {
			return resp, err
		}
		cur = next
	}
	return cur, nil
}
