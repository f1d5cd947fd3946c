// Package extras implements the wascc:extras built-in capability: a small
// set of host-side utility operations (GUID generation, bounded random
// numbers, a monotonic sequence counter) that every capability host
// registers automatically under ("default", "wascc:extras") before any
// other provider, if no route already claims that address, regardless of
// what the caller's config declares.
package extras

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

var _ plugin.Provider = (*Provider)(nil)

// CapabilityID is the address this provider must be registered under.
const CapabilityID = "wascc:extras"

const (
	opRequestGUID      = "request_guid"
	opGenerateRandom   = "generate_random"
	opGenerateSequence = "generate_sequence"
)

// GeneratorRequest is the payload for generate_random; fields are optional
// and default to the provider's built-in bounds. generate_sequence ignores
// its payload.
type GeneratorRequest struct {
	Min *uint32 `json:"min,omitempty"`
	Max *uint32 `json:"max,omitempty"`
}

// GeneratorResult is the common response shape for all three operations.
type GeneratorResult struct {
	GUID     string `json:"guid,omitempty"`
	Value    uint64 `json:"value,omitempty"`
	Sequence uint64 `json:"sequence,omitempty"`
}

// Provider implements plugin.Provider. It never calls Dispatch — extras
// has no outbound actor calls — so Configure accepts the handle for API
// symmetry with every other provider and does not keep it.
type Provider struct {
	seq atomic.Uint64
}

// New returns a ready-to-register extras provider.
func New() *Provider {
	return &Provider{}
}

// Configure is a no-op: extras never calls back into an actor.
func (p *Provider) Configure(_ plugin.Dispatcher) error {
	return nil
}

// HandleCall dispatches to one of the three built-in operations.
func (p *Provider) HandleCall(_ string, operation string, msg []byte) ([]byte, error) {
	switch operation {
	case opRequestGUID:
		return p.requestGUID()
	case opGenerateRandom:
		return p.generateRandom(msg)
	case opGenerateSequence:
		return p.generateSequence()
	default:
		return nil, fmt.Errorf("wascc:extras: unsupported operation %q", operation)
	}
}

func (p *Provider) requestGUID() ([]byte, error) {
	return json.Marshal(GeneratorResult{GUID: uuid.NewString()})
}

func (p *Provider) generateRandom(msg []byte) ([]byte, error) {
	req := GeneratorRequest{}
	if len(msg) > 0 {
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, fmt.Errorf("wascc:extras: decode generate_random request: %w", err)
		}
	}
	min, max := uint32(0), uint32(1<<32-1)
	if req.Min != nil {
		min = *req.Min
	}
	if req.Max != nil {
		max = *req.Max
	}
	if max <= min {
		max = min + 1
	}
	value := min + rand.Uint32()%(max-min)
	return json.Marshal(GeneratorResult{Value: uint64(value)})
}

func (p *Provider) generateSequence() ([]byte, error) {
	next := p.seq.Add(1)
	return json.Marshal(GeneratorResult{Sequence: next})
}

// Descriptor reports this provider's static metadata.
func (p *Provider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{
		ID:           CapabilityID,
		Name:         "Extras",
		Version:      "0.1.0",
		SupportedOps: []string{opRequestGUID, opGenerateRandom, opGenerateSequence},
	}
}

// Shutdown is a no-op: extras holds no resources to release.
func (p *Provider) Shutdown() error {
	return nil
}
