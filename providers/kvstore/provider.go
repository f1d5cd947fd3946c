package kvstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

var _ plugin.Provider = (*Provider)(nil)

// CapabilityID is the address this provider registers under.
const CapabilityID = "wascc:keyvalue"

const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opExists = "exists"
)

const configSchema = `{
	"type": "object",
	"properties": {
		"backend": {"type": "string", "enum": ["sqlite", "postgres"]},
		"dsn": {"type": "string"}
	},
	"required": ["backend"]
}`

// getRequest / setRequest / deleteRequest are the JSON payload shapes each
// operation decodes off the call's plain []byte argument.
type getRequest struct {
	Key string `json:"key"`
}

type setRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type deleteRequest struct {
	Key string `json:"key"`
}

type valueResult struct {
	Value   []byte `json:"value,omitempty"`
	Found   bool   `json:"found"`
	Existed bool   `json:"existed,omitempty"`
}

// Provider implements the wascc:keyvalue capability over a Store. It
// never calls Dispatch: a key-value store has no reason to call back into
// an actor.
type Provider struct {
	store Store
}

// New wraps an already-open Store as a capability provider.
func New(store Store) *Provider {
	return &Provider{store: store}
}

// init registers the "kvstore" factory name so config-driven bootstrap can
// load this provider by name (see config_load.go's Apply); the settings'
// "backend" value picks sqlite or postgres.
func init() {
	plugin.RegisterFactory("kvstore", newFromSettings)
}

func newFromSettings(settings map[string]any) (plugin.Provider, error) {
	backend, _ := settings["backend"].(string)
	dsn, _ := settings["dsn"].(string)

	var store Store
	var err error
	switch backend {
	case "postgres":
		store, err = NewPostgresStore(dsn)
	case "sqlite", "":
		store, err = NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("kvstore: unsupported backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return New(store), nil
}

func (p *Provider) Configure(_ plugin.Dispatcher) error {
	return nil
}

func (p *Provider) HandleCall(_ string, operation string, msg []byte) ([]byte, error) {
	ctx := context.Background()
	switch operation {
	case opGet:
		var req getRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, fmt.Errorf("wascc:keyvalue: decode get request: %w", err)
		}
		value, ok, err := p.store.Get(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(valueResult{Value: value, Found: ok})
	case opSet:
		var req setRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, fmt.Errorf("wascc:keyvalue: decode set request: %w", err)
		}
		if err := p.store.Set(ctx, req.Key, req.Value); err != nil {
			return nil, err
		}
		return json.Marshal(valueResult{Found: true})
	case opDelete:
		var req deleteRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, fmt.Errorf("wascc:keyvalue: decode delete request: %w", err)
		}
		existed, err := p.store.Delete(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(valueResult{Existed: existed})
	case opExists:
		var req getRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, fmt.Errorf("wascc:keyvalue: decode exists request: %w", err)
		}
		ok, err := p.store.Exists(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(valueResult{Found: ok})
	default:
		return nil, fmt.Errorf("wascc:keyvalue: unsupported operation %q", operation)
	}
}

func (p *Provider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{
		ID:           CapabilityID,
		Name:         "Key-Value Store",
		Version:      "0.1.0",
		SupportedOps: []string{opGet, opSet, opDelete, opExists},
		ConfigSchema: configSchema,
	}
}

func (p *Provider) Shutdown() error {
	return p.store.Close()
}
