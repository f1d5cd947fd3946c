package kvstore

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestProvider_SetGetRoundTrip(t *testing.T) {
	p := newTestProvider(t)

	setMsg, _ := json.Marshal(setRequest{Key: "a", Value: []byte("hello")})
	if _, err := p.HandleCall("default", opSet, setMsg); err != nil {
		t.Fatalf("set: %v", err)
	}

	getMsg, _ := json.Marshal(getRequest{Key: "a"})
	out, err := p.HandleCall("default", opGet, getMsg)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Found || string(result.Value) != "hello" {
		t.Fatalf("got %+v, want found=true value=hello", result)
	}
}

func TestProvider_GetMissingKey(t *testing.T) {
	p := newTestProvider(t)

	getMsg, _ := json.Marshal(getRequest{Key: "missing"})
	out, err := p.HandleCall("default", opGet, getMsg)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var result valueResult
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Found {
		t.Fatalf("expected found=false for a missing key, got %+v", result)
	}
}

func TestProvider_DeleteReportsExistence(t *testing.T) {
	p := newTestProvider(t)

	setMsg, _ := json.Marshal(setRequest{Key: "a", Value: []byte("x")})
	if _, err := p.HandleCall("default", opSet, setMsg); err != nil {
		t.Fatalf("set: %v", err)
	}

	delMsg, _ := json.Marshal(deleteRequest{Key: "a"})
	out, err := p.HandleCall("default", opDelete, delMsg)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	var result valueResult
	_ = json.Unmarshal(out, &result)
	if !result.Existed {
		t.Fatal("expected existed=true for a key that was present")
	}

	out, err = p.HandleCall("default", opDelete, delMsg)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	result = valueResult{}
	_ = json.Unmarshal(out, &result)
	if result.Existed {
		t.Fatal("expected existed=false for a key that is already gone")
	}
}

func TestProvider_UnsupportedOperation(t *testing.T) {
	p := newTestProvider(t)
	if _, err := p.HandleCall("default", "frobnicate", nil); err == nil {
		t.Fatal("expected an error for an unsupported operation")
	}
}

func TestDescriptor(t *testing.T) {
	p := newTestProvider(t)
	desc := p.Descriptor()
	if desc.ID != CapabilityID {
		t.Fatalf("got ID %q, want %q", desc.ID, CapabilityID)
	}
	if desc.ConfigSchema == "" {
		t.Fatal("expected a non-empty config schema")
	}
}
