package caphost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

func init() {
	plugin.RegisterFactory("test-echo", func(settings map[string]any) (plugin.Provider, error) {
		return newEchoProvider("tea:echo"), nil
	})
}

func TestLoadConfig_JSON(t *testing.T) {
	data := `{
		"bindings": [
			{"binding": "default", "factory": "test-echo"}
		]
	}`
	path := writeTempFile(t, "config.json", data)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bindings) != 1 || cfg.Bindings[0].Factory != "test-echo" {
		t.Fatalf("got %+v", cfg.Bindings)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	data := `
bindings:
  - binding: default
    factory: test-echo
middleware: []
`
	path := writeTempFile(t, "config.yaml", data)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(cfg.Bindings))
	}
}

func TestLoadConfig_NonExistentFile(t *testing.T) {
	if _, err := LoadConfig("/tmp/does-not-exist-config-12345.json"); err == nil {
		t.Fatal("expected error for non-existent file")
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{invalid`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := writeTempFile(t, "config.toml", "key = value")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	cfg := Config{Bindings: []BindingConfig{{Binding: "default", Factory: "test-echo"}}}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateConfig_UnknownFactory(t *testing.T) {
	cfg := Config{Bindings: []BindingConfig{{Binding: "default", Factory: "no-such-factory"}}}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for unregistered factory")
	}
}

func TestValidateConfig_DuplicateBinding(t *testing.T) {
	cfg := Config{Bindings: []BindingConfig{
		{Binding: "default", Factory: "test-echo"},
		{Binding: "default", Factory: "test-echo"},
	}}
	if err := ValidateConfig(cfg); err == nil {
		t.Fatal("expected error for duplicate binding")
	}
}

func TestApplyRegistersProviders(t *testing.T) {
	h, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer h.Shutdown()

	cfg := Config{Bindings: []BindingConfig{{Binding: "default", Factory: "test-echo"}}}
	if err := Apply(h, cfg); err != nil {
		t.Fatal(err)
	}

	target := invocation.NewCapabilityTarget("tea:echo", "default")
	if _, err := h.InvokeCapability("test", target, "echo", nil); err != nil {
		t.Fatalf("provider from config should be reachable: %v", err)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
