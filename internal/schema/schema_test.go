package schema

import "testing"

const sampleSchema = `{
	"type": "object",
	"properties": {
		"dsn": {"type": "string"}
	},
	"required": ["dsn"]
}`

func TestValidateEmptySchemaAlwaysPasses(t *testing.T) {
	if err := Validate("", map[string]any{"anything": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAcceptsConformingSettings(t *testing.T) {
	if err := Validate(sampleSchema, map[string]any{"dsn": "file::memory:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	if err := Validate(sampleSchema, map[string]any{}); err == nil {
		t.Fatal("expected an error for a missing required field")
	}
}
