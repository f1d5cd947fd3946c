// Package schema validates a provider's configuration payload against the
// JSON Schema document it publishes in its CapabilityDescriptor.
//
// Providers are free to leave ConfigSchema empty, in which case
// validation is skipped entirely — of the built-in providers in this
// repo, only extras does. Whenever a schema is present, registration fails loudly
// rather than handing a provider settings it would otherwise silently
// misinterpret.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles schemaDoc (a JSON Schema document) and checks
// settings against it. An empty schemaDoc always succeeds. settings is
// first round-tripped through encoding/json so callers can pass a plain
// map[string]any the same way config.go decodes provider settings blocks.
func Validate(schemaDoc string, settings map[string]any) error {
	if schemaDoc == "" {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(schemaDoc)); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	sch, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings for validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal settings for validation: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("settings do not satisfy config schema: %w", err)
	}
	return nil
}
