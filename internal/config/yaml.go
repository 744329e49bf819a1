package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nogcio/wrkr/infrastructure/wrkrerr"
)

// keyAliases maps every recognized snake_case key to its canonical
// camelCase struct-tag spelling (§6: "Keys accept camelCase and snake_case
// aliases (e.g., startVUs/start_vus)"). camelCase keys already match a
// struct tag and pass through unchanged.
var keyAliases = map[string]string{
	"start_vus":         "startVUs",
	"start_rate":        "startRate",
	"time_unit":         "timeUnit",
	"pre_allocated_vus": "preAllocatedVUs",
	"max_vus":           "maxVUs",
	"exec_fn":           "exec",
}

// Load parses scenario YAML into a Document, canonicalizing snake_case keys
// before decoding so callers never need to special-case aliases.
func Load(data []byte) (Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, wrkrerr.InvalidOptions("invalid scenario YAML: %s", err)
	}
	canonical := canonicalizeKeys(raw)

	remarshalled, err := yaml.Marshal(canonical)
	if err != nil {
		return Document{}, wrkrerr.Fatal("re-marshalling canonicalized YAML: %s", err)
	}

	var doc Document
	if err := yaml.Unmarshal(remarshalled, &doc); err != nil {
		return Document{}, wrkrerr.InvalidOptions("invalid scenario document: %s", err)
	}

	if doc.Scenarios == nil {
		if _, hasExecutor := raw["executor"]; hasExecutor {
			var s Scenario
			if err := yaml.Unmarshal(remarshalled, &s); err != nil {
				return Document{}, wrkrerr.InvalidOptions("invalid flat scenario: %s", err)
			}
			doc.Scenarios = []Scenario{s}
		}
	}
	return doc, nil
}

// canonicalizeKeys walks a decoded YAML tree rewriting any recognized
// snake_case key to its canonical form, recursing into nested maps and
// sequences (e.g. `stages`, `scenarios`, `thresholds`).
func canonicalizeKeys(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for k, val := range node {
			canonicalKey := k
			if alias, ok := keyAliases[k]; ok {
				canonicalKey = alias
			}
			out[canonicalKey] = canonicalizeKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, item := range node {
			out[i] = canonicalizeKeys(item)
		}
		return out
	default:
		return v
	}
}

// Export renders doc back into canonical-form YAML (§6 `scenario export`,
// §8 invariant 6 "parse_options(export(options)) ≡ options modulo key alias
// canonicalization").
func Export(doc Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: export: %w", err)
	}
	return out, nil
}
