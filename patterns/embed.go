// Package patterns provides the embedded default PII rule definitions.
// The YAML file holds an ordered list of (category, regex) rules; rule order
// is the category priority order, so it must never be reshuffled into a map.
package patterns

import _ "embed"

//go:embed pii_rules.yaml
var piiRulesYAML []byte

// PIIRulesYAML returns the embedded default PII rule definitions.
func PIIRulesYAML() []byte { return piiRulesYAML }
