package detect

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veil-io/veil/internal/pii"
	"github.com/veil-io/veil/patterns"
)

// RuleFile is the top-level YAML structure for a rule config file. The rules
// sequence is ordered; its order is the category priority order.
type RuleFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is a single detection rule definition.
type RuleConfig struct {
	Name     string   `yaml:"name"`
	Category string   `yaml:"category"`
	Regex    string   `yaml:"regex"`
	DenyList []string `yaml:"deny_list,omitempty"`
}

// Rule is a compiled, ready-to-run detection rule.
type Rule struct {
	Name     string
	Category pii.Category
	Pattern  *regexp.Regexp
	deny     map[string]bool
}

// ParseRuleFile parses rule YAML bytes into a RuleFile.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule YAML: %w", err)
	}
	return &rf, nil
}

// LoadRuleFile reads and parses a rule YAML file from disk. Returns nil (not
// an error) if the file does not exist, so a missing override file is a no-op.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}

// CompileRules converts rule configs into the compiled rules the detector
// runs, preserving order. Unknown categories and invalid regexes are errors.
func CompileRules(configs []RuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(configs))
	for _, rc := range configs {
		category, ok := pii.ParseCategory(rc.Category)
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown category %q", rc.Name, rc.Category)
		}
		compiled, err := regexp.Compile(rc.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern in rule %q: %w", rc.Name, err)
		}
		rule := Rule{Name: rc.Name, Category: category, Pattern: compiled}
		if len(rc.DenyList) > 0 {
			rule.deny = make(map[string]bool, len(rc.DenyList))
			for _, w := range rc.DenyList {
				rule.deny[w] = true
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// DefaultRules returns the built-in rule set compiled from the embedded
// pii_rules.yaml.
func DefaultRules() ([]Rule, error) {
	rf, err := ParseRuleFile(patterns.PIIRulesYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded PII rules: %w", err)
	}
	return CompileRules(rf.Rules)
}

// Matches returns the rule's leftmost non-overlapping match ranges in text.
// When a match begins with deny-listed words they are stripped and the
// remainder must still independently match the pattern, otherwise the match
// is dropped. This replaces the negative lookahead RE2 cannot express.
func (r Rule) Matches(text string) [][2]int {
	var out [][2]int
	for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if r.deny != nil {
			start = r.trimDenied(text, start, end)
		}
		if start < end {
			out = append(out, [2]int{start, end})
		}
	}
	return out
}

// trimDenied drops deny-listed leading words from text[start:end] and
// returns the adjusted start, or end when nothing acceptable remains.
func (r Rule) trimDenied(text string, start, end int) int {
	trimmed := false
	for start < end {
		value := text[start:end]
		first, rest, _ := strings.Cut(value, " ")
		if !r.deny[first] {
			break
		}
		trimmed = true
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return end
		}
		start = end - len(rest)
	}
	if trimmed {
		// The remainder must be a standalone match for this rule.
		if m := r.Pattern.FindStringIndex(text[start:end]); m == nil || m[0] != 0 || m[1] != end-start {
			return end
		}
	}
	return start
}
