package classify

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// RuleSpec is the declarative rule form used in config files. At least one
// matcher field must be set; matchers combine with AND.
type RuleSpec struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`

	MessageContains string `yaml:"message_contains,omitempty"`
	MessageRegexp   string `yaml:"message_regexp,omitempty"`
	Source          string `yaml:"source,omitempty"`
	ContextKey      string `yaml:"context_key,omitempty"`

	Category string `yaml:"category"`
	Severity string `yaml:"severity"`
}

// Compile turns a declarative spec into an executable rule.
func (s RuleSpec) Compile() (Rule, error) {
	if s.Name == "" {
		return Rule{}, fmt.Errorf("classification rule requires a name")
	}
	if s.MessageContains == "" && s.MessageRegexp == "" && s.Source == "" && s.ContextKey == "" {
		return Rule{}, fmt.Errorf("rule %q has no matcher (set message_contains, message_regexp, source, or context_key)", s.Name)
	}
	if s.Category == "" {
		return Rule{}, fmt.Errorf("rule %q requires a category", s.Name)
	}
	severity, err := fault.ParseSeverity(s.Severity)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", s.Name, err)
	}

	var re *regexp.Regexp
	if s.MessageRegexp != "" {
		re, err = regexp.Compile(s.MessageRegexp)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: invalid message_regexp: %w", s.Name, err)
		}
	}

	contains := strings.ToLower(s.MessageContains)
	source := fault.SourceType(s.Source)

	return Rule{
		Name:     s.Name,
		Priority: s.Priority,
		Match: func(r fault.Record) bool {
			if contains != "" && !strings.Contains(strings.ToLower(r.Message), contains) {
				return false
			}
			if re != nil && !re.MatchString(r.Message) {
				return false
			}
			if source != "" && r.Source != source {
				return false
			}
			if s.ContextKey != "" {
				if _, ok := r.Context[s.ContextKey]; !ok {
					return false
				}
			}
			return true
		},
		Category: fault.Category(s.Category),
		Severity: severity,
	}, nil
}

// CompileSpecs compiles a list of declarative rules, failing on the first
// invalid spec.
func CompileSpecs(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		rule, err := s.Compile()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
