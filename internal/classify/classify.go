// Package classify maps a normalized fault record to a category and severity.
// Classification is pure and deterministic: an ordered rule list is evaluated
// highest priority first and the first matching rule wins; if no rule matches,
// a per-source default table applies. Identical input always yields identical
// output so count-based gating assertions are reproducible.
package classify

import (
	"sort"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// Rule binds a predicate over a record to a classification outcome.
type Rule struct {
	// Name identifies the rule in config and diagnostics.
	Name string
	// Priority orders evaluation; higher runs first. Rules with equal
	// priority keep their registration order (caller rules before defaults).
	Priority int
	// Match reports whether the rule applies to the record. Must be pure.
	Match func(r fault.Record) bool

	Category fault.Category
	Severity fault.Severity
}

// Classifier evaluates an ordered rule list with a per-source fallback table.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from caller rules prepended ahead of the defaults.
// Callers extend classification without forking the default rule set.
func New(extra ...Rule) *Classifier {
	rules := make([]Rule, 0, len(extra)+len(defaultRules))
	rules = append(rules, extra...)
	rules = append(rules, defaultRules...)
	// Stable sort keeps registration order within a priority band, so caller
	// rules shadow same-priority defaults.
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return &Classifier{rules: rules}
}

// Classify returns the category and severity for a record. It never returns
// empty values: records that match no rule fall back to the per-source
// default table.
func (c *Classifier) Classify(r fault.Record) (fault.Category, fault.Severity) {
	for _, rule := range c.rules {
		if rule.Match != nil && rule.Match(r) {
			return rule.Category, rule.Severity
		}
	}
	return defaultForSource(r.Source)
}

// Rules returns the evaluation order, for diagnostics.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
