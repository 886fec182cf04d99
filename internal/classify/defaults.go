package classify

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

var nullAccessPattern = regexp.MustCompile(
	`(?i)(cannot read propert(y|ies)|undefined is not|null pointer|nil pointer|invalid memory address|not a function)`)

// defaultRules are evaluated after any caller-registered rules. They refine
// the per-source table for message shapes that indicate a more specific root
// cause than the surface they arrived on.
var defaultRules = []Rule{
	{
		Name:     "null-access",
		Priority: 50,
		Match: func(r fault.Record) bool {
			return nullAccessPattern.MatchString(r.Message)
		},
		Category: fault.CategoryDataError,
		Severity: fault.SeverityHigh,
	},
	{
		Name:     "transport-failure",
		Priority: 40,
		Match: func(r fault.Record) bool {
			if r.Source != fault.SourceNetworkFailure {
				return false
			}
			failed, _ := r.Context["transportError"].(bool)
			return failed
		},
		Category: fault.CategoryNetworkError,
		Severity: fault.SeverityHigh,
	},
	{
		Name:     "hook-failure",
		Priority: 30,
		Match: func(r fault.Record) bool {
			return strings.Contains(strings.ToLower(r.Message), "hook")
		},
		Category: fault.CategoryHookError,
		Severity: fault.SeverityHigh,
	},
	{
		Name:     "slow-operation",
		Priority: 20,
		Match: func(r fault.Record) bool {
			msg := strings.ToLower(r.Message)
			return strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timed out")
		},
		Category: fault.CategoryPerformanceError,
		Severity: fault.SeverityMedium,
	},
}

// defaultForSource is the last-resort table applied when no rule matches.
// Sources that indicate the application itself is broken (failed agent
// actions, recovered panics) default to critical; failed API calls to high;
// everything else to medium.
func defaultForSource(s fault.SourceType) (fault.Category, fault.Severity) {
	switch s {
	case fault.SourceAgentAction:
		return fault.CategoryAgentNative, fault.SeverityCritical
	case fault.SourceUncaughtException:
		return fault.CategoryComponentError, fault.SeverityCritical
	case fault.SourceNetworkFailure:
		return fault.CategoryAPIIntegration, fault.SeverityHigh
	case fault.SourceUnhandledRejection:
		return fault.CategoryDataError, fault.SeverityMedium
	case fault.SourceLog:
		return fault.CategoryComponentError, fault.SeverityMedium
	default:
		return fault.CategoryUnclassified, fault.SeverityMedium
	}
}
