package report

import "git.home.luguber.info/inful/faultwatch/internal/fault"

// suggestions maps each category to remediation guidance in Markdown. The
// HTML generator renders it; the JSON and text generators emit it verbatim.
var suggestions = map[fault.Category]string{
	fault.CategoryAgentNative: "Inspect the failing action handler and its parameters. " +
		"Re-run the scenario with the same inputs; the stored (sanitized) params reproduce the call. " +
		"Check that the action's preconditions hold before it is invoked.",
	fault.CategoryAPIIntegration: "An upstream API returned a failing status. " +
		"Verify the request path, authentication, and payload against the provider's contract, " +
		"and confirm the upstream service is healthy before retrying.",
	fault.CategoryNetworkError: "The request never completed at the transport level. " +
		"Check connectivity, DNS, and TLS configuration for the target host, " +
		"and whether a proxy or firewall is interfering.",
	fault.CategoryDataError: "A value had an unexpected shape (missing field, nil access, bad type). " +
		"Validate payloads at the boundary where they enter the system and add a guard " +
		"for the missing field named in the message.",
	fault.CategoryHookError: "A lifecycle hook failed. Review the hook's dependencies and ordering; " +
		"hooks must tolerate being invoked with partial state during setup and teardown.",
	fault.CategoryComponentError: "A component raised an error during normal operation. " +
		"Use the stored component context and stack to locate the failing code path.",
	fault.CategoryPerformanceError: "An operation exceeded its time budget. " +
		"Profile the slow path and check for missing timeouts on dependencies.",
	fault.CategoryUnclassified: "This record could not be classified (the classifier itself failed). " +
		"Inspect the raw message and context, then add a classification rule covering this shape.",
}

// SuggestionFor returns remediation guidance for a category. Unknown
// categories get the unclassified guidance so the suggestion table is total.
func SuggestionFor(c fault.Category) string {
	if s, ok := suggestions[c]; ok {
		return s
	}
	return suggestions[fault.CategoryUnclassified]
}
