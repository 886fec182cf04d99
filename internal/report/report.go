// Package report turns a session log into the three artifact formats consumed
// by gating automation (JSON), reviewers (text), and interactive triage
// (HTML). Generators are total functions over an immutable report snapshot:
// no side effects beyond the returned string, and an empty log still renders a
// well-formed zero-count artifact in every format.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// Generator renders one artifact format.
type Generator interface {
	// Name identifies the format ("json", "text", "html").
	Name() string
	// Extension is the artifact file extension including the dot.
	Extension() string
	// Generate renders the report. Must not mutate it.
	Generate(rep *fault.Report) (string, error)
}

// Build assembles a transient report from a session snapshot. Entries keep
// capture order; fix suggestions cover exactly the categories present.
func Build(sessionID string, records []fault.Record) *fault.Report {
	rep := &fault.Report{
		SessionID:      sessionID,
		GeneratedAt:    time.Now(),
		Summary:        fault.Summarize(records),
		Entries:        records,
		FixSuggestions: map[fault.Category]string{},
	}
	for _, r := range records {
		if _, ok := rep.FixSuggestions[r.Category]; !ok {
			rep.FixSuggestions[r.Category] = SuggestionFor(r.Category)
		}
	}
	return rep
}

// New returns the generator for a format name.
func New(format string, sortBySeverity bool) (Generator, error) {
	switch format {
	case "json":
		return &JSONGenerator{}, nil
	case "text":
		return &TextGenerator{SortBySeverity: sortBySeverity}, nil
	case "html":
		return &HTMLGenerator{SortBySeverity: sortBySeverity}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (expected json, text, or html)", format)
	}
}

// severityOrder lists severities from most to least disqualifying, the
// grouping order for human-facing formats.
var severityOrder = []fault.Severity{
	fault.SeverityCritical,
	fault.SeverityHigh,
	fault.SeverityMedium,
	fault.SeverityLow,
}

// sortedBySeverity returns entries re-grouped by descending severity while
// preserving capture order within each group.
func sortedBySeverity(entries []fault.Record) []fault.Record {
	out := make([]fault.Record, 0, len(entries))
	for _, sev := range severityOrder {
		for _, e := range entries {
			if e.Severity == sev {
				out = append(out, e)
			}
		}
	}
	return out
}

var titleCaser = cases.Title(language.English)

// displayCategory renders a category slug for human-facing output.
func displayCategory(c fault.Category) string {
	if c == fault.CategoryUnclassified {
		return "Unclassified"
	}
	return titleCaser.String(strings.ReplaceAll(string(c), "-", " "))
}
