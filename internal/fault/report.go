package fault

import "time"

// Summary aggregates a session log for gating and display.
type Summary struct {
	TotalErrors int            `json:"totalErrors"`
	BySeverity  map[string]int `json:"bySeverity"`
	ByCategory  map[string]int `json:"byCategory"`
}

// Report is a transient snapshot of one capture session, produced fresh for
// each generator invocation and never persisted by the capture core itself.
type Report struct {
	SessionID      string              `json:"sessionId"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Summary        Summary             `json:"summary"`
	Entries        []Record            `json:"entries"`
	FixSuggestions map[Category]string `json:"fixSuggestions"`
}

// CriticalEntries returns the subset of entries at critical severity,
// preserving capture order.
func (r *Report) CriticalEntries() []Record {
	var out []Record
	for _, e := range r.Entries {
		if e.Severity == SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

// Summarize computes severity and category counts over a record slice. Both
// maps are always non-nil so an empty log still renders zero-count artifacts.
func Summarize(records []Record) Summary {
	s := Summary{
		TotalErrors: len(records),
		BySeverity:  map[string]int{},
		ByCategory:  map[string]int{},
	}
	for _, sev := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		s.BySeverity[sev.String()] = 0
	}
	for _, r := range records {
		s.BySeverity[r.Severity.String()]++
		s.ByCategory[string(r.Category)]++
	}
	return s
}
