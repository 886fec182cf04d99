package report

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// JSONGenerator renders the stable machine-readable schema used for automated
// gating. The shape is a contract: summary counts, ordered errors, the
// critical subset, and per-category fix suggestions.
type JSONGenerator struct{}

func (g *JSONGenerator) Name() string      { return "json" }
func (g *JSONGenerator) Extension() string { return ".json" }

// jsonOutput is the gating schema.
type jsonOutput struct {
	SessionID      string            `json:"sessionId"`
	GeneratedAt    string            `json:"generatedAt"`
	Summary        fault.Summary     `json:"summary"`
	Errors         []fault.Record    `json:"errors"`
	CriticalErrors []fault.Record    `json:"criticalErrors"`
	FixSuggestions map[string]string `json:"fixSuggestions"`
}

// Generate renders the report as indented JSON. Slices and maps are always
// non-nil so an empty session serializes as [] and {}, never null.
func (g *JSONGenerator) Generate(rep *fault.Report) (string, error) {
	out := jsonOutput{
		SessionID:      rep.SessionID,
		GeneratedAt:    rep.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Summary:        rep.Summary,
		Errors:         rep.Entries,
		CriticalErrors: rep.CriticalEntries(),
		FixSuggestions: map[string]string{},
	}
	if out.Errors == nil {
		out.Errors = []fault.Record{}
	}
	if out.CriticalErrors == nil {
		out.CriticalErrors = []fault.Record{}
	}
	for cat, text := range rep.FixSuggestions {
		out.FixSuggestions[string(cat)] = text
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data) + "\n", nil
}
