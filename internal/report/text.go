package report

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// TextGenerator renders a severity-grouped plain-text report suitable for
// review comments and terminal output.
type TextGenerator struct {
	// SortBySeverity re-groups entries by descending severity instead of
	// capture order.
	SortBySeverity bool
}

func (g *TextGenerator) Name() string      { return "text" }
func (g *TextGenerator) Extension() string { return ".txt" }

// Generate renders the report as text.
func (g *TextGenerator) Generate(rep *fault.Report) (string, error) {
	var b strings.Builder
	rule := strings.Repeat("━", 60)

	fmt.Fprintf(&b, "Fault report for session %s\n", rep.SessionID)
	fmt.Fprintf(&b, "Generated at %s\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	entries := rep.Entries
	if g.SortBySeverity {
		entries = sortedBySeverity(entries)
	}
	for _, e := range entries {
		g.writeEntry(&b, e)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Results:\n")
	fmt.Fprintf(&b, "  %d error%s captured\n", rep.Summary.TotalErrors, pluralize(rep.Summary.TotalErrors))
	for _, sev := range severityOrder {
		count := rep.Summary.BySeverity[sev.String()]
		if count > 0 {
			fmt.Fprintf(&b, "  %d %s\n", count, sev)
		}
	}
	for _, cat := range sortedCategoryNames(rep.Summary.ByCategory) {
		fmt.Fprintf(&b, "  %d in %s\n", rep.Summary.ByCategory[cat], cat)
	}
	fmt.Fprintln(&b)

	if len(rep.FixSuggestions) > 0 {
		fmt.Fprintln(&b, "Suggested fixes:")
		for _, cat := range sortedSuggestionCategories(rep.FixSuggestions) {
			fmt.Fprintf(&b, "  %s:\n", displayCategory(cat))
			for _, line := range wrapText(rep.FixSuggestions[cat], 72) {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		fmt.Fprintln(&b)
	}

	if rep.Summary.TotalErrors == 0 {
		fmt.Fprintln(&b, "✨ No faults captured in this session.")
	} else if rep.Summary.BySeverity[fault.SeverityCritical.String()] > 0 {
		fmt.Fprintln(&b, "❌ Critical faults present; this session fails the default gate.")
	} else {
		fmt.Fprintln(&b, "⚠️  Faults captured; review before shipping.")
	}

	return b.String(), nil
}

func (g *TextGenerator) writeEntry(b *strings.Builder, e fault.Record) {
	var icon string
	switch e.Severity {
	case fault.SeverityCritical, fault.SeverityHigh:
		icon = "✗"
	case fault.SeverityMedium:
		icon = "⚠"
	default:
		icon = "ℹ"
	}

	fmt.Fprintf(b, "%s [%s] %s (%s, %s)\n", icon, e.ID, e.Message, e.Category, e.Severity)
	fmt.Fprintf(b, "  source: %s  at %s\n", e.Source, e.Timestamp.Format("15:04:05.000"))
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %v\n", k, e.Context[k])
	}
	if e.Stack != "" {
		fmt.Fprintln(b, "  stack:")
		for _, line := range strings.Split(strings.TrimSpace(e.Stack), "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}
}

// wrapText splits text into lines no longer than width runes.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

func sortedCategoryNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedSuggestionCategories(suggestions map[fault.Category]string) []fault.Category {
	cats := make([]fault.Category, 0, len(suggestions))
	for cat := range suggestions {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
