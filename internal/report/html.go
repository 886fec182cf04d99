package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// HTMLGenerator renders a self-contained interactive document: a filterable
// fault table with full reproduction context plus per-category remediation.
// No external assets; the filter runs on inline JavaScript.
type HTMLGenerator struct {
	// SortBySeverity re-groups entries by descending severity instead of
	// capture order.
	SortBySeverity bool
}

func (g *HTMLGenerator) Name() string      { return "html" }
func (g *HTMLGenerator) Extension() string { return ".html" }

type htmlEntry struct {
	fault.Record
	ContextLines []string
}

type htmlSuggestion struct {
	Category string
	Body     template.HTML
}

type htmlData struct {
	SessionID   string
	GeneratedAt string
	Summary     fault.Summary
	Severities  []string
	Categories  []string
	Entries     []htmlEntry
	Suggestions []htmlSuggestion
}

// Generate renders the report as a standalone HTML page.
func (g *HTMLGenerator) Generate(rep *fault.Report) (string, error) {
	entries := rep.Entries
	if g.SortBySeverity {
		entries = sortedBySeverity(entries)
	}

	data := htmlData{
		SessionID:   rep.SessionID,
		GeneratedAt: rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Summary:     rep.Summary,
	}
	for _, sev := range severityOrder {
		data.Severities = append(data.Severities, sev.String())
	}
	for _, cat := range sortedCategoryNames(rep.Summary.ByCategory) {
		data.Categories = append(data.Categories, cat)
	}
	for _, e := range entries {
		he := htmlEntry{Record: e}
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			he.ContextLines = append(he.ContextLines, fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		data.Entries = append(data.Entries, he)
	}
	for _, cat := range sortedSuggestionCategories(rep.FixSuggestions) {
		body, err := renderMarkdown(rep.FixSuggestions[cat])
		if err != nil {
			return "", fmt.Errorf("render suggestion for %s: %w", cat, err)
		}
		data.Suggestions = append(data.Suggestions, htmlSuggestion{
			Category: displayCategory(cat),
			Body:     body,
		})
	}

	t, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("parse report template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}

// renderMarkdown converts remediation Markdown to HTML. The source is our own
// suggestion table, not user input, so embedding the converted output is safe.
func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Fault report — session {{.SessionID}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #1c1e21; }
  h1 { font-size: 1.4rem; }
  .meta { color: #666; margin-bottom: 1.5rem; }
  .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; margin: 20px 0; }
  .card { border: 1px solid #ddd; border-radius: 6px; padding: 12px; text-align: center; }
  .card .num { font-size: 1.6rem; font-weight: 600; }
  .filters { margin: 16px 0; }
  .filters select { margin-right: 12px; padding: 4px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; vertical-align: top; font-size: 0.9rem; }
  th { background: #f5f6f7; }
  tr.sev-critical td:first-child { border-left: 4px solid #c0392b; }
  tr.sev-high td:first-child { border-left: 4px solid #e67e22; }
  tr.sev-medium td:first-child { border-left: 4px solid #f1c40f; }
  tr.sev-low td:first-child { border-left: 4px solid #95a5a6; }
  pre { white-space: pre-wrap; margin: 4px 0 0; font-size: 0.8rem; color: #555; }
  .suggestion { border-left: 3px solid #3498db; padding-left: 12px; margin: 12px 0; }
  .empty { color: #666; font-style: italic; margin: 24px 0; }
</style>
</head>
<body>
<h1>Fault report</h1>
<div class="meta">Session {{.SessionID}} · generated {{.GeneratedAt}}</div>

<div class="cards">
  <div class="card"><div class="num">{{.Summary.TotalErrors}}</div><div>total</div></div>
  {{range .Severities}}<div class="card"><div class="num">{{index $.Summary.BySeverity .}}</div><div>{{.}}</div></div>
  {{end}}
</div>

{{if .Entries}}
<div class="filters">
  <label>Severity:
    <select id="sev-filter" onchange="applyFilters()">
      <option value="">all</option>
      {{range .Severities}}<option value="{{.}}">{{.}}</option>{{end}}
    </select>
  </label>
  <label>Category:
    <select id="cat-filter" onchange="applyFilters()">
      <option value="">all</option>
      {{range .Categories}}<option value="{{.}}">{{.}}</option>{{end}}
    </select>
  </label>
</div>

<table id="faults">
  <tr><th>ID</th><th>Severity</th><th>Category</th><th>Source</th><th>Message</th><th>Context</th></tr>
  {{range .Entries}}
  <tr class="sev-{{.Severity}}" data-severity="{{.Severity}}" data-category="{{.Category}}">
    <td>{{.ID}}</td>
    <td>{{.Severity}}</td>
    <td>{{.Category}}</td>
    <td>{{.Source}}</td>
    <td>{{.Message}}{{if .Stack}}<pre>{{.Stack}}</pre>{{end}}</td>
    <td>{{range .ContextLines}}<div>{{.}}</div>{{end}}</td>
  </tr>
  {{end}}
</table>
{{else}}
<div class="empty">No faults captured in this session.</div>
{{end}}

{{if .Suggestions}}
<h2>Suggested fixes</h2>
{{range .Suggestions}}
<div class="suggestion"><strong>{{.Category}}</strong>{{.Body}}</div>
{{end}}
{{end}}

<script>
function applyFilters() {
  var sev = document.getElementById('sev-filter').value;
  var cat = document.getElementById('cat-filter').value;
  var rows = document.querySelectorAll('#faults tr[data-severity]');
  rows.forEach(function (row) {
    var show = (!sev || row.dataset.severity === sev) && (!cat || row.dataset.category === cat);
    row.style.display = show ? '' : 'none';
  });
}
</script>
</body>
</html>
`
