package harness

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultwatch/internal/classify"
	"git.home.luguber.info/inful/faultwatch/internal/config"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Reports.OutputDir = t.TempDir()
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	runner, err := NewRunner(cfg)
	require.NoError(t, err)
	return runner
}

func TestRunScenario_CleanScenarioPasses(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name: "clean",
		Steps: []Step{
			{Do: "log-info", Message: "all good"},
			{Do: "http-get", Status: 200},
		},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.Records)
	assert.NotEmpty(t, result.SessionID)
	// Artifacts are emitted even for clean runs.
	assert.Len(t, result.ArtifactPaths, 3)
}

func TestRunScenario_CapturesAllSurfaces(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name: "all-surfaces",
		Actions: []FixtureAction{
			{Name: "search-photos", Fail: true, Message: "index unavailable"},
		},
		Steps: []Step{
			{Do: "log-error", Message: "grid render failed"},
			{Do: "http-get", Status: 500},
			{Do: "http-get", FailTransport: true},
			{Do: "invoke-action", Action: "search-photos", Params: map[string]any{"query": "sunset"}},
			{Do: "run-task", Task: "load", Error: "load task failed"},
			{Do: "panic-task", Task: "render", Message: "render state corrupted"},
		},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Records)

	sources := map[fault.SourceType]int{}
	for _, v := range result.Violations {
		sources[v.Source]++
	}
	// Default gate is critical: the failed action and the recovered panic.
	assert.False(t, result.Passed)
	assert.Equal(t, 1, sources[fault.SourceAgentAction])
	assert.Equal(t, 1, sources[fault.SourceUncaughtException])
}

func TestRunScenario_SummaryCountsMatchInjectedFaults(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name: "counts",
		Steps: []Step{
			{Do: "log-error", Message: "first"},
			{Do: "log-error", Message: "second"},
			{Do: "log-error", Message: "third"},
			{Do: "http-get", Status: 500},
			{Do: "run-task", Task: "load", Error: "rejected"},
		},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Records)

	data, err := os.ReadFile(filepath.Join(cfg.Reports.OutputDir, "counts.json"))
	require.NoError(t, err)
	var parsed struct {
		Summary struct {
			TotalErrors int            `json:"totalErrors"`
			BySeverity  map[string]int `json:"bySeverity"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, 5, parsed.Summary.TotalErrors)
	sum := 0
	for _, n := range parsed.Summary.BySeverity {
		sum += n
	}
	assert.Equal(t, 5, sum, "severity counts must sum to the total")
}

func TestRunScenario_AgentActionClassification(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:    "agent-fault",
		Actions: []FixtureAction{{Name: "search-photos", Fail: true}},
		Steps:   []Step{{Do: "invoke-action", Action: "search-photos"}},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, fault.SourceAgentAction, result.Violations[0].Source)
	assert.Equal(t, fault.CategoryAgentNative, result.Violations[0].Category)
	assert.Equal(t, fault.SeverityCritical, result.Violations[0].Severity)
}

func TestRunScenario_ScenarioFailOnOverridesConfig(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:   "strict",
		FailOn: "high",
		Steps:  []Step{{Do: "http-get", Status: 500}},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Passed, "a 500 is high severity and must fail a high gate")
	require.Len(t, result.Violations, 1)
	assert.Equal(t, fault.CategoryAPIIntegration, result.Violations[0].Category)
}

func TestRunScenario_AcknowledgedFaultPassesGateButStaysInReport(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:    "expected-failure",
		Actions: []FixtureAction{{Name: "flaky", Fail: true, Message: "known outage"}},
		Steps:   []Step{{Do: "invoke-action", Action: "flaky"}},
		Acknowledge: []Acknowledgment{
			{Category: "agent-native", MessageContains: "known outage"},
		},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
	assert.Equal(t, 1, result.Records, "acknowledged faults stay in the log")

	data, err := os.ReadFile(filepath.Join(cfg.Reports.OutputDir, "expected-failure.json"))
	require.NoError(t, err)
	var parsed struct {
		Summary struct {
			TotalErrors int `json:"totalErrors"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, 1, parsed.Summary.TotalErrors)
}

func TestRunScenario_ArtifactsEmittedOnFailure(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:    "failing",
		Actions: []FixtureAction{{Name: "boom", Panic: true, Message: "exploded"}},
		Steps:   []Step{{Do: "invoke-action", Action: "boom"}},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Passed)

	for _, ext := range []string{".json", ".txt", ".html"} {
		_, err := os.Stat(filepath.Join(cfg.Reports.OutputDir, "failing"+ext))
		assert.NoError(t, err, "missing %s artifact", ext)
	}
}

func TestRunScenario_CustomRulesFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classify.Rules = []classify.RuleSpec{{
		Name:            "downgrade-image-service",
		Priority:        100,
		MessageContains: "image-service",
		Category:        "api-integration",
		Severity:        "low",
	}}
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:  "custom-rule",
		Steps: []Step{{Do: "log-error", Message: "image-service degraded"}},
	}

	result, err := runner.RunScenario(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, result.Passed)

	records := resultRecords(t, cfg, "custom-rule")
	require.Len(t, records, 1)
	assert.Equal(t, "api-integration", records[0]["category"])
	assert.Equal(t, "low", records[0]["severity"])
}

func TestRunAll_ParallelRunsAreIsolated(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	scenarios := []*Scenario{
		{Name: "p1", Steps: []Step{{Do: "log-error", Message: "p1 fault"}}},
		{Name: "p2", Steps: []Step{{Do: "log-error", Message: "p2 fault"}, {Do: "log-error", Message: "p2 fault again"}}},
		{Name: "p3", Steps: []Step{{Do: "log-info", Message: "clean"}}},
	}

	results, err := runner.RunAll(context.Background(), scenarios, true)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results come back in input order with per-scenario counts intact.
	assert.Equal(t, "p1", results[0].Scenario)
	assert.Equal(t, 1, results[0].Records)
	assert.Equal(t, 2, results[1].Records)
	assert.Equal(t, 0, results[2].Records)

	ids := map[string]bool{}
	for _, r := range results {
		assert.False(t, ids[r.SessionID], "sessions must be unique per scenario")
		ids[r.SessionID] = true
	}
}

func TestRunScenario_StepErrorAborts(t *testing.T) {
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg)

	sc := &Scenario{
		Name:  "bad-sleep",
		Steps: []Step{{Do: "sleep", Duration: "not-a-duration"}},
	}

	_, err := runner.RunScenario(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
}

// resultRecords reads the errors array back out of the emitted JSON artifact.
func resultRecords(t *testing.T, cfg *config.Config, scenario string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.Reports.OutputDir, scenario+".json"))
	require.NoError(t, err)
	var parsed struct {
		Errors []map[string]any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	return parsed.Errors
}
