// Package metrics defines observability hooks for the capture framework and
// the scenario harness. Components receive a Recorder by injection and default
// to NoopRecorder, so metrics are zero-cost until a real implementation is
// wired in.
package metrics

import "time"

// RunOutcomeLabel enumerates scenario run outcomes for counters.
type RunOutcomeLabel string

const (
	RunPassed RunOutcomeLabel = "passed"
	RunGated  RunOutcomeLabel = "gated"
	RunFailed RunOutcomeLabel = "failed"
)

// Recorder defines metrics hooks for fault capture and scenario runs.
// Implementations must be safe for nil receivers so optional injection never
// needs nil checks at call sites.
type Recorder interface {
	// IncCaptured counts one stored fault record by its classification.
	IncCaptured(source, category, severity string)
	// IncDropped counts capture calls ignored outside the Active state.
	IncDropped(reason string)
	// ObserveScenarioDuration records wall time for one scenario run.
	ObserveScenarioDuration(scenario string, d time.Duration)
	// IncRunOutcome counts scenario outcomes by gate result.
	IncRunOutcome(outcome RunOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCaptured(string, string, string)            {}
func (NoopRecorder) IncDropped(string)                             {}
func (NoopRecorder) ObserveScenarioDuration(string, time.Duration) {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)                 {}
