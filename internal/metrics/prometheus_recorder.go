package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	captured         *prom.CounterVec
	dropped          *prom.CounterVec
	scenarioDuration *prom.HistogramVec
	runOutcome       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.captured = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultwatch",
			Name:      "faults_captured_total",
			Help:      "Captured fault records by source, category, and severity",
		}, []string{"source", "category", "severity"})
		pr.dropped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultwatch",
			Name:      "captures_dropped_total",
			Help:      "Capture calls ignored outside the active session state",
		}, []string{"reason"})
		pr.scenarioDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "faultwatch",
			Name:      "scenario_duration_seconds",
			Help:      "Duration of individual scenario runs",
			Buckets:   prom.DefBuckets,
		}, []string{"scenario"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "faultwatch",
			Name:      "run_outcomes_total",
			Help:      "Scenario run outcomes by gate result",
		}, []string{"outcome"})
		reg.MustRegister(pr.captured, pr.dropped, pr.scenarioDuration, pr.runOutcome)
	})
	return pr
}

func (p *PrometheusRecorder) IncCaptured(source, category, severity string) {
	if p == nil || p.captured == nil {
		return
	}
	p.captured.WithLabelValues(source, category, severity).Inc()
}

func (p *PrometheusRecorder) IncDropped(reason string) {
	if p == nil || p.dropped == nil {
		return
	}
	p.dropped.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ObserveScenarioDuration(scenario string, d time.Duration) {
	if p == nil || p.scenarioDuration == nil {
		return
	}
	p.scenarioDuration.WithLabelValues(scenario).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}
