package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/faultwatch/internal/artifactstore"
	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/classify"
	"git.home.luguber.info/inful/faultwatch/internal/config"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
	"git.home.luguber.info/inful/faultwatch/internal/intercept"
	"git.home.luguber.info/inful/faultwatch/internal/metrics"
	"git.home.luguber.info/inful/faultwatch/internal/notify"
	"git.home.luguber.info/inful/faultwatch/internal/observability"
	"git.home.luguber.info/inful/faultwatch/internal/report"
)

// Result summarizes one scenario run.
type Result struct {
	Scenario      string
	SessionID     string
	Passed        bool
	Records       int
	Violations    []fault.Record
	ArtifactPaths []string
	Duration      time.Duration
}

// Runner executes scenarios. Each run builds its own manager, fixture
// registry, and fault server, so concurrent runs share no state.
type Runner struct {
	cfg       *config.Config
	rules     []classify.Rule
	recorder  metrics.Recorder
	store     artifactstore.Store
	publisher notify.Publisher
	logger    *slog.Logger
}

// NewRunner builds a runner from validated configuration.
func NewRunner(cfg *config.Config) (*Runner, error) {
	rules, err := cfg.CompiledRules()
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		rules:    rules,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}, nil
}

// SetRecorder injects a metrics recorder.
func (r *Runner) SetRecorder(rec metrics.Recorder) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
}

// SetStore injects the optional artifact archive.
func (r *Runner) SetStore(s artifactstore.Store) { r.store = s }

// SetPublisher injects the optional run-outcome publisher.
func (r *Runner) SetPublisher(p notify.Publisher) { r.publisher = p }

// RunAll executes the scenarios, optionally in parallel, and returns results
// in input order.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario, parallel bool) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	errs := make([]error, len(scenarios))

	if !parallel {
		for i, sc := range scenarios {
			results[i], errs[i] = r.RunScenario(ctx, sc)
		}
	} else {
		var wg sync.WaitGroup
		for i, sc := range scenarios {
			wg.Add(1)
			go func(i int, sc *Scenario) {
				defer wg.Done()
				results[i], errs[i] = r.RunScenario(ctx, sc)
			}(i, sc)
		}
		wg.Wait()
	}

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", scenarios[i].Name, err)
		}
	}
	return results, nil
}

// RunScenario executes one scenario against a fresh capture session and emits
// artifacts whether the gate passes or not.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) (*Result, error) {
	started := time.Now()

	opts := r.cfg.Capture.Options()
	// Injected panics are part of the script; the harness must outlive them.
	opts.SuppressPanics = true

	classifier := classify.New(r.rules...)
	mgr := capture.NewManager(opts, classifier)
	mgr.SetLogger(r.logger)
	mgr.SetRecorder(r.recorder)

	server := newFaultServer()
	defer server.close()

	suite := intercept.NewSuite(opts, intercept.Collaborators{
		LogHandler: r.logger.Handler(),
		Transport:  http.DefaultTransport,
		Actions:    buildRegistry(sc.Actions),
		OnTaskError: func(task string, err error) {
			r.logger.Debug("task error delivered to host handler", "task", task, "error", err)
		},
	})

	if err := mgr.Initialize(suite.Interceptors()...); err != nil {
		return nil, fmt.Errorf("initialize capture: %w", err)
	}
	defer mgr.Teardown()

	// Fresh session for this scenario; the manager is new, but the explicit
	// reset keeps the isolation protocol uniform for reused managers too.
	sessionID := mgr.Reset()
	ctx = observability.WithSessionID(observability.WithScenario(ctx, sc.Name), sessionID)
	observability.InfoContext(ctx, "scenario started", slog.Int("steps", len(sc.Steps)))

	env := &stepEnv{
		logger: slog.New(suite.Handler()),
		client: &http.Client{Transport: suite.Transport(), Timeout: 30 * time.Second},
		reg:    suite.Registry(),
		runner: suite.Runner(),
		server: server,
	}
	for i, step := range sc.Steps {
		if err := env.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Do, err)
		}
	}
	env.runner.Wait()

	records := mgr.Snapshot()

	threshold, err := r.threshold(sc)
	if err != nil {
		return nil, err
	}
	violations := mgr.Collect(fault.Filter{MinSeverity: &threshold})
	unacknowledged := applyAcknowledgments(violations, sc.Acknowledge)

	result := &Result{
		Scenario:   sc.Name,
		SessionID:  sessionID,
		Passed:     len(unacknowledged) == 0,
		Records:    len(records),
		Violations: unacknowledged,
		Duration:   time.Since(started),
	}

	// Artifacts are emitted pass or fail.
	rep := report.Build(sessionID, records)
	if err := r.emitArtifacts(ctx, sc, rep, result); err != nil {
		return nil, err
	}

	r.recorder.ObserveScenarioDuration(sc.Name, result.Duration)
	if result.Passed {
		r.recorder.IncRunOutcome(metrics.RunPassed)
	} else {
		r.recorder.IncRunOutcome(metrics.RunGated)
	}
	r.publishOutcome(rep, result)

	observability.InfoContext(ctx, "scenario finished",
		slog.Bool("passed", result.Passed),
		slog.Int("records", result.Records),
		slog.Int("violations", len(result.Violations)),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// threshold resolves the gate severity, preferring the scenario override.
func (r *Runner) threshold(sc *Scenario) (fault.Severity, error) {
	if sc.FailOn != "" {
		return fault.ParseSeverity(sc.FailOn)
	}
	return r.cfg.Gate.Threshold()
}

// emitArtifacts renders every configured format to the output directory and,
// when an archive is attached, stores the rendered content as well.
func (r *Runner) emitArtifacts(ctx context.Context, sc *Scenario, rep *fault.Report, result *Result) error {
	if err := os.MkdirAll(r.cfg.Reports.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	for _, format := range r.cfg.Reports.Formats {
		gen, err := report.New(format, r.cfg.Reports.SortBySeverity)
		if err != nil {
			return err
		}
		content, err := gen.Generate(rep)
		if err != nil {
			return fmt.Errorf("generate %s report: %w", format, err)
		}

		path := filepath.Join(r.cfg.Reports.OutputDir, sc.Name+gen.Extension())
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s report: %w", format, err)
		}
		result.ArtifactPaths = append(result.ArtifactPaths, path)

		if r.store != nil {
			err := r.store.Append(ctx, artifactstore.Artifact{
				SessionID: rep.SessionID,
				Scenario:  sc.Name,
				Format:    format,
				Content:   []byte(content),
				Metadata: map[string]string{
					"passed": fmt.Sprintf("%t", result.Passed),
				},
			})
			if err != nil {
				return fmt.Errorf("archive %s report: %w", format, err)
			}
		}
	}
	return nil
}

// publishOutcome announces the run when a publisher is attached. Failures
// are logged, not fatal: notification is best effort.
func (r *Runner) publishOutcome(rep *fault.Report, result *Result) {
	if r.publisher == nil {
		return
	}
	err := r.publisher.PublishRunOutcome(notify.RunOutcome{
		Scenario:    result.Scenario,
		SessionID:   result.SessionID,
		Passed:      result.Passed,
		TotalErrors: rep.Summary.TotalErrors,
		BySeverity:  rep.Summary.BySeverity,
		Violations:  len(result.Violations),
		FinishedAt:  time.Now(),
	})
	if err != nil {
		r.logger.Warn("failed to publish run outcome", "scenario", result.Scenario, "error", err)
	}
}

// stepEnv holds the per-scenario wrapped collaborators steps execute against.
type stepEnv struct {
	logger *slog.Logger
	client *http.Client
	reg    *intercept.ObservedRegistry
	runner *intercept.Runner
	server *faultServer
}

func (e *stepEnv) execute(ctx context.Context, step Step) error {
	switch step.Do {
	case "log-error":
		e.logger.Error(step.Message)
	case "log-info":
		e.logger.Info(step.Message)
	case "http-get":
		return e.httpGet(ctx, step)
	case "invoke-action":
		// The fixture's error is the fault under test; the scenario is its
		// own caller and deliberately ignores it.
		_, _ = e.reg.Invoke(ctx, step.Action, step.Params)
	case "run-task":
		msg := step.Error
		if msg == "" {
			msg = fmt.Sprintf("task %s failed", step.Task)
		}
		e.runner.Go(ctx, step.Task, func(context.Context) error {
			return fmt.Errorf("%s", msg)
		})
	case "panic-task":
		msg := step.Message
		if msg == "" {
			msg = fmt.Sprintf("task %s panicked", step.Task)
		}
		e.runner.Go(ctx, step.Task, func(context.Context) error {
			panic(msg)
		})
	case "sleep":
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return fmt.Errorf("bad sleep duration: %w", err)
		}
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unknown step type %q", step.Do)
	}
	return nil
}

func (e *stepEnv) httpGet(ctx context.Context, step Step) error {
	url := step.URL
	switch {
	case url != "":
	case step.FailTransport:
		url = e.server.deadURL()
	case step.Status != 0:
		url = e.server.statusURL(step.Status)
	default:
		url = e.server.statusURL(http.StatusOK)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		// Transport failures are the injected fault; the interceptor has
		// already observed them.
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
