package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/faultwatch/internal/harness"
)

// WatchCmd implements the 'watch' command: re-run the scenarios whenever a
// scenario file changes, and optionally on a fixed schedule. Gate failures
// are reported but do not stop the watcher.
type WatchCmd struct {
	Scenarios []string `arg:"" help:"Scenario files or directories containing them" type:"path"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, root.Config != defaultConfigPath)
	if err != nil {
		return err
	}

	debounce, err := time.ParseDuration(cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	interval, err := parseInterval(cfg.Watch.Interval)
	if err != nil {
		return fmt.Errorf("watch.interval: %w", err)
	}

	runner, cleanup, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loop := &watchLoop{runner: runner, paths: w.Scenarios, logger: g.Logger}
	loop.runOnce(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Warn("failed to close file watcher", "error", err)
		}
	}()
	for _, p := range watchRoots(w.Scenarios) {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	var scheduler gocron.Scheduler
	if interval > 0 {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { loop.runOnce(ctx) }),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic run: %w", err)
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Warn("failed to shut down scheduler", "error", err)
			}
		}()
		slog.Info("periodic runs scheduled", "interval", interval)
	}

	slog.Info("watching for scenario changes", "paths", w.Scenarios, "debounce", debounce)

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("scenario change detected", "file", event.Name, "op", event.Op.String())
			// Restart the quiet period on every event so a burst of writes
			// triggers a single re-run.
			if timer == nil {
				timer = time.AfterFunc(debounce, func() { loop.runOnce(ctx) })
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

// watchLoop serializes re-runs: a change arriving mid-run queues at the mutex
// instead of racing the run in flight.
type watchLoop struct {
	mu     sync.Mutex
	runner *harness.Runner
	paths  []string
	logger *slog.Logger
}

func (l *watchLoop) runOnce(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	scenarios, err := harness.LoadScenarios(l.paths)
	if err != nil {
		l.logger.Error("failed to load scenarios", "error", err)
		return
	}
	if len(scenarios) == 0 {
		l.logger.Warn("no scenario files found", "paths", l.paths)
		return
	}

	results, err := l.runner.RunAll(ctx, scenarios, false)
	if err != nil {
		l.logger.Error("run failed", "error", err)
		return
	}
	printResults(results)
}

// watchRoots maps the scenario arguments to watchable paths: directories are
// watched directly, files via their parent so editor rename-and-replace saves
// still register.
func watchRoots(paths []string) []string {
	seen := map[string]bool{}
	var roots []string
	for _, p := range paths {
		root := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			root = filepath.Dir(p)
		}
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots
}

// parseInterval parses the periodic-run interval; "0" disables it.
func parseInterval(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("interval must not be negative")
	}
	return d, nil
}
