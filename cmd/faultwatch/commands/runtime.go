package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/faultwatch/internal/artifactstore"
	"git.home.luguber.info/inful/faultwatch/internal/config"
	"git.home.luguber.info/inful/faultwatch/internal/harness"
	"git.home.luguber.info/inful/faultwatch/internal/metrics"
	"git.home.luguber.info/inful/faultwatch/internal/notify"
)

// buildRunner wires the harness runner with the optional collaborators the
// config enables (artifact archive, metrics endpoint, NATS publisher). The
// returned cleanup must run after the last scenario.
func buildRunner(cfg *config.Config) (*harness.Runner, func(), error) {
	runner, err := harness.NewRunner(cfg)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	var once sync.Once
	// Idempotent: run paths that os.Exit after a gate failure clean up
	// explicitly while the deferred call still covers error returns.
	cleanup := func() {
		once.Do(func() {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		})
	}

	if cfg.Store.Enabled {
		store, err := artifactstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open artifact store: %w", err)
		}
		runner.SetStore(store)
		cleanups = append(cleanups, func() {
			if err := store.Close(); err != nil {
				slog.Warn("failed to close artifact store", "error", err)
			}
		})
	}

	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		runner.SetRecorder(metrics.NewPrometheusRecorder(reg))
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metrics.HTTPHandler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
		slog.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
		cleanups = append(cleanups, func() { _ = srv.Close() })
	}

	if cfg.Notify.Enabled {
		publisher, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect notifier: %w", err)
		}
		runner.SetPublisher(publisher)
		cleanups = append(cleanups, func() {
			if err := publisher.Close(); err != nil {
				slog.Warn("failed to close notifier", "error", err)
			}
		})
	}

	return runner, cleanup, nil
}
