package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/faultwatch/internal/artifactstore"
)

// ReportCmd implements the 'report' command: browse the artifact archive and
// re-export stored reports without re-running anything.
type ReportCmd struct {
	Session string `short:"s" help:"Session ID to export artifacts for; omit to list archived sessions"`
	Output  string `short:"o" help:"Directory to write exported artifacts to" default:"."`
}

func (r *ReportCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, root.Config != defaultConfigPath)
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return fmt.Errorf("the artifact store is disabled; enable store.enabled in %s", root.Config)
	}

	store, err := artifactstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close artifact store", "error", err)
		}
	}()

	ctx := context.Background()
	if r.Session == "" {
		return listSessions(ctx, store)
	}
	return exportSession(ctx, store, r.Session, r.Output)
}

func listSessions(ctx context.Context, store artifactstore.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no archived sessions")
		return nil
	}
	for _, id := range sessions {
		artifacts, err := store.GetBySession(ctx, id)
		if err != nil {
			return fmt.Errorf("read session %s: %w", id, err)
		}
		line := id
		if len(artifacts) > 0 {
			line = fmt.Sprintf("%s  %s  %s  (%d artifacts)",
				id, artifacts[0].CreatedAt.Format("2006-01-02 15:04:05"), artifacts[0].Scenario, len(artifacts))
		}
		fmt.Println(line)
	}
	return nil
}

func exportSession(ctx context.Context, store artifactstore.Store, sessionID, outputDir string) error {
	artifacts, err := store.GetBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("no artifacts archived for session %s", sessionID)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, a := range artifacts {
		name := fmt.Sprintf("%s-%s.%s", a.Scenario, a.SessionID, extensionFor(a.Format))
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, a.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Println(path)
	}
	return nil
}

func extensionFor(format string) string {
	switch format {
	case "html":
		return "html"
	case "text":
		return "txt"
	default:
		return "json"
	}
}
