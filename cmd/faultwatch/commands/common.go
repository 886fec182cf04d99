package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/faultwatch/internal/config"
)

const (
	defaultConfigPath = "faultwatch.yaml"
	timePrecision     = time.Millisecond
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"faultwatch.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run    RunCmd    `cmd:"" help:"Run scenario files and gate on captured fault severity"`
	Watch  WatchCmd  `cmd:"" help:"Re-run scenarios on file change or on a schedule"`
	Report ReportCmd `cmd:"" help:"Re-render archived artifacts for a stored session"`
	Init   InitCmd   `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the config file, falling back to built-in defaults when
// the default file is simply absent. An explicitly named missing file is an
// error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		slog.Debug("no configuration file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return config.Load(path)
}
