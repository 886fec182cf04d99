// Package config loads, defaults, and validates the faultwatch configuration
// file. Environment variables referenced in the YAML are expanded at load
// time; a .env file, when present, seeds the process environment without
// overriding it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/faultwatch/internal/capture"
	"git.home.luguber.info/inful/faultwatch/internal/classify"
	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// Config is the root configuration.
type Config struct {
	Capture  CaptureConfig  `yaml:"capture"`
	Classify ClassifyConfig `yaml:"classify"`
	Gate     GateConfig     `yaml:"gate"`
	Reports  ReportsConfig  `yaml:"reports"`
	Store    StoreConfig    `yaml:"store"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
}

// CaptureConfig selects the observed fault surfaces. Unset flags default to
// true; only an explicit false disables a surface.
type CaptureConfig struct {
	LogErrors           *bool `yaml:"log_errors"`
	NetworkErrors       *bool `yaml:"network_errors"`
	UnhandledRejections *bool `yaml:"unhandled_rejections"`
	AgentErrors         *bool `yaml:"agent_errors"`
	SuppressPanics      bool  `yaml:"suppress_panics"`
}

// Options converts the config block to capture options.
func (c CaptureConfig) Options() capture.Options {
	opts := capture.DefaultOptions()
	if c.LogErrors != nil {
		opts.CaptureLogErrors = *c.LogErrors
	}
	if c.NetworkErrors != nil {
		opts.CaptureNetworkErrors = *c.NetworkErrors
	}
	if c.UnhandledRejections != nil {
		opts.CaptureUnhandledRejections = *c.UnhandledRejections
	}
	if c.AgentErrors != nil {
		opts.CaptureAgentErrors = *c.AgentErrors
	}
	opts.SuppressPanics = c.SuppressPanics
	return opts
}

// ClassifyConfig holds caller classification rules, evaluated ahead of the
// built-in defaults.
type ClassifyConfig struct {
	Rules []classify.RuleSpec `yaml:"rules"`
}

// GateConfig controls the severity gate.
type GateConfig struct {
	// FailOn is the lowest severity that fails a run ("low", "medium",
	// "high", or "critical"). Defaults to critical.
	FailOn string `yaml:"fail_on"`
}

// Threshold parses the gate severity.
func (g GateConfig) Threshold() (fault.Severity, error) {
	return fault.ParseSeverity(g.FailOn)
}

// ReportsConfig controls artifact emission.
type ReportsConfig struct {
	Formats        []string `yaml:"formats"`
	OutputDir      string   `yaml:"output_dir"`
	SortBySeverity bool     `yaml:"sort_by_severity"`
}

// StoreConfig controls the optional artifact archive.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// NotifyConfig controls the optional NATS run-outcome publisher.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after a file change before a re-run,
	// as a Go duration string.
	Debounce string `yaml:"debounce"`
	// Interval additionally schedules periodic runs ("0" disables them).
	Interval string `yaml:"interval"`
}

// Load reads, expands, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// CompiledRules compiles the declarative classification rules.
func (c *Config) CompiledRules() ([]classify.Rule, error) {
	return classify.CompileSpecs(c.Classify.Rules)
}
