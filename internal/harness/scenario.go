// Package harness drives scripted scenario runs against an isolated capture
// session: reset, execute steps (including deliberate fault injection), gate
// on severity, and emit report artifacts pass or fail. Parallel scenarios
// each own an independent manager; nothing is shared between runs.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
)

// Scenario is one scripted interaction sequence loaded from YAML.
type Scenario struct {
	Name string `yaml:"name"`

	// FailOn overrides the configured gate threshold for this scenario.
	FailOn string `yaml:"fail_on,omitempty"`

	// Actions declares the fixture actions registered for this run.
	Actions []FixtureAction `yaml:"actions,omitempty"`

	// Steps execute in order.
	Steps []Step `yaml:"steps"`

	// Acknowledge lists errors the scenario expects. Acknowledged faults are
	// still captured and reported; they just don't fail the gate.
	Acknowledge []Acknowledgment `yaml:"acknowledge,omitempty"`
}

// FixtureAction declares a named action registered in the scenario's
// registry. Failing fixtures reproduce agent-action faults on demand.
type FixtureAction struct {
	Name    string `yaml:"name"`
	Fail    bool   `yaml:"fail,omitempty"`
	Panic   bool   `yaml:"panic,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Step is one scripted interaction. Do selects the step type; the remaining
// fields apply per type.
type Step struct {
	// Do is one of: log-error, log-info, http-get, invoke-action, run-task,
	// panic-task, sleep.
	Do string `yaml:"do"`

	// log-error / log-info
	Message string `yaml:"message,omitempty"`

	// http-get: either an explicit URL or an injected status served by the
	// scenario's local fault server. FailTransport injects a connection-level
	// failure instead.
	URL           string `yaml:"url,omitempty"`
	Status        int    `yaml:"status,omitempty"`
	FailTransport bool   `yaml:"fail_transport,omitempty"`

	// invoke-action
	Action string         `yaml:"action,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`

	// run-task / panic-task
	Task  string `yaml:"task,omitempty"`
	Error string `yaml:"error,omitempty"`

	// sleep
	Duration string `yaml:"duration,omitempty"`
}

// Acknowledgment budgets expected faults out of the gate.
type Acknowledgment struct {
	Category string `yaml:"category,omitempty"`
	Source   string `yaml:"source,omitempty"`
	// MessageContains narrows the match to faults whose message contains the
	// given substring.
	MessageContains string `yaml:"message_contains,omitempty"`
	// Count is the number of matching faults excused. Defaults to 1.
	Count int `yaml:"count,omitempty"`
}

// matches reports whether the acknowledgment covers the record.
func (a Acknowledgment) matches(r fault.Record) bool {
	if a.Category != "" && string(r.Category) != a.Category {
		return false
	}
	if a.Source != "" && string(r.Source) != a.Source {
		return false
	}
	if a.MessageContains != "" && !strings.Contains(r.Message, a.MessageContains) {
		return false
	}
	return true
}

var validSteps = map[string]bool{
	"log-error":     true,
	"log-info":      true,
	"http-get":      true,
	"invoke-action": true,
	"run-task":      true,
	"panic-task":    true,
	"sleep":         true,
}

// Validate checks the scenario for structural problems before running it.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario requires a name")
	}
	if s.FailOn != "" {
		if _, err := fault.ParseSeverity(s.FailOn); err != nil {
			return fmt.Errorf("scenario %s: fail_on: %w", s.Name, err)
		}
	}
	declared := map[string]bool{}
	for _, a := range s.Actions {
		if a.Name == "" {
			return fmt.Errorf("scenario %s: fixture action requires a name", s.Name)
		}
		declared[a.Name] = true
	}
	for i, step := range s.Steps {
		if !validSteps[step.Do] {
			return fmt.Errorf("scenario %s: step %d: unknown step type %q", s.Name, i+1, step.Do)
		}
		if step.Do == "invoke-action" && !declared[step.Action] {
			return fmt.Errorf("scenario %s: step %d: action %q is not declared in actions", s.Name, i+1, step.Action)
		}
	}
	return nil
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenarios loads every scenario from the given paths. Directories are
// scanned non-recursively for .yaml/.yml files.
func LoadScenarios(paths []string) ([]*Scenario, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read scenario directory %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext == ".yaml" || ext == ".yml" {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)

	scenarios := make([]*Scenario, 0, len(files))
	seen := map[string]string{}
	for _, f := range files {
		sc, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", sc.Name, prev, f)
		}
		seen[sc.Name] = f
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
