package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/faultwatch/internal/fault"
	"git.home.luguber.info/inful/faultwatch/internal/harness"
)

// RunCmd implements the 'run' command: execute scenario files against a fresh
// capture session each and gate on the severity of what was captured.
type RunCmd struct {
	Scenarios []string `arg:"" help:"Scenario files or directories containing them" type:"path"`

	Parallel  bool   `short:"p" help:"Run scenarios concurrently"`
	FailOn    string `help:"Override the gate severity (low, medium, high, critical)"`
	OutputDir string `short:"o" help:"Override the report output directory"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config, root.Config != defaultConfigPath)
	if err != nil {
		return err
	}
	if r.FailOn != "" {
		if _, err := fault.ParseSeverity(r.FailOn); err != nil {
			return err
		}
		cfg.Gate.FailOn = r.FailOn
	}
	if r.OutputDir != "" {
		cfg.Reports.OutputDir = r.OutputDir
	}

	scenarios, err := harness.LoadScenarios(r.Scenarios)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenario files found in %v", r.Scenarios)
	}

	runner, cleanup, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	results, err := runner.RunAll(ctx, scenarios, r.Parallel)
	if err != nil {
		return err
	}

	gated := printResults(results)
	if gated > 0 {
		cleanup()
		os.Exit(2)
	}
	return nil
}

// printResults writes the per-scenario outcome to stdout and returns the
// number of scenarios that failed the gate.
func printResults(results []*harness.Result) int {
	gated := 0
	for _, res := range results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
			gated++
		}
		fmt.Printf("%s  %s  (%d captured, %d violations, %s)\n",
			status, res.Scenario, res.Records, len(res.Violations), res.Duration.Round(timePrecision))
		for _, v := range res.Violations {
			fmt.Printf("      [%s/%s] %s: %s\n", v.Severity, v.Category, v.Source, v.Message)
		}
		for _, p := range res.ArtifactPaths {
			fmt.Printf("      report: %s\n", p)
		}
	}

	fmt.Printf("\n%d scenario(s), %d passed, %d failed the gate\n",
		len(results), len(results)-gated, gated)
	return gated
}
