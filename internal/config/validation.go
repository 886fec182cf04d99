package config

import (
	"fmt"
	"time"
)

// Validate checks cross-field consistency after defaults were applied.
func (c *Config) Validate() error {
	if _, err := c.Gate.Threshold(); err != nil {
		return fmt.Errorf("gate.fail_on: %w", err)
	}

	for _, format := range c.Reports.Formats {
		switch format {
		case "json", "text", "html":
		default:
			return fmt.Errorf("reports.formats: unknown format %q (expected json, text, or html)", format)
		}
	}

	if _, err := c.CompiledRules(); err != nil {
		return fmt.Errorf("classify.rules: %w", err)
	}

	if c.Notify.Enabled && c.Notify.URL == "" {
		return fmt.Errorf("notify.url is required when notify.enabled is true")
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	if _, err := time.ParseDuration(c.Watch.Interval); err != nil {
		return fmt.Errorf("watch.interval: %w", err)
	}

	return nil
}

// WatchDebounce returns the parsed debounce duration. Call after Validate.
func (c *Config) WatchDebounce() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// WatchInterval returns the parsed schedule interval; zero disables periodic
// runs. Call after Validate.
func (c *Config) WatchInterval() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Interval)
	return d
}
