package config

// applyDefaults fills unset fields with working values so a minimal (or
// empty) config file yields a runnable setup.
func (c *Config) applyDefaults() {
	if c.Gate.FailOn == "" {
		c.Gate.FailOn = "critical"
	}
	if len(c.Reports.Formats) == 0 {
		c.Reports.Formats = []string{"json", "text", "html"}
	}
	if c.Reports.OutputDir == "" {
		c.Reports.OutputDir = "./faultwatch-reports"
	}
	if c.Store.Path == "" {
		c.Store.Path = "faultwatch.db"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9464"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "faultwatch.runs"
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
	if c.Watch.Interval == "" {
		c.Watch.Interval = "0"
	}
}
