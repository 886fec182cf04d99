package config

import (
	"fmt"
	"os"
)

const starterConfig = `# faultwatch configuration
capture:
  log_errors: true
  network_errors: true
  unhandled_rejections: true
  agent_errors: true
  suppress_panics: false

gate:
  # Lowest severity that fails a run: low, medium, high, or critical.
  fail_on: critical

reports:
  formats: [json, text, html]
  output_dir: ./faultwatch-reports
  sort_by_severity: false

# Custom classification rules run ahead of the built-in defaults.
# classify:
#   rules:
#     - name: flaky-image-service
#       priority: 100
#       message_contains: "image-service"
#       category: api-integration
#       severity: low

# Archive emitted artifacts in SQLite for the report command.
store:
  enabled: false
  path: faultwatch.db

metrics:
  enabled: false
  listen: ":9464"

# Publish run outcomes to NATS.
notify:
  enabled: false
  url: nats://localhost:4222
  subject: faultwatch.runs

watch:
  debounce: 2s
  interval: "0"
`

// Init writes a commented starter configuration file.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
