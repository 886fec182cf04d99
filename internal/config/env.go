package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// loadEnvFiles seeds the process environment from .env files. Existing
// environment variables always win; a missing file is not an error.
func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("loaded environment variables", "file", path)
		}
	}
}
