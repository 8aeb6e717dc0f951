package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/refbuilder/internal/logfields"
)

// envFiles are loaded in order; earlier files and the process environment win.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env files from the working directory and from dir. Missing
// files are skipped; existing environment variables are never overwritten.
func loadEnvFiles(dir string) {
	seen := make(map[string]bool)
	for _, base := range []string{".", dir} {
		for _, name := range envFiles {
			path := filepath.Clean(filepath.Join(base, name))
			if seen[path] {
				continue
			}
			seen[path] = true
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				slog.Warn("Failed to load env file", logfields.Path(path), logfields.Error(err))
				continue
			}
			slog.Debug("Loaded environment variables", logfields.Path(path))
		}
	}
}
