//go:build prod

package database

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// GetDefaultDBPath returns the database path for production mode.
// In production, the database is stored in the user's config directory.
func GetDefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Warn().Err(err).Msg("failed to get user config dir, using fallback")
		return "chatvault.db"
	}

	appDir := filepath.Join(configDir, "chatvault")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", appDir).Msg("failed to create app config dir, using fallback")
		return "chatvault.db"
	}

	return filepath.Join(appDir, "chatvault.db")
}

func IsDevelopment() bool {
	return false
}
