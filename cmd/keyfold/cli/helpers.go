package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/keyfold/keyfold/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// KEYFOLD_DATA_DIR env var, or ~/.keyfold as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("KEYFOLD_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.keyfold"
}

// openStore opens the configured database: SQLite in the data directory by
// default, or Postgres/MySQL when db.driver and db.dsn are set.
func openStore() (*store.Store, error) {
	driver := viper.GetString("db.driver")
	dsn := viper.GetString("db.dsn")
	if driver == store.DriverSQLite && dsn == "" {
		dsn = resolveDataDir()
	}
	return store.New(driver, dsn)
}

// newLogger builds the CLI logger writing to stderr.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
