// Package cli consolidates the initialization shared by cmd/noctambul
// and cmd/report-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"noctambul/internal/config"
	"noctambul/internal/storage"
)

// SetupLogger initializes structured logging and sets it as default.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting
// the process on failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the ledger store, exiting the process on failure.
func InitSQLite(logger *slog.Logger, dbPath, ownerEmail string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, ownerEmail)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
