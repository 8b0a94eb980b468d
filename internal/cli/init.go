// Package cli holds the start-up steps shared by cmd/kakeibo and
// cmd/kakeibo-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/storage"
)

// LoadEnvFile loads .env files for local development. ENV_FILE may name a
// different file. A missing file is not an error; variables already set in
// the environment win.
func LoadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Bad values fall back to INFO and text.
func SetupLogger(level, format, component string) *log.Logger {
	lvl, levelErr := log.ParseLevel(level)
	f, formatErr := log.ParseFormat(format)
	logger := log.New(log.Config{
		Level:     lvl,
		Format:    f,
		Output:    os.Stdout,
		Component: component,
	})
	log.SetDefault(logger)
	if err := errors.Join(levelErr, formatErr); err != nil {
		logger.Warn("Invalid logging settings, using defaults", "error", err)
	}
	return logger
}

// LoadConfig loads the configuration and checks it with validate.
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite opens the sqlite database and applies migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository at %s: %w", dbPath, err)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
