// Package cli provides common initialization for the tally command:
// environment loading, logging, configuration, and ledger setup.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/backend"
	"tally/internal/backup"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/scan"
	"tally/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging and installs it as the
// process default.
func SetupLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("TALLY_LOG_LEVEL"))
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenService wires the configured backend, backup target, and assistant
// into a tracker service. The assistant is optional and only attached
// when withAssistant is set, so plain commands never touch the network.
func OpenService(ctx context.Context, logger *log.Logger, cfg *config.Config, withAssistant bool) (*services.TrackerService, error) {
	ledger, err := backend.Open(backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SnapshotPath: cfg.SnapshotPath,
		FlushDelay:   cfg.FlushDelay,
		SQLiteDBPath: cfg.SQLiteDBPath,
	}, logger.Logger)
	if err != nil {
		return nil, err
	}

	opts := services.Options{PageSize: cfg.PageSize}

	if cfg.DriveFolderID != "" {
		creds, err := cfg.DriveCredentials()
		if err != nil {
			ledger.Close()
			return nil, err
		}
		target, err := backup.NewDriveTarget(ctx, creds, cfg.DriveFolderID, cfg.BackupKeep)
		if err != nil {
			ledger.Close()
			return nil, err
		}
		opts.Backup = target
		logger.Info("Using Drive backup target", "folder_id", cfg.DriveFolderID)
	} else {
		target, err := backup.NewLocalTarget(cfg.BackupDir, cfg.BackupKeep)
		if err != nil {
			ledger.Close()
			return nil, err
		}
		opts.Backup = target
	}

	if withAssistant {
		assistant, err := scan.New(ctx, cfg.GeminiModel)
		if err != nil {
			ledger.Close()
			return nil, err
		}
		opts.Assistant = assistant
	}

	return services.NewTrackerService(ledger, opts), nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
