package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/storage"
	"tally/internal/store"
)

// Open creates the configured ledger backend.
func Open(config Config, logger *slog.Logger) (Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	default:
		s, err := store.Open(config.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("initialize json backend: %w", err)
		}
		s.SetFlushDelay(config.FlushDelay)
		logger.Info("Initialized JSON snapshot backend",
			"path", config.SnapshotPath, "flush_delay", config.FlushDelay)
		return s, nil
	}
}
