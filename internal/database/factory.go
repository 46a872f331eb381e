package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dreamlog/internal/config"
	"dreamlog/internal/database/migrations"
	"dreamlog/internal/dream"
)

// NewEntryStoreFromConfig creates an EntryStore implementation based on the
// database config type. The schema is migrated to the latest version on open.
func NewEntryStoreFromConfig(cfg config.DatabaseConfig) (dream.EntryStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return open(filepath.Join(cfg.DataDir, "dreams.db"))
	case "memory":
		return open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func open(path string) (*SQLiteStore, error) {
	store, err := NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(store.DB()); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return store, nil
}
