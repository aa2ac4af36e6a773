// Package storage selects the usage ledger backend.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/storage/file"
	"github.com/davidbz/draftlock/internal/storage/redis"
	"github.com/davidbz/draftlock/internal/storage/sqlite"
)

// Supported backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config selects and locates the ledger backend.
type Config struct {
	Backend string `env:"LEDGER_BACKEND" envDefault:"file"`
	// Path is the JSON file or SQLite database path. Empty selects a file in
	// the user's config directory.
	Path  string `env:"LEDGER_PATH"`
	Redis redis.Config
}

// NewLedgerStore opens the configured backend. The returned func releases it.
func NewLedgerStore(cfg *Config) (domain.LedgerStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case BackendFile, "":
		path, err := resolvePath(cfg.Path, file.FileName)
		if err != nil {
			return nil, nil, err
		}
		return file.NewStore(path), noop, nil

	case BackendRedis:
		client := redis.NewClient(&cfg.Redis)
		return redis.NewStore(client, cfg.Redis.Key), client.Close, nil

	case BackendSQLite:
		path, err := resolvePath(cfg.Path, "usage_ledger.db")
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend: %q", cfg.Backend)
	}
}

func resolvePath(path, name string) (string, error) {
	if path != "" {
		return path, nil
	}
	return file.DefaultPathFor(name)
}
