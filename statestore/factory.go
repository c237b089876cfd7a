package statestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"miner-node/logging"
	"miner-node/minerconfig"
)

// New creates a StateStorage from config. An explicit backend forces that
// backend; the default "auto" probes the standard PGHOST env var and uses
// HybridStorage (PG primary + file fallback) when present, file storage
// otherwise. If PostgreSQL is not accessible at startup, HybridStorage will
// retry lazily on Save operations.
func New(ctx context.Context, cfg minerconfig.StorageConfig) (StateStorage, error) {
	switch cfg.Backend {
	case "", "auto":
		return newAuto(ctx, cfg.Dir), nil
	case "file":
		return NewFileStorage(cfg.Dir), nil
	case "sqlite":
		return NewSqliteStorage(filepath.Join(cfg.Dir, "checkpoints.db"))
	case "postgres":
		return NewPostgresStorage(ctx)
	case "hybrid":
		return newHybrid(ctx, cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newAuto(ctx context.Context, dir string) StateStorage {
	if os.Getenv("PGHOST") == "" {
		logging.Info("PGHOST not set, using file storage only", logging.Storage)
		return NewFileStorage(dir)
	}
	return newHybrid(ctx, dir)
}

func newHybrid(ctx context.Context, dir string) StateStorage {
	fileStorage := NewFileStorage(dir)

	retryInterval, err := time.ParseDuration(os.Getenv("PG_RETRY_INTERVAL"))
	if err != nil || retryInterval <= 0 {
		retryInterval = 240 * time.Second
	}

	pgStorage, err := NewPostgresStorage(ctx)
	if err != nil {
		logging.Warn("PostgreSQL connection failed, will retry lazily on Save", logging.Storage,
			"host", os.Getenv("PGHOST"), "error", err.Error())
		return NewHybridStorage(nil, fileStorage, retryInterval)
	}

	logging.Info("Using PostgreSQL with file fallback", logging.Storage, "host", os.Getenv("PGHOST"))
	return NewHybridStorage(pgStorage, fileStorage, retryInterval)
}
