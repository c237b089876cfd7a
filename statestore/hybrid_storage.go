package statestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"miner-node/logging"
)

const pgConnectTimeout = 2 * time.Second

// HybridStorage uses PostgreSQL as primary storage with file-based fallback.
// Save: tries PG first (with lazy reconnection), falls back to file on error.
// Load: reads both and returns the checkpoint with the higher epoch, since a
// PG outage can leave newer checkpoints on the file side.
// History: PG when available, file otherwise.
type HybridStorage struct {
	pg            *PostgresStorage
	file          *FileStorage
	mu            sync.Mutex
	lastRetry     time.Time
	retryInterval time.Duration
}

func NewHybridStorage(pg *PostgresStorage, file *FileStorage, retryInterval time.Duration) *HybridStorage {
	return &HybridStorage{pg: pg, file: file, retryInterval: retryInterval}
}

// shouldAttemptConnect checks if reconnection should be attempted. When it
// returns true, lastRetry has been advanced and the caller owns the attempt.
func (h *HybridStorage) shouldAttemptConnect() (bool, *PostgresStorage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pg != nil {
		return false, h.pg
	}
	if time.Since(h.lastRetry) < h.retryInterval {
		return false, nil
	}
	h.lastRetry = time.Now()
	return true, nil
}

func (h *HybridStorage) saveConnection(pg *PostgresStorage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	logging.Info("PostgreSQL connection established", logging.Storage)
	h.pg = pg
}

// getOrConnectPg returns the current PostgresStorage or attempts to
// reconnect, rate-limited to one attempt per retryInterval.
func (h *HybridStorage) getOrConnectPg(ctx context.Context) *PostgresStorage {
	shouldAttempt, pg := h.shouldAttemptConnect()
	if !shouldAttempt {
		return pg
	}

	connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()

	newPg, err := NewPostgresStorage(connectCtx)
	if err != nil {
		logging.Debug("PostgreSQL reconnect failed", logging.Storage, "error", err.Error())
		return nil
	}

	h.saveConnection(newPg)
	return newPg
}

func (h *HybridStorage) currentPg() *PostgresStorage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pg
}

func (h *HybridStorage) Save(ctx context.Context, cp Checkpoint) error {
	if pg := h.getOrConnectPg(ctx); pg != nil {
		err := pg.Save(ctx, cp)
		if err == nil {
			return nil
		}
		logging.Warn("PostgreSQL save failed, falling back to file", logging.Storage,
			"epoch", cp.Epoch, "error", err.Error())
	}
	return h.file.Save(ctx, cp)
}

func (h *HybridStorage) Load(ctx context.Context) (*Checkpoint, error) {
	var pgCp *Checkpoint
	var pgErr error
	if pg := h.currentPg(); pg != nil {
		pgCp, pgErr = pg.Load(ctx)
		if pgErr != nil && !errors.Is(pgErr, ErrNotFound) {
			logging.Debug("PostgreSQL load failed, checking file", logging.Storage, "error", pgErr.Error())
		}
	}

	fileCp, fileErr := h.file.Load(ctx)

	switch {
	case pgCp != nil && fileCp != nil:
		if fileCp.Epoch > pgCp.Epoch {
			return fileCp, nil
		}
		return pgCp, nil
	case pgCp != nil:
		return pgCp, nil
	case fileCp != nil:
		return fileCp, nil
	}

	if pgErr != nil && !errors.Is(pgErr, ErrNotFound) {
		return nil, pgErr
	}
	if fileErr != nil && !errors.Is(fileErr, ErrNotFound) {
		return nil, fileErr
	}
	return nil, ErrNotFound
}

func (h *HybridStorage) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	if pg := h.currentPg(); pg != nil {
		out, err := pg.History(ctx, limit)
		if err == nil {
			return out, nil
		}
		logging.Debug("PostgreSQL history failed, checking file", logging.Storage, "error", err.Error())
	}
	return h.file.History(ctx, limit)
}

func (h *HybridStorage) Close() {
	if pg := h.currentPg(); pg != nil {
		pg.Close()
	}
}

var _ StateStorage = (*HybridStorage)(nil)
