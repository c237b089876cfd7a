package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"miner-node/logging"

	_ "modernc.org/sqlite"
)

const createSqliteTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
    epoch INTEGER PRIMARY KEY,
    saved_at TEXT NOT NULL,
    data BLOB NOT NULL
)`

// SqliteStorage keeps checkpoints in a single-file sqlite database, one row
// per epoch.
type SqliteStorage struct {
	db *sql.DB
}

func NewSqliteStorage(path string) (*SqliteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(createSqliteTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logging.Info("Sqlite storage initialized", logging.Storage, "path", path)
	return &SqliteStorage{db: db}, nil
}

func (s *SqliteStorage) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	query := `
		INSERT INTO checkpoints (epoch, saved_at, data) VALUES (?, ?, ?)
		ON CONFLICT (epoch) DO UPDATE SET saved_at = excluded.saved_at, data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, cp.Epoch, cp.SavedAt.UTC().Format("2006-01-02T15:04:05Z"), data); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}

	logging.Debug("Saved checkpoint in sqlite", logging.Storage, "epoch", cp.Epoch)
	return nil
}

func (s *SqliteStorage) Load(ctx context.Context) (*Checkpoint, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM checkpoints ORDER BY epoch DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *SqliteStorage) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM checkpoints ORDER BY epoch DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			logging.Warn("Skipping unreadable checkpoint row", logging.Storage, "error", err.Error())
			continue
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

func (s *SqliteStorage) Close() {
	s.db.Close()
}

var _ StateStorage = (*SqliteStorage)(nil)
