package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"miner-node/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createPostgresTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
    epoch BIGINT PRIMARY KEY,
    saved_at TIMESTAMPTZ NOT NULL,
    data BYTEA NOT NULL
)`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage using standard libpq env vars.
// Environment variables: PGHOST, PGPORT, PGDATABASE, PGUSER, PGPASSWORD
func NewPostgresStorage(ctx context.Context) (*PostgresStorage, error) {
	// pgxpool.New automatically reads from environment variables
	pool, err := pgxpool.New(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStorage{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logging.Info("PostgreSQL storage initialized", logging.Storage)
	return s, nil
}

func (s *PostgresStorage) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createPostgresTableSQL); err != nil {
		return fmt.Errorf("create checkpoints table: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	query := `
		INSERT INTO checkpoints (epoch, saved_at, data) VALUES ($1, $2, $3)
		ON CONFLICT (epoch) DO UPDATE SET saved_at = EXCLUDED.saved_at, data = EXCLUDED.data
	`
	if _, err := s.pool.Exec(ctx, query, cp.Epoch, cp.SavedAt, data); err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}

	logging.Debug("Saved checkpoint in PostgreSQL", logging.Storage, "epoch", cp.Epoch)
	return nil
}

func (s *PostgresStorage) Load(ctx context.Context) (*Checkpoint, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM checkpoints ORDER BY epoch DESC LIMIT 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStorage) History(ctx context.Context, limit int) ([]Checkpoint, error) {
	query := `SELECT data FROM checkpoints ORDER BY epoch DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

var _ StateStorage = (*PostgresStorage)(nil)
