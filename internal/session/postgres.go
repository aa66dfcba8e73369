package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS session_kv (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresKV keeps records in a PostgreSQL table, for installations where the
// client state lives next to other services.
type PostgresKV struct {
	db *pgxpool.Pool
}

// NewPostgresKV builds a Postgres-backed engine.
func NewPostgresKV(db *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{db: db}
}

// EnsureSchema creates the backing table when missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, postgresSchema)
	return err
}

// Get fetches the value stored for key.
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set upserts the value for key.
func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx, `INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// Delete removes all keys with one statement.
func (p *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.db.Exec(ctx, `DELETE FROM session_kv WHERE key = ANY($1)`, keys)
	return err
}

// Ping checks connectivity.
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close releases the pool.
func (p *PostgresKV) Close() error {
	p.db.Close()
	return nil
}
