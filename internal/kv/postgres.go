package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a Postgres table.
type PostgresStore struct {
	db    *pgxpool.Pool
	table string
}

// NewPostgresStore connects to Postgres and creates the kv table if missing.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, unavailable("open", "", err, "failed to connect to Postgres")
	}
	s := &PostgresStore{db: db, table: "kernel_kv"}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, unavailable("open", "", err, "migrate")
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err, "select")
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, s.table),
		key, value)
	return unavailable("set", key, err, "upsert")
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key)
	return unavailable("remove", key, err, "delete")
}

func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT key FROM %s WHERE left(key, $1) = $2 ORDER BY key`, s.table),
		len(prefix), prefix)
	if err != nil {
		return nil, unavailable("keys", "", err, "select")
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("keys", "", err, "scan")
	}
	return keys, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
