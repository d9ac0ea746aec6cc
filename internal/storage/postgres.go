package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/pkg/platform/sentinel"
)

// PostgresStorage keeps values in the origin_storage table.
type PostgresStorage struct {
	db     *sql.DB
	origin string
}

func NewPostgres(db *sql.DB, origin string) *PostgresStorage {
	return &PostgresStorage{db: db, origin: origin}
}

func (s *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM origin_storage WHERE origin = $1 AND key = $2`,
		s.origin, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStorage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO origin_storage (origin, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (origin, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, s.origin, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM origin_storage WHERE origin = $1 AND key = $2`,
		s.origin, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
