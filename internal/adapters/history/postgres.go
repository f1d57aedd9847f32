package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps history documents in the pipeline_history table,
// one row per key (upsert).
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates new postgres-backed history store
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load returns the stored document for key.
func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		`SELECT data FROM pipeline_history WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load history %q: %w", key, err)
	}
	return data, true, nil
}

// Save upserts the document under key.
func (s *PostgresStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_history (key, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save history %q: %w", key, err)
	}
	return nil
}
