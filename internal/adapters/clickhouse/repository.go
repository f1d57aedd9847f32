// Package clickhouse persists pipeline analytics rows. One row lands per
// run via the buffered metrics writer.
package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// Registers the "clickhouse" driver with database/sql.
	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/metrics"
)

// Repository implements metrics.Writer for ClickHouse.
type Repository struct {
	db *sqlx.DB
}

// Connect opens a ClickHouse connection and verifies it.
func Connect(dsn string) (*Repository, error) {
	db, err := sqlx.Connect("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	logger.Info("clickhouse connection established")
	return NewRepository(db), nil
}

// NewRepository wraps an existing connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Write inserts the batch into the named table with one multi-row INSERT.
func (r *Repository) Write(ctx context.Context, tableName string, batch []metrics.Metric) error {
	if len(batch) == 0 {
		return nil
	}

	columnCount := len(batch[0].Values())
	if columnCount == 0 {
		return fmt.Errorf("metric rows have no columns")
	}

	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*columnCount)
	for i, metric := range batch {
		row := metric.Values()
		if len(row) != columnCount {
			return fmt.Errorf("row %d has wrong column count: expected %d, got %d", i, columnCount, len(row))
		}
		valuePlaceholders := make([]string, columnCount)
		for j := range row {
			valuePlaceholders[j] = "?"
		}
		placeholders = append(placeholders, "("+strings.Join(valuePlaceholders, ", ")+")")
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s VALUES %s", tableName, strings.Join(placeholders, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clickhouse insert failed: %w", err)
	}

	logger.Debug("clickhouse batch insert successful",
		zap.String("table", tableName),
		zap.Int("rows", len(batch)),
	)
	return nil
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	return r.db.Close()
}
