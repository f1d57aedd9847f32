package metrics

import "context"

// Metric is a single analytics row destined for a named table.
type Metric interface {
	TableName() string
	Values() []interface{}
}

// Writer persists batches of metrics.
type Writer interface {
	Write(ctx context.Context, tableName string, metrics []Metric) error
}
