// Package history provides the key-to-JSON persistence used by the pipeline
// stages for rules, trend batches, digests and run records. A missing key is
// never an error: callers start from an empty baseline.
package history

import "context"

// Store persists one JSON document per key.
type Store interface {
	// Load returns the stored document for key. The second return value is
	// false when no document exists, which is not an error.
	Load(ctx context.Context, key string) ([]byte, bool, error)

	// Save stores the document under key, replacing any prior version.
	Save(ctx context.Context, key string, data []byte) error
}

// Keys used by the pipeline stages.
const (
	KeyFilterRules   = "filter_rules"
	KeyTrendHistory  = "trend_history"
	KeyIntelHistory  = "intel_history"
	KeyDigestHistory = "digest_history"
	KeyRunHistory    = "run_history"
	KeyPerformance   = "performance_summary"
)
