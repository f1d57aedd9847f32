package models

import "time"

// Signal represents single raw signal ingested from an external source.
// Immutable once ingested.
type Signal struct {
	Timestamp   time.Time          `json:"timestamp" db:"timestamp"`
	RawMetrics  map[string]float64 `json:"raw_metrics" db:"raw_metrics"`
	ID          string             `json:"id" db:"id"`
	Source      string             `json:"source" db:"source"`
	Category    string             `json:"category" db:"category"`
	Title       string             `json:"title" db:"title"`
	Description string             `json:"description" db:"description"`
}

// Metric returns a raw metric value, 0 when absent.
func (s *Signal) Metric(name string) float64 {
	if s.RawMetrics == nil {
		return 0
	}
	return s.RawMetrics[name]
}

// Sentiment labels assigned by the scorer.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// ScoredSignal is a Signal plus its sub-scores. Created once by the scorer
// and never mutated afterwards. Category is the classifier's verdict and
// shadows the raw Signal.Category, which stays untouched.
type ScoredSignal struct {
	Signal

	ScoredAt time.Time `json:"scored_at"`
	Keywords []string  `json:"keywords"`

	Relevance          float64 `json:"relevance"`
	Impact             float64 `json:"impact"`
	Trend              float64 `json:"trend"`
	Sentiment          float64 `json:"sentiment"` // magnitude, 0..1
	SentimentLabel     string  `json:"sentiment_label"`
	Category           string  `json:"category"`
	CategoryConfidence float64 `json:"category_confidence"`
	FilterScore        float64 `json:"filter_score"`
}

// FilterDecision records the filter verdict for one signal in one run.
type FilterDecision struct {
	SignalID      string   `json:"signal_id"`
	PrimaryReason string   `json:"primary_reason,omitempty"`
	Reasons       []string `json:"reasons,omitempty"`
	Score         float64  `json:"score"`
	Passed        bool     `json:"passed"`
}

// Clamp01 clamps v to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
