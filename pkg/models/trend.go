package models

import "time"

// TrendPattern types.
const (
	PatternCategory  = "category"
	PatternKeyword   = "keyword"
	PatternSentiment = "sentiment"
	PatternImpact    = "impact"
)

// TrendPattern is a single detected pattern. Immutable, timestamped at
// detection time.
type TrendPattern struct {
	DetectedAt  time.Time `json:"detected_at"`
	Type        string    `json:"type"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	Strength    float64   `json:"strength"`   // 0..1
	Confidence  float64   `json:"confidence"` // 0..1
}

// Momentum aggregates pattern strengths for the current batch.
// All values are clamped to [0, 1].
type Momentum struct {
	PerCategory map[string]float64 `json:"per_category"`
	PerKeyword  map[string]float64 `json:"per_keyword"`
	Overall     float64            `json:"overall"`
	Sentiment   float64            `json:"sentiment"`
	Impact      float64            `json:"impact"`
}

// Correlation is the similarity between two pattern strengths
// (1 - |s1 - s2|), not a statistical Pearson correlation.
type Correlation struct {
	PatternA string  `json:"pattern_a"`
	PatternB string  `json:"pattern_b"`
	Score    float64 `json:"score"`
}

// Prediction outlooks.
const (
	OutlookStrong   = "strong continuation"
	OutlookModerate = "moderate continuation"
	OutlookWeak     = "weak continuation"
)

// Prediction projects how a pattern is expected to develop.
type Prediction struct {
	Type     string  `json:"type"`
	Key      string  `json:"key"`
	Outlook  string  `json:"outlook"`
	Momentum float64 `json:"momentum"`
}

// Alert priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Alert flags an unusually strong movement in the current batch.
type Alert struct {
	Kind        string `json:"kind"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// CategoryStats holds per-category aggregates over one batch. Downstream
// stages derive their scores from these fields instead of re-reading raw
// signals.
type CategoryStats struct {
	SentimentCounts   map[string]int `json:"sentiment_counts"`
	Category          string         `json:"category"`
	DominantSentiment string         `json:"dominant_sentiment"`
	Count             int            `json:"count"`
	Share             float64        `json:"share"`
	MeanRelevance     float64        `json:"mean_relevance"`
	MeanImpact        float64        `json:"mean_impact"`
	Keywords          []string       `json:"keywords"`
}

// KeywordCount is one entry of the top-keyword distribution.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Distributions are the four independent batch distributions the trend
// detector builds before deriving patterns.
type Distributions struct {
	Categories      map[string]*CategoryStats `json:"categories"`
	SentimentCounts map[string]int            `json:"sentiment_counts"`
	TopKeywords     []KeywordCount            `json:"top_keywords"`
	ImpactSeries    []float64                 `json:"impact_series"`
	Total           int                       `json:"total"`
}
