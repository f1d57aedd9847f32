package models

import "time"

// DigestSections are the five fixed sections of a compiled digest.
type DigestSections struct {
	ExecutiveSummary string `json:"executive_summary"`
	MarketTrends     string `json:"market_trends"`
	Opportunities    string `json:"opportunities"`
	Solutions        string `json:"solutions"`
	Recommendations  string `json:"recommendations"`
}

// DigestMetrics are quality metrics derived from the compiled sections.
type DigestMetrics struct {
	SectionCount int     `json:"section_count"`
	WordCount    int     `json:"word_count"`
	InsightCount int     `json:"insight_count"`
	ActionCount  int     `json:"action_count"`
	DigestScore  float64 `json:"digest_score"`
}

// Digest is the compiled report for one pipeline run. Immutable once
// compiled; re-running the pipeline produces a new Digest with a new ID.
type Digest struct {
	GeneratedAt time.Time      `json:"generated_at"`
	ID          string         `json:"id"`
	Rendered    string         `json:"rendered"`
	Sections    DigestSections `json:"sections"`
	Metrics     DigestMetrics  `json:"metrics"`
}
