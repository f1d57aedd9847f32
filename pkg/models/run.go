package models

import "time"

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunCounts are the per-stage item counts of one pipeline run.
type RunCounts struct {
	Collected     int `json:"collected"`
	Passed        int `json:"passed"`
	Rejected      int `json:"rejected"`
	Patterns      int `json:"patterns"`
	Opportunities int `json:"opportunities"`
	Solutions     int `json:"solutions"`
}

// RunPerformance are the derived per-run performance figures.
type RunPerformance struct {
	FilterRate      float64 `json:"filter_rate"`
	OverallMomentum float64 `json:"overall_momentum"`
	EfficiencyScore float64 `json:"efficiency_score"`
}

// PipelineRun is one complete, timestamped execution record. Append-only:
// the orchestrator never mutates a past run, only aggregates into its
// running performance summary.
type PipelineRun struct {
	StartedAt   time.Time      `json:"started_at"`
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	DigestID    string         `json:"digest_id,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	Counts      RunCounts      `json:"counts"`
	Performance RunPerformance `json:"performance"`
}

// PerformanceSummary holds incrementally updated averages over all runs.
type PerformanceSummary struct {
	LastRunAt     time.Time `json:"last_run_at"`
	LastStatus    string    `json:"last_status"`
	RunCount      int       `json:"run_count"`
	FailedRuns    int       `json:"failed_runs"`
	AvgDurationMs float64   `json:"avg_duration_ms"`
	AvgFilterRate float64   `json:"avg_filter_rate"`
	AvgEfficiency float64   `json:"avg_efficiency"`
}

// PipelineStatus is the minimal operational surface for embedding the
// pipeline in a host process.
type PipelineStatus struct {
	LastRun     *PipelineRun       `json:"last_run,omitempty"`
	Performance PerformanceSummary `json:"performance"`
	IsRunning   bool               `json:"is_running"`
	RunCount    int                `json:"run_count"`
}
