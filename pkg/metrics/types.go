package metrics

import "time"

// PipelineRunMetric is one analytics row per completed or failed run.
type PipelineRunMetric struct {
	Timestamp       time.Time
	RunID           string
	Status          string
	DurationMs      int64
	Collected       int
	Passed          int
	Rejected        int
	Patterns        int
	Opportunities   int
	Solutions       int
	FilterRate      float64
	OverallMomentum float64
	EfficiencyScore float64
}

func (m *PipelineRunMetric) TableName() string {
	return "pipeline_run_metrics"
}

func (m *PipelineRunMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.RunID,
		m.Status,
		m.DurationMs,
		m.Collected,
		m.Passed,
		m.Rejected,
		m.Patterns,
		m.Opportunities,
		m.Solutions,
		m.FilterRate,
		m.OverallMomentum,
		m.EfficiencyScore,
	}
}
