// Package filtering accepts or rejects scored signals against adaptive
// thresholds and retunes those thresholds from observed effectiveness.
package filtering

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Rejection reasons, evaluated in this priority order. The first failing
// check becomes the decision's primary reason.
const (
	ReasonRelevance = "relevance"
	ReasonImpact    = "impact"
	ReasonTrend     = "trend"
	ReasonSentiment = "sentiment"
)

var reasonOrder = []string{ReasonRelevance, ReasonImpact, ReasonTrend, ReasonSentiment}

// BatchMetrics summarizes one filtered batch. The orchestrator feeds it back
// into Tune after a successful run.
type BatchMetrics struct {
	RejectionsByReason map[string]int          `json:"rejections_by_reason"`
	Decisions          []models.FilterDecision `json:"decisions"`
	Total              int                     `json:"total"`
	Passed             int                     `json:"passed"`
	Rejected           int                     `json:"rejected"`
	FilterRate         float64                 `json:"filter_rate"`
}

// Filter applies the adaptive acceptance threshold. It owns the only mutable
// threshold state in the pipeline; everything else reads snapshots.
type Filter struct {
	store history.Store

	mu            sync.RWMutex
	thresholds    map[string]decimal.Decimal
	effectiveness map[string]float64

	defaults map[string]decimal.Decimal
	floor    decimal.Decimal
	ceiling  decimal.Decimal
}

// New creates a filter seeded from config defaults, then overlays any
// persisted threshold state so tuning compounds across runs. A missing or
// unreadable record falls back to the defaults with a log line, never an
// error.
func New(ctx context.Context, cfg *config.FilterConfig, store history.Store) *Filter {
	defaults := map[string]decimal.Decimal{
		ReasonRelevance: decimal.NewFromFloat(cfg.RelevanceThreshold),
		ReasonImpact:    decimal.NewFromFloat(cfg.ImpactThreshold),
		ReasonTrend:     decimal.NewFromFloat(cfg.TrendThreshold),
		ReasonSentiment: decimal.NewFromFloat(cfg.SentimentThreshold),
	}

	f := &Filter{
		store:         store,
		thresholds:    make(map[string]decimal.Decimal, len(defaults)),
		effectiveness: make(map[string]float64, len(defaults)),
		defaults:      defaults,
		floor:         decimal.NewFromFloat(cfg.ThresholdFloor),
		ceiling:       decimal.NewFromFloat(cfg.ThresholdCeiling),
	}
	f.reset()
	f.restore(ctx)
	return f
}

// reset loads config defaults and neutral effectiveness priors.
func (f *Filter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for reason, threshold := range f.defaults {
		f.thresholds[reason] = threshold
		f.effectiveness[reason] = neutralEffectiveness
	}
}

// Apply decides one signal. It never fails: unscored fields read as zero,
// so malformed records are filtered conservatively.
func (f *Filter) Apply(signal models.ScoredSignal) models.FilterDecision {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decide(signal)
}

// ApplyBatch decides every signal, returning the passed ones plus batch
// metrics. Each signal yields exactly one decision per run.
func (f *Filter) ApplyBatch(signals []models.ScoredSignal) ([]models.ScoredSignal, BatchMetrics) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	metrics := BatchMetrics{
		RejectionsByReason: make(map[string]int),
		Decisions:          make([]models.FilterDecision, 0, len(signals)),
		Total:              len(signals),
	}

	passed := make([]models.ScoredSignal, 0, len(signals))
	for _, signal := range signals {
		decision := f.decide(signal)
		metrics.Decisions = append(metrics.Decisions, decision)

		if decision.Passed {
			metrics.Passed++
			passed = append(passed, signal)
			continue
		}
		metrics.Rejected++
		if decision.PrimaryReason != "" {
			metrics.RejectionsByReason[decision.PrimaryReason]++
		}
	}

	if metrics.Total > 0 {
		metrics.FilterRate = float64(metrics.Passed) / float64(metrics.Total)
	}

	logger.Debug("batch filtered",
		zap.Int("total", metrics.Total),
		zap.Int("passed", metrics.Passed),
		zap.Float64("filter_rate", metrics.FilterRate),
	)

	return passed, metrics
}

// decide evaluates one signal against the current thresholds. Caller holds
// at least a read lock.
func (f *Filter) decide(signal models.ScoredSignal) models.FilterDecision {
	decision := models.FilterDecision{
		SignalID: signal.ID,
		Score:    signal.FilterScore,
		Passed:   signal.FilterScore >= f.thresholdValue(ReasonRelevance),
	}
	if decision.Passed {
		return decision
	}

	// Diagnostic sub-score checks in fixed priority order.
	checks := map[string]float64{
		ReasonRelevance: signal.Relevance,
		ReasonImpact:    signal.Impact,
		ReasonTrend:     signal.Trend,
		ReasonSentiment: signal.Sentiment,
	}
	for _, reason := range reasonOrder {
		if checks[reason] < f.thresholdValue(reason) {
			if decision.PrimaryReason == "" {
				decision.PrimaryReason = reason
			}
			decision.Reasons = append(decision.Reasons, reason)
		}
	}
	if decision.PrimaryReason == "" {
		// Rejected on the combined score alone.
		decision.PrimaryReason = ReasonRelevance
		decision.Reasons = []string{ReasonRelevance}
	}
	return decision
}

func (f *Filter) thresholdValue(reason string) float64 {
	return f.thresholds[reason].InexactFloat64()
}

// Thresholds returns a snapshot of the current threshold values.
func (f *Filter) Thresholds() map[string]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]float64, len(f.thresholds))
	for reason, threshold := range f.thresholds {
		out[reason] = threshold.InexactFloat64()
	}
	return out
}
