// Package pipeline orchestrates one full intelligence cycle: collect, score,
// filter, detect, synthesize, compile. A single run is active at any time.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/adapters/source"
	"github.com/selivandex/signal-intel/internal/digest"
	"github.com/selivandex/signal-intel/internal/filtering"
	"github.com/selivandex/signal-intel/internal/intel"
	"github.com/selivandex/signal-intel/internal/scoring"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/metrics"
	"github.com/selivandex/signal-intel/pkg/models"
)

// ErrAlreadyRunning is returned when Run is called while another run holds
// the guard. A defined no-op, not a failure.
var ErrAlreadyRunning = errors.New("pipeline run already in progress")

// Notifier delivers a compiled digest downstream.
type Notifier interface {
	SendDigest(ctx context.Context, digest *models.Digest) error
}

// MetricsSink receives one analytics row per run. Satisfied by
// metrics.BufferedMetrics.
type MetricsSink interface {
	Add(metric metrics.Metric) error
}

// Deps are the stage implementations the orchestrator runs in order.
// Sink and Notifier are optional.
type Deps struct {
	Source      source.Source
	Scorer      *scoring.Scorer
	Filter      *filtering.Filter
	Detector    *trends.Detector
	Synthesizer *intel.Synthesizer
	Compiler    *digest.Compiler
	Store       history.Store
	Sink        MetricsSink
	Notifier    Notifier
}

// Orchestrator owns the run guard, the append-only run history and the
// cumulative performance summary.
type Orchestrator struct {
	runTimeout      time.Duration
	runHistoryLimit int
	deps            Deps

	mu      sync.Mutex
	running bool
	summary models.PerformanceSummary
	lastRun *models.PipelineRun

	now   func() time.Time
	newID func() string
}

// New creates new pipeline orchestrator and restores the performance summary
// and last run from the history store.
func New(ctx context.Context, cfg *config.PipelineConfig, deps Deps) *Orchestrator {
	o := &Orchestrator{
		runTimeout:      cfg.RunTimeout,
		runHistoryLimit: cfg.RunHistoryLimit,
		deps:            deps,
		now:             time.Now,
		newID:           func() string { return uuid.New().String() },
	}
	if o.runTimeout <= 0 {
		o.runTimeout = 60 * time.Second
	}
	if o.runHistoryLimit <= 0 {
		o.runHistoryLimit = 200
	}
	o.restore(ctx)
	return o
}

// Run executes one pipeline cycle. A second call while a run is in flight
// returns ErrAlreadyRunning immediately.
func (o *Orchestrator) Run(ctx context.Context) (*models.PipelineRun, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		logger.Info("pipeline run skipped, another run in progress")
		return nil, ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()

	run := &models.PipelineRun{
		StartedAt: o.now(),
		ID:        o.newID(),
	}
	logger.Info("pipeline run started", zap.String("run_id", run.ID))

	signals, err := o.deps.Source.Collect(runCtx)
	if err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("collect: %w", err))
	}
	run.Counts.Collected = len(signals)
	if err := runCtx.Err(); err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("collect: %w", err))
	}

	scoredSignals := o.deps.Scorer.ScoreBatch(signals)
	if err := runCtx.Err(); err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("score: %w", err))
	}

	passed, batchMetrics := o.deps.Filter.ApplyBatch(scoredSignals)
	run.Counts.Passed = batchMetrics.Passed
	run.Counts.Rejected = batchMetrics.Rejected
	if err := runCtx.Err(); err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("filter: %w", err))
	}

	report := o.deps.Detector.Detect(runCtx, passed)
	run.Counts.Patterns = len(report.Patterns)
	if err := runCtx.Err(); err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("detect: %w", err))
	}

	result := o.deps.Synthesizer.Synthesize(runCtx, report)
	run.Counts.Opportunities = len(result.Opportunities)
	run.Counts.Solutions = len(result.Solutions)
	if err := runCtx.Err(); err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("synthesize: %w", err))
	}

	compiled, err := o.deps.Compiler.Compile(runCtx, result, report, batchMetrics)
	if err != nil {
		return o.finishFailed(ctx, run, fmt.Errorf("compile: %w", err))
	}

	run.Status = models.RunCompleted
	run.DigestID = compiled.ID
	run.DurationMs = o.now().Sub(run.StartedAt).Milliseconds()
	run.Performance = models.RunPerformance{
		FilterRate:      batchMetrics.FilterRate,
		OverallMomentum: report.Momentum.Overall,
		EfficiencyScore: efficiencyScore(compiled.Metrics.DigestScore, batchMetrics.FilterRate, report.Momentum.Overall),
	}

	o.deps.Filter.Tune(ctx, batchMetrics)
	o.record(ctx, run)
	o.emitMetric(run)
	o.notify(ctx, compiled)

	logger.Info("pipeline run completed",
		zap.String("run_id", run.ID),
		zap.Int64("duration_ms", run.DurationMs),
		zap.Int("collected", run.Counts.Collected),
		zap.Int("passed", run.Counts.Passed),
		zap.Int("opportunities", run.Counts.Opportunities),
		zap.Float64("efficiency", run.Performance.EfficiencyScore),
	)
	return run, nil
}

// Status reports the operational state for embedding hosts.
func (o *Orchestrator) Status() models.PipelineStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return models.PipelineStatus{
		LastRun:     o.lastRun,
		Performance: o.summary,
		IsRunning:   o.running,
		RunCount:    o.summary.RunCount,
	}
}

// History returns the persisted run history, oldest first.
func (o *Orchestrator) History(ctx context.Context) ([]models.PipelineRun, error) {
	data, ok, err := o.deps.Store.Load(ctx, history.KeyRunHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to load run history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var runs []models.PipelineRun
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode run history: %w", err)
	}
	return runs, nil
}

// finishFailed finalizes a failed run: the record is appended and the
// summary updated, but no tuning, metric or digest delivery happens.
func (o *Orchestrator) finishFailed(ctx context.Context, run *models.PipelineRun, err error) (*models.PipelineRun, error) {
	run.Status = models.RunFailed
	run.Error = err.Error()
	run.DurationMs = o.now().Sub(run.StartedAt).Milliseconds()

	logger.Error("pipeline run failed",
		zap.String("run_id", run.ID),
		zap.Error(err),
	)

	o.record(ctx, run)
	o.emitMetric(run)
	return run, err
}

// record appends the run to the bounded history and folds it into the
// incremental performance summary. Persistence failures are logged only.
func (o *Orchestrator) record(ctx context.Context, run *models.PipelineRun) {
	runs, err := o.History(ctx)
	if err != nil {
		logger.Warn("starting run history from scratch", zap.Error(err))
		runs = nil
	}
	runs = append(runs, *run)
	if len(runs) > o.runHistoryLimit {
		runs = runs[len(runs)-o.runHistoryLimit:]
	}
	if data, err := json.Marshal(runs); err != nil {
		logger.Error("failed to encode run history", zap.Error(err))
	} else if err := o.deps.Store.Save(ctx, history.KeyRunHistory, data); err != nil {
		logger.Error("failed to persist run history", zap.Error(err))
	}

	o.mu.Lock()
	o.lastRun = run
	o.summary.RunCount++
	o.summary.LastRunAt = run.StartedAt
	o.summary.LastStatus = run.Status
	if run.Status == models.RunFailed {
		o.summary.FailedRuns++
	}
	n := float64(o.summary.RunCount)
	o.summary.AvgDurationMs += (float64(run.DurationMs) - o.summary.AvgDurationMs) / n
	o.summary.AvgFilterRate += (run.Performance.FilterRate - o.summary.AvgFilterRate) / n
	o.summary.AvgEfficiency += (run.Performance.EfficiencyScore - o.summary.AvgEfficiency) / n
	summary := o.summary
	o.mu.Unlock()

	if data, err := json.Marshal(summary); err != nil {
		logger.Error("failed to encode performance summary", zap.Error(err))
	} else if err := o.deps.Store.Save(ctx, history.KeyPerformance, data); err != nil {
		logger.Error("failed to persist performance summary", zap.Error(err))
	}
}

func (o *Orchestrator) emitMetric(run *models.PipelineRun) {
	if o.deps.Sink == nil {
		return
	}
	metric := &metrics.PipelineRunMetric{
		Timestamp:       run.StartedAt,
		RunID:           run.ID,
		Status:          run.Status,
		DurationMs:      run.DurationMs,
		Collected:       run.Counts.Collected,
		Passed:          run.Counts.Passed,
		Rejected:        run.Counts.Rejected,
		Patterns:        run.Counts.Patterns,
		Opportunities:   run.Counts.Opportunities,
		Solutions:       run.Counts.Solutions,
		FilterRate:      run.Performance.FilterRate,
		OverallMomentum: run.Performance.OverallMomentum,
		EfficiencyScore: run.Performance.EfficiencyScore,
	}
	if err := o.deps.Sink.Add(metric); err != nil {
		logger.Warn("failed to buffer run metric", zap.Error(err))
	}
}

func (o *Orchestrator) notify(ctx context.Context, compiled *models.Digest) {
	if o.deps.Notifier == nil {
		return
	}
	if err := o.deps.Notifier.SendDigest(ctx, compiled); err != nil {
		logger.Warn("failed to deliver digest",
			zap.String("digest_id", compiled.ID),
			zap.Error(err),
		)
	}
}

// restore loads the persisted summary and last run so averages survive
// restarts. Missing or corrupt records start fresh.
func (o *Orchestrator) restore(ctx context.Context) {
	if data, ok, err := o.deps.Store.Load(ctx, history.KeyPerformance); err != nil {
		logger.Warn("failed to load performance summary", zap.Error(err))
	} else if ok {
		var summary models.PerformanceSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			logger.Warn("corrupt performance summary, starting fresh", zap.Error(err))
		} else {
			o.summary = summary
		}
	}

	runs, err := o.History(ctx)
	if err != nil {
		logger.Warn("failed to load run history", zap.Error(err))
		return
	}
	if len(runs) > 0 {
		last := runs[len(runs)-1]
		o.lastRun = &last
	}
}

// efficiencyScore blends digest quality, filter throughput and batch
// momentum into one per-run figure.
func efficiencyScore(digestScore, filterRate, momentum float64) float64 {
	return models.Clamp01(0.4*digestScore + 0.3*filterRate + 0.3*momentum)
}
