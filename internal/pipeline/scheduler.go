package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/pkg/models"
	"github.com/selivandex/signal-intel/pkg/worker"
)

// Scheduler runs the orchestrator on a fixed interval: once immediately on
// start, then on every tick. Per-run failures are logged and the schedule
// continues.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	stopTimeout  time.Duration

	worker *worker.PeriodicWorker
	cancel context.CancelFunc
}

// NewScheduler creates new pipeline scheduler
func NewScheduler(cfg *config.PipelineConfig, orchestrator *Orchestrator) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		interval:     cfg.Interval,
		stopTimeout:  cfg.StopTimeout,
	}
}

// Start launches the periodic worker. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.worker = worker.RunBackground(loopCtx, &runWorker{orchestrator: s.orchestrator}, s.interval)
}

// Stop cancels the schedule and awaits any in-flight run within the
// configured stop timeout. The cancellation stops the tick loop only; the
// in-flight run keeps its own deadline (see runWorker.Run).
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.worker != nil {
		s.worker.Stop(s.stopTimeout)
	}
}

// Status proxies the orchestrator's operational state.
func (s *Scheduler) Status() models.PipelineStatus {
	return s.orchestrator.Status()
}

// runWorker adapts the orchestrator to the worker contract. An overlapping
// tick hitting the run guard is not an error.
type runWorker struct {
	orchestrator *Orchestrator
}

func (w *runWorker) Name() string { return "pipeline" }

func (w *runWorker) Run(ctx context.Context) error {
	// Detached from the loop context: stopping the schedule must not fail a
	// run already in flight, which stays bounded by the run timeout.
	_, err := w.orchestrator.Run(context.WithoutCancel(ctx))
	if errors.Is(err, ErrAlreadyRunning) {
		return nil
	}
	return err
}
