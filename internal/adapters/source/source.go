// Package source defines the contract the pipeline consumes signals through.
// The pipeline has no opinion on transport; any implementation of Source is
// valid.
package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Source supplies raw signals from one feed.
type Source interface {
	// Name returns source name for logging
	Name() string

	// Collect fetches the current batch of signals.
	Collect(ctx context.Context) ([]models.Signal, error)
}

// Func adapts a plain function to the Source interface.
type Func struct {
	CollectFunc func(ctx context.Context) ([]models.Signal, error)
	SourceName  string
}

func (f Func) Name() string { return f.SourceName }

func (f Func) Collect(ctx context.Context) ([]models.Signal, error) {
	return f.CollectFunc(ctx)
}

// Multi fans in several sources. A failing source is logged and skipped so
// one broken feed never empties the batch.
type Multi struct {
	sources []Source
}

// NewMulti creates an aggregate source
func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

func (m *Multi) Name() string { return "multi" }

// Collect queries all sources in parallel and merges their batches.
func (m *Multi) Collect(ctx context.Context) ([]models.Signal, error) {
	type result struct {
		err     error
		name    string
		signals []models.Signal
	}

	results := make(chan result, len(m.sources))
	for _, src := range m.sources {
		go func(s Source) {
			signals, err := s.Collect(ctx)
			results <- result{signals: signals, err: err, name: s.Name()}
		}(src)
	}

	var all []models.Signal
	for range m.sources {
		res := <-results
		if res.err != nil {
			logger.Warn("signal source failed",
				zap.String("source", res.name),
				zap.Error(res.err),
			)
			continue
		}
		all = append(all, res.signals...)
	}

	logger.Debug("signals collected",
		zap.Int("sources", len(m.sources)),
		zap.Int("signals", len(all)),
	)

	return all, nil
}
