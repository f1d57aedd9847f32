package filtering

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/pkg/logger"
)

// Tuning parameters: a reason whose effectiveness moving average drops below
// the relax bar gets a more permissive threshold, one above the tighten bar
// a stricter one. Steps are exact decimal multiplications so compounding
// across persisted runs stays reproducible.
const (
	neutralEffectiveness = 0.5
	relaxBelow           = 0.5
	tightenAbove         = 0.8
)

var (
	relaxStep   = decimal.RequireFromString("0.9")
	tightenStep = decimal.RequireFromString("1.1")
)

// rulesState is the persisted threshold document (history key
// "filter_rules").
type rulesState struct {
	UpdatedAt     time.Time          `json:"updated_at"`
	Thresholds    map[string]string  `json:"thresholds"`
	Effectiveness map[string]float64 `json:"effectiveness"`
}

// Tune recomputes per-reason effectiveness from the batch and adjusts the
// thresholds. Effectiveness = rejections attributed to the reason / total
// signals, folded into a moving average new = (old + observed) / 2.
func (f *Filter) Tune(ctx context.Context, metrics BatchMetrics) {
	if metrics.Total == 0 {
		return
	}

	f.mu.Lock()
	for _, reason := range reasonOrder {
		observed := float64(metrics.RejectionsByReason[reason]) / float64(metrics.Total)
		ma := (f.effectiveness[reason] + observed) / 2
		f.effectiveness[reason] = ma

		before := f.thresholds[reason]
		switch {
		case ma < relaxBelow:
			f.thresholds[reason] = f.clampThreshold(before.Mul(relaxStep))
		case ma > tightenAbove:
			f.thresholds[reason] = f.clampThreshold(before.Mul(tightenStep))
		}

		if !before.Equal(f.thresholds[reason]) {
			logger.Info("filter threshold tuned",
				zap.String("reason", reason),
				zap.String("from", before.String()),
				zap.String("to", f.thresholds[reason].String()),
				zap.Float64("effectiveness", ma),
			)
		}
	}
	f.mu.Unlock()

	f.persist(ctx)
}

func (f *Filter) clampThreshold(v decimal.Decimal) decimal.Decimal {
	if v.LessThan(f.floor) {
		return f.floor
	}
	if v.GreaterThan(f.ceiling) {
		return f.ceiling
	}
	return v
}

// persist saves the threshold state. Write failures are logged, not fatal:
// the run proceeds with in-memory thresholds.
func (f *Filter) persist(ctx context.Context) {
	f.mu.RLock()
	state := rulesState{
		UpdatedAt:     time.Now().UTC(),
		Thresholds:    make(map[string]string, len(f.thresholds)),
		Effectiveness: make(map[string]float64, len(f.effectiveness)),
	}
	for reason, threshold := range f.thresholds {
		state.Thresholds[reason] = threshold.String()
	}
	for reason, ma := range f.effectiveness {
		state.Effectiveness[reason] = ma
	}
	f.mu.RUnlock()

	data, err := json.Marshal(state)
	if err != nil {
		logger.Error("failed to encode filter rules", zap.Error(err))
		return
	}
	if err := f.store.Save(ctx, history.KeyFilterRules, data); err != nil {
		logger.Error("failed to persist filter rules", zap.Error(err))
	}
}

// restore overlays persisted thresholds onto the defaults. Any problem
// degrades to the defaults.
func (f *Filter) restore(ctx context.Context) {
	data, ok, err := f.store.Load(ctx, history.KeyFilterRules)
	if err != nil {
		logger.Warn("failed to load filter rules, using defaults", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var state rulesState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("corrupt filter rules, using defaults", zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reason := range reasonOrder {
		if raw, ok := state.Thresholds[reason]; ok {
			threshold, err := decimal.NewFromString(raw)
			if err != nil {
				logger.Warn("corrupt threshold value, keeping default",
					zap.String("reason", reason),
					zap.String("value", raw),
				)
				continue
			}
			f.thresholds[reason] = f.clampThreshold(threshold)
		}
		if ma, ok := state.Effectiveness[reason]; ok {
			f.effectiveness[reason] = ma
		}
	}

	logger.Info("filter rules restored",
		zap.Time("updated_at", state.UpdatedAt),
	)
}
