// Package trends aggregates filtered signals into batch distributions and
// derives trend patterns, momentum, correlations, predictions and alerts.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cinar/indicator"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Emission thresholds. All comparisons are strict: a category at exactly 20%
// share does not qualify.
const (
	categoryShareBar  = 0.20
	keywordCountBar   = 3
	sentimentShareBar = 0.60
	impactChangeBar   = 0.10

	keywordTopN       = 10
	impactTrailingLen = 5
)

// Fixed per-type confidences and divisors (see DESIGN.md for the choices the
// spec leaves open).
const (
	sentimentConfidence = 0.8
	impactConfidence    = 0.7
	confidenceDivisor   = 5.0
	keywordStrengthCap  = 10.0
)

// Report is the full trend detector output for one batch.
type Report struct {
	Distributions models.Distributions  `json:"distributions"`
	Momentum      models.Momentum       `json:"momentum"`
	Patterns      []models.TrendPattern `json:"patterns"`
	Correlations  []models.Correlation  `json:"correlations"`
	Predictions   []models.Prediction   `json:"predictions"`
	Alerts        []models.Alert        `json:"alerts"`
}

// Detector derives trend reports from filtered batches. The numeric core is
// pure; only the trend-history append at the end touches the store.
type Detector struct {
	store        history.Store
	historyLimit int
	now          func() time.Time
}

// NewDetector creates new trend detector
func NewDetector(cfg *config.TrendsConfig, store history.Store) *Detector {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	return &Detector{
		store:        store,
		historyLimit: limit,
		now:          time.Now,
	}
}

// Detect builds the four batch distributions, derives patterns and the
// aggregates on top of them, then appends the batch to the trend history.
func (d *Detector) Detect(ctx context.Context, signals []models.ScoredSignal) Report {
	dist := buildDistributions(signals)
	patterns := d.derivePatterns(dist)
	momentum := computeMomentum(patterns)

	report := Report{
		Distributions: dist,
		Patterns:      patterns,
		Momentum:      momentum,
		Correlations:  computeCorrelations(patterns),
		Predictions:   computePredictions(patterns),
		Alerts:        buildAlerts(momentum),
	}

	logger.Debug("trends detected",
		zap.Int("signals", len(signals)),
		zap.Int("patterns", len(patterns)),
		zap.Float64("overall_momentum", momentum.Overall),
	)

	d.appendHistory(ctx, report)
	return report
}

// buildDistributions computes the four independent batch distributions.
func buildDistributions(signals []models.ScoredSignal) models.Distributions {
	dist := models.Distributions{
		Categories:      make(map[string]*models.CategoryStats),
		SentimentCounts: make(map[string]int),
		Total:           len(signals),
	}
	if len(signals) == 0 {
		return dist
	}

	// Impact series in chronological order.
	ordered := make([]models.ScoredSignal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	keywordCounts := make(map[string]int)
	keywordsByCategory := make(map[string]map[string]bool)

	for _, signal := range ordered {
		stats, ok := dist.Categories[signal.Category]
		if !ok {
			stats = &models.CategoryStats{
				Category:        signal.Category,
				SentimentCounts: make(map[string]int),
			}
			dist.Categories[signal.Category] = stats
			keywordsByCategory[signal.Category] = make(map[string]bool)
		}

		stats.Count++
		stats.MeanRelevance += signal.Relevance
		stats.MeanImpact += signal.Impact
		stats.SentimentCounts[signal.SentimentLabel]++

		dist.SentimentCounts[signal.SentimentLabel]++
		dist.ImpactSeries = append(dist.ImpactSeries, signal.Impact)

		for _, keyword := range signal.Keywords {
			keywordCounts[keyword]++
			keywordsByCategory[signal.Category][keyword] = true
		}
	}

	total := float64(dist.Total)
	for category, stats := range dist.Categories {
		stats.Share = float64(stats.Count) / total
		stats.MeanRelevance /= float64(stats.Count)
		stats.MeanImpact /= float64(stats.Count)
		stats.DominantSentiment = dominantSentiment(stats.SentimentCounts)

		keywords := make([]string, 0, len(keywordsByCategory[category]))
		for keyword := range keywordsByCategory[category] {
			keywords = append(keywords, keyword)
		}
		sort.Strings(keywords)
		stats.Keywords = keywords
	}

	dist.TopKeywords = topKeywords(keywordCounts, keywordTopN)
	return dist
}

// derivePatterns applies the emission rules to the distributions.
func (d *Detector) derivePatterns(dist models.Distributions) []models.TrendPattern {
	if dist.Total == 0 {
		return nil
	}
	detectedAt := d.now()
	var patterns []models.TrendPattern

	for _, category := range sortedCategories(dist.Categories) {
		stats := dist.Categories[category]
		if stats.Share > categoryShareBar {
			patterns = append(patterns, models.TrendPattern{
				DetectedAt:  detectedAt,
				Type:        models.PatternCategory,
				Key:         category,
				Strength:    models.Clamp01(stats.Share),
				Confidence:  models.Clamp01(float64(stats.Count) / confidenceDivisor),
				Description: fmt.Sprintf("category %s accounts for %.1f%% of the batch", category, stats.Share*100),
			})
		}
	}

	for _, kc := range dist.TopKeywords {
		if kc.Count > keywordCountBar {
			patterns = append(patterns, models.TrendPattern{
				DetectedAt:  detectedAt,
				Type:        models.PatternKeyword,
				Key:         kc.Keyword,
				Strength:    models.Clamp01(float64(kc.Count) / keywordStrengthCap),
				Confidence:  models.Clamp01(float64(kc.Count) / confidenceDivisor),
				Description: fmt.Sprintf("keyword %q recurs %d times", kc.Keyword, kc.Count),
			})
		}
	}

	for _, label := range []string{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral} {
		share := float64(dist.SentimentCounts[label]) / float64(dist.Total)
		if share > sentimentShareBar {
			patterns = append(patterns, models.TrendPattern{
				DetectedAt:  detectedAt,
				Type:        models.PatternSentiment,
				Key:         label,
				Strength:    models.Clamp01(share),
				Confidence:  sentimentConfidence,
				Description: fmt.Sprintf("%s sentiment dominates at %.1f%%", label, share*100),
			})
		}
	}

	if pattern, ok := d.deriveImpactPattern(dist.ImpactSeries, detectedAt); ok {
		patterns = append(patterns, pattern)
	}

	return patterns
}

// deriveImpactPattern compares the trailing mean of the last 5 impact scores
// against the mean of all prior scores. Monotonic momentum rule: over +10%
// is increasing, under -10% decreasing, otherwise stable (no pattern).
func (d *Detector) deriveImpactPattern(series []float64, detectedAt time.Time) (models.TrendPattern, bool) {
	if len(series) <= impactTrailingLen {
		return models.TrendPattern{}, false
	}

	sma := indicator.Sma(impactTrailingLen, series)
	trailing := sma[len(sma)-1]

	prior := series[:len(series)-impactTrailingLen]
	var priorMean float64
	for _, v := range prior {
		priorMean += v
	}
	priorMean /= float64(len(prior))
	if priorMean == 0 {
		return models.TrendPattern{}, false
	}

	change := (trailing - priorMean) / priorMean
	var direction string
	switch {
	case change > impactChangeBar:
		direction = "increasing"
	case change < -impactChangeBar:
		direction = "decreasing"
	default:
		return models.TrendPattern{}, false
	}

	return models.TrendPattern{
		DetectedAt:  detectedAt,
		Type:        models.PatternImpact,
		Key:         direction,
		Strength:    models.Clamp01(abs(change)),
		Confidence:  impactConfidence,
		Description: fmt.Sprintf("impact scores %s: trailing mean %.2f vs prior %.2f", direction, trailing, priorMean),
	}, true
}

func dominantSentiment(counts map[string]int) string {
	dominant := models.SentimentNeutral
	best := -1
	// Fixed evaluation order keeps ties deterministic.
	for _, label := range []string{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral} {
		if counts[label] > best {
			best = counts[label]
			dominant = label
		}
	}
	return dominant
}

func topKeywords(counts map[string]int, limit int) []models.KeywordCount {
	all := make([]models.KeywordCount, 0, len(counts))
	for keyword, count := range counts {
		all = append(all, models.KeywordCount{Keyword: keyword, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Keyword < all[j].Keyword
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

func sortedCategories(categories map[string]*models.CategoryStats) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// trendBatch is one persisted history entry (history key "trend_history").
type trendBatch struct {
	DetectedAt time.Time             `json:"detected_at"`
	Patterns   []models.TrendPattern `json:"patterns"`
	Momentum   models.Momentum       `json:"momentum"`
}

// appendHistory appends the batch to the bounded trend history. Failures
// are logged; detection output is already complete at this point.
func (d *Detector) appendHistory(ctx context.Context, report Report) {
	var batches []trendBatch
	if data, ok, err := d.store.Load(ctx, history.KeyTrendHistory); err != nil {
		logger.Warn("failed to load trend history, starting empty", zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(data, &batches); err != nil {
			logger.Warn("corrupt trend history, starting empty", zap.Error(err))
			batches = nil
		}
	}

	batches = append(batches, trendBatch{
		DetectedAt: d.now(),
		Patterns:   report.Patterns,
		Momentum:   report.Momentum,
	})
	if len(batches) > d.historyLimit {
		batches = batches[len(batches)-d.historyLimit:]
	}

	data, err := json.Marshal(batches)
	if err != nil {
		logger.Error("failed to encode trend history", zap.Error(err))
		return
	}
	if err := d.store.Save(ctx, history.KeyTrendHistory, data); err != nil {
		logger.Error("failed to persist trend history", zap.Error(err))
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
