// Package intel turns a trend report into opportunities, solutions and
// insights. All synthesis rules are deterministic functions of the report.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Opportunity emission thresholds.
const (
	trendScoreBar    = 0.7
	problemImpactBar = 0.6
	gapImpactBar     = 0.7
	gapCountBar      = 5
)

// Priority tiers over opportunity score.
const (
	priorityHighBar   = 0.80
	priorityMediumBar = 0.65
)

// Strategic insight triggers.
const (
	sharedTypeBar        = 2
	strongFeasibilityBar = 0.7
)

const defaultHistoryLimit = 50

// Result is one synthesis pass over a trend report.
type Result struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Solutions     []models.Solution    `json:"solutions"`
	Insights      []models.Insight     `json:"insights"`
}

// Synthesizer derives intelligence from trend reports and keeps a bounded
// history of past results.
type Synthesizer struct {
	store        history.Store
	historyLimit int
	now          func() time.Time
}

// NewSynthesizer creates new intelligence synthesizer
func NewSynthesizer(store history.Store) *Synthesizer {
	return &Synthesizer{
		store:        store,
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
	}
}

// Synthesize maps the report's category stats into scored opportunities, one
// solution per opportunity, and insight entries for the digest.
func (s *Synthesizer) Synthesize(ctx context.Context, report trends.Report) Result {
	var result Result

	for _, category := range sortedCategoryNames(report.Distributions.Categories) {
		stats := report.Distributions.Categories[category]
		if opp, ok := trendOpportunity(stats); ok {
			result.Opportunities = append(result.Opportunities, opp)
		}
		if opp, ok := problemOpportunity(stats); ok {
			result.Opportunities = append(result.Opportunities, opp)
		}
		if opp, ok := gapOpportunity(stats); ok {
			result.Opportunities = append(result.Opportunities, opp)
		}
	}

	for _, opp := range result.Opportunities {
		stats := report.Distributions.Categories[opp.Category]
		result.Solutions = append(result.Solutions, buildSolution(opp, stats))
	}

	result.Insights = buildInsights(result.Opportunities, result.Solutions)

	logger.Debug("intelligence synthesized",
		zap.Int("opportunities", len(result.Opportunities)),
		zap.Int("solutions", len(result.Solutions)),
		zap.Int("insights", len(result.Insights)),
	)

	s.appendHistory(ctx, result)
	return result
}

// trendOpportunity scores a category as a positive trend. Categories with a
// negative dominant sentiment are problem territory, not trends, and are
// skipped here regardless of score.
func trendOpportunity(stats *models.CategoryStats) (models.Opportunity, bool) {
	if stats.DominantSentiment == models.SentimentNegative {
		return models.Opportunity{}, false
	}

	positive := 0.0
	if stats.DominantSentiment == models.SentimentPositive {
		positive = 1.0
	}
	score := 0.3*stats.Share + 0.3*stats.MeanRelevance + 0.3*stats.MeanImpact + 0.1*positive
	if score <= trendScoreBar {
		return models.Opportunity{}, false
	}

	return models.Opportunity{
		Type:        models.OpportunityTrend,
		Category:    stats.Category,
		Title:       fmt.Sprintf("Rising interest in %s", stats.Category),
		Description: fmt.Sprintf("%s holds %.1f%% of the batch with mean impact %.2f; momentum favors early movers", stats.Category, stats.Share*100, stats.MeanImpact),
		Priority:    priorityFor(score),
		Sentiment:   stats.DominantSentiment,
		Keywords:    stats.Keywords,
		Score:       models.Clamp01(score),
	}, true
}

// problemOpportunity flags a negative-dominant category with material impact.
func problemOpportunity(stats *models.CategoryStats) (models.Opportunity, bool) {
	if stats.DominantSentiment != models.SentimentNegative || stats.MeanImpact <= problemImpactBar {
		return models.Opportunity{}, false
	}

	negativeShare := float64(stats.SentimentCounts[models.SentimentNegative]) / float64(stats.Count)
	score := 0.5*stats.MeanImpact + 0.3*stats.Share + 0.2*negativeShare

	return models.Opportunity{
		Type:        models.OpportunityProblem,
		Category:    stats.Category,
		Title:       fmt.Sprintf("Persistent pain around %s", stats.Category),
		Description: fmt.Sprintf("%s is negative-dominant (%.0f%% negative) with mean impact %.2f; unresolved friction", stats.Category, negativeShare*100, stats.MeanImpact),
		Priority:    priorityFor(score),
		Sentiment:   stats.DominantSentiment,
		Keywords:    stats.Keywords,
		Score:       models.Clamp01(score),
	}, true
}

// gapOpportunity flags a high-volume, high-impact negative category: demand
// exists and nothing on the market satisfies it.
func gapOpportunity(stats *models.CategoryStats) (models.Opportunity, bool) {
	if stats.Count <= gapCountBar || stats.MeanImpact <= gapImpactBar ||
		stats.DominantSentiment != models.SentimentNegative {
		return models.Opportunity{}, false
	}

	volume := float64(stats.Count) / 10
	if volume > 1 {
		volume = 1
	}
	score := 0.4*stats.MeanImpact + 0.3*volume + 0.3*stats.MeanRelevance

	return models.Opportunity{
		Type:        models.OpportunityGap,
		Category:    stats.Category,
		Title:       fmt.Sprintf("Unserved demand in %s", stats.Category),
		Description: fmt.Sprintf("%d signals in %s with mean impact %.2f and no positive resolution in the batch", stats.Count, stats.Category, stats.MeanImpact),
		Priority:    priorityFor(score),
		Sentiment:   stats.DominantSentiment,
		Keywords:    stats.Keywords,
		Score:       models.Clamp01(score),
	}, true
}

// buildSolution produces the templated response for one opportunity.
// ImpactPotential carries the category mean impact from upstream unchanged.
func buildSolution(opp models.Opportunity, stats *models.CategoryStats) models.Solution {
	positive := 0.0
	if opp.Sentiment == models.SentimentPositive {
		positive = 1.0
	}
	keywordBoost := float64(len(opp.Keywords)) / 10
	if keywordBoost > 0.1 {
		keywordBoost = 0.1
	}
	feasibility := models.Clamp01(0.5 + 0.3*opp.Score + 0.2*positive + keywordBoost)

	impactPotential := 0.0
	if stats != nil {
		impactPotential = stats.MeanImpact
	}

	var title, approach string
	switch opp.Type {
	case models.OpportunityTrend:
		title = fmt.Sprintf("Ride the %s wave", opp.Category)
		approach = "Ship a focused feature into the rising demand before the window closes"
	case models.OpportunityProblem:
		title = fmt.Sprintf("Relieve the %s friction", opp.Category)
		approach = "Target the loudest complaint with a narrow fix and measure sentiment shift"
	case models.OpportunityGap:
		title = fmt.Sprintf("Fill the %s gap", opp.Category)
		approach = "Prototype against the unmet demand and validate with the affected segment"
	}

	return models.Solution{
		OpportunityTitle: opp.Title,
		OpportunityType:  opp.Type,
		Category:         opp.Category,
		Title:            title,
		Description:      fmt.Sprintf("Response to: %s", opp.Description),
		Approach:         approach,
		Priority:         opp.Priority,
		Feasibility:      feasibility,
		ImpactPotential:  impactPotential,
	}
}

// buildInsights emits one insight per opportunity and per solution, plus two
// kinds of strategic insights when the batch warrants them.
func buildInsights(opportunities []models.Opportunity, solutions []models.Solution) []models.Insight {
	var insights []models.Insight

	for _, opp := range opportunities {
		insights = append(insights, models.Insight{
			Type:        "opportunity",
			Title:       opp.Title,
			Description: opp.Description,
			Priority:    opp.Priority,
			Actionable:  opp.Priority == models.PriorityHigh,
		})
	}
	for _, sol := range solutions {
		insights = append(insights, models.Insight{
			Type:        "solution",
			Title:       sol.Title,
			Description: sol.Approach,
			Priority:    sol.Priority,
			Actionable:  true,
		})
	}

	typeCounts := make(map[string]int)
	for _, opp := range opportunities {
		typeCounts[opp.Type]++
	}
	for _, typ := range []string{models.OpportunityTrend, models.OpportunityProblem, models.OpportunityGap} {
		if typeCounts[typ] > sharedTypeBar {
			insights = append(insights, models.Insight{
				Type:        "strategic",
				Title:       fmt.Sprintf("Cluster of %s opportunities", typ),
				Description: fmt.Sprintf("%d %s opportunities in one batch point at a broader shift worth a dedicated review", typeCounts[typ], typ),
				Priority:    models.PriorityHigh,
				Actionable:  true,
			})
		}
	}

	var strong []string
	for _, sol := range solutions {
		if sol.Feasibility > strongFeasibilityBar {
			strong = append(strong, sol.Title)
		}
	}
	if len(strong) > 0 {
		insights = append(insights, models.Insight{
			Type:        "strategic",
			Title:       "High-feasibility plays available",
			Description: fmt.Sprintf("Ready to execute: %s", strings.Join(strong, "; ")),
			Priority:    models.PriorityHigh,
			Actionable:  true,
		})
	}

	return insights
}

func priorityFor(score float64) string {
	switch {
	case score > priorityHighBar:
		return models.PriorityHigh
	case score > priorityMediumBar:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func sortedCategoryNames(categories map[string]*models.CategoryStats) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// intelBatch is one persisted history entry (history key "intel_history").
type intelBatch struct {
	SynthesizedAt time.Time `json:"synthesized_at"`
	Result        Result    `json:"result"`
}

func (s *Synthesizer) appendHistory(ctx context.Context, result Result) {
	var batches []intelBatch
	if data, ok, err := s.store.Load(ctx, history.KeyIntelHistory); err != nil {
		logger.Warn("failed to load intel history, starting empty", zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(data, &batches); err != nil {
			logger.Warn("corrupt intel history, starting empty", zap.Error(err))
			batches = nil
		}
	}

	batches = append(batches, intelBatch{SynthesizedAt: s.now(), Result: result})
	if len(batches) > s.historyLimit {
		batches = batches[len(batches)-s.historyLimit:]
	}

	data, err := json.Marshal(batches)
	if err != nil {
		logger.Error("failed to encode intel history", zap.Error(err))
		return
	}
	if err := s.store.Save(ctx, history.KeyIntelHistory, data); err != nil {
		logger.Error("failed to persist intel history", zap.Error(err))
	}
}
