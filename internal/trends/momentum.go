package trends

import (
	"fmt"
	"sort"

	"github.com/selivandex/signal-intel/pkg/models"
)

// Type weights for overall momentum.
const (
	momentumCategoryWeight  = 0.3
	momentumKeywordWeight   = 0.2
	momentumSentimentWeight = 0.2
	momentumImpactWeight    = 0.3
)

const correlationBar = 0.5

// Prediction tiers over m = strength * confidence.
const (
	predictionStrongBar   = 0.7
	predictionModerateBar = 0.5
	predictionWeakBar     = 0.3
)

// Alert thresholds.
const (
	alertOverallBar   = 0.8
	alertCategoryBar  = 0.7
	alertKeywordBar   = 0.6
	alertSentimentBar = 0.8
	alertImpactBar    = 0.7
)

// computeMomentum aggregates pattern strength into per-key and per-type
// momentum. Per-key entries carry strength*confidence; the sentiment and
// impact components take the strongest pattern of their type.
func computeMomentum(patterns []models.TrendPattern) models.Momentum {
	momentum := models.Momentum{
		PerCategory: make(map[string]float64),
		PerKeyword:  make(map[string]float64),
	}

	var overall float64
	for _, pattern := range patterns {
		weighted := pattern.Strength * pattern.Confidence
		switch pattern.Type {
		case models.PatternCategory:
			momentum.PerCategory[pattern.Key] = weighted
			overall += momentumCategoryWeight * pattern.Strength
		case models.PatternKeyword:
			momentum.PerKeyword[pattern.Key] = weighted
			overall += momentumKeywordWeight * pattern.Strength
		case models.PatternSentiment:
			overall += momentumSentimentWeight * pattern.Strength
			if weighted > momentum.Sentiment {
				momentum.Sentiment = weighted
			}
		case models.PatternImpact:
			overall += momentumImpactWeight * pattern.Strength
			if weighted > momentum.Impact {
				momentum.Impact = weighted
			}
		}
	}

	momentum.Overall = models.Clamp01(overall)
	return momentum
}

// computeCorrelations scores every pattern pair by strength proximity,
// keeping pairs with 1-|s1-s2| above the bar.
func computeCorrelations(patterns []models.TrendPattern) []models.Correlation {
	var correlations []models.Correlation
	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			score := 1 - abs(patterns[i].Strength-patterns[j].Strength)
			if score > correlationBar {
				correlations = append(correlations, models.Correlation{
					PatternA: patternName(patterns[i]),
					PatternB: patternName(patterns[j]),
					Score:    score,
				})
			}
		}
	}
	sort.Slice(correlations, func(i, j int) bool {
		if correlations[i].Score != correlations[j].Score {
			return correlations[i].Score > correlations[j].Score
		}
		if correlations[i].PatternA != correlations[j].PatternA {
			return correlations[i].PatternA < correlations[j].PatternA
		}
		return correlations[i].PatternB < correlations[j].PatternB
	})
	return correlations
}

// computePredictions projects each pattern's continuation outlook from
// m = strength * confidence. Patterns below the weak bar yield no prediction.
func computePredictions(patterns []models.TrendPattern) []models.Prediction {
	var predictions []models.Prediction
	for _, pattern := range patterns {
		m := pattern.Strength * pattern.Confidence
		var outlook string
		switch {
		case m > predictionStrongBar:
			outlook = models.OutlookStrong
		case m > predictionModerateBar:
			outlook = models.OutlookModerate
		case m > predictionWeakBar:
			outlook = models.OutlookWeak
		default:
			continue
		}
		predictions = append(predictions, models.Prediction{
			Type:     pattern.Type,
			Key:      pattern.Key,
			Outlook:  outlook,
			Momentum: m,
		})
	}
	return predictions
}

// buildAlerts raises alerts for momentum components above their thresholds.
// Per-key alerts are emitted in sorted key order.
func buildAlerts(momentum models.Momentum) []models.Alert {
	var alerts []models.Alert

	if momentum.Overall > alertOverallBar {
		alerts = append(alerts, models.Alert{
			Kind:        "overall_momentum",
			Priority:    models.PriorityHigh,
			Description: fmt.Sprintf("overall momentum at %.2f exceeds %.2f", momentum.Overall, alertOverallBar),
		})
	}
	for _, key := range sortedKeys(momentum.PerCategory) {
		if value := momentum.PerCategory[key]; value > alertCategoryBar {
			alerts = append(alerts, models.Alert{
				Kind:        "category_momentum",
				Priority:    models.PriorityHigh,
				Description: fmt.Sprintf("category %s momentum at %.2f exceeds %.2f", key, value, alertCategoryBar),
			})
		}
	}
	for _, key := range sortedKeys(momentum.PerKeyword) {
		if value := momentum.PerKeyword[key]; value > alertKeywordBar {
			alerts = append(alerts, models.Alert{
				Kind:        "keyword_momentum",
				Priority:    models.PriorityMedium,
				Description: fmt.Sprintf("keyword %q momentum at %.2f exceeds %.2f", key, value, alertKeywordBar),
			})
		}
	}
	if momentum.Sentiment > alertSentimentBar {
		alerts = append(alerts, models.Alert{
			Kind:        "sentiment_momentum",
			Priority:    models.PriorityMedium,
			Description: fmt.Sprintf("sentiment momentum at %.2f exceeds %.2f", momentum.Sentiment, alertSentimentBar),
		})
	}
	if momentum.Impact > alertImpactBar {
		alerts = append(alerts, models.Alert{
			Kind:        "impact_momentum",
			Priority:    models.PriorityHigh,
			Description: fmt.Sprintf("impact momentum at %.2f exceeds %.2f", momentum.Impact, alertImpactBar),
		})
	}
	return alerts
}

func patternName(pattern models.TrendPattern) string {
	return pattern.Type + ":" + pattern.Key
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
