package trends

import (
	"math"
	"strings"
	"testing"

	"github.com/selivandex/signal-intel/pkg/models"
)

func pattern(typ, key string, strength, confidence float64) models.TrendPattern {
	return models.TrendPattern{Type: typ, Key: key, Strength: strength, Confidence: confidence}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeMomentum_TypeWeights(t *testing.T) {
	patterns := []models.TrendPattern{
		pattern(models.PatternCategory, "billing", 0.5, 0.8),
		pattern(models.PatternKeyword, "refund", 0.4, 0.6),
		pattern(models.PatternSentiment, models.SentimentNegative, 0.7, 0.8),
		pattern(models.PatternImpact, "increasing", 0.3, 0.7),
	}

	m := computeMomentum(patterns)

	want := 0.3*0.5 + 0.2*0.4 + 0.2*0.7 + 0.3*0.3
	if !almostEqual(m.Overall, want) {
		t.Errorf("overall = %v, want %v", m.Overall, want)
	}
	if !almostEqual(m.PerCategory["billing"], 0.4) {
		t.Errorf("per-category = %v, want 0.4", m.PerCategory["billing"])
	}
	if !almostEqual(m.PerKeyword["refund"], 0.24) {
		t.Errorf("per-keyword = %v, want 0.24", m.PerKeyword["refund"])
	}
	if !almostEqual(m.Sentiment, 0.56) {
		t.Errorf("sentiment = %v, want 0.56", m.Sentiment)
	}
	if !almostEqual(m.Impact, 0.21) {
		t.Errorf("impact = %v, want 0.21", m.Impact)
	}
}

func TestComputeMomentum_Clamped(t *testing.T) {
	patterns := []models.TrendPattern{
		pattern(models.PatternCategory, "a", 1.0, 1.0),
		pattern(models.PatternCategory, "b", 1.0, 1.0),
		pattern(models.PatternCategory, "c", 1.0, 1.0),
		pattern(models.PatternImpact, "increasing", 1.0, 1.0),
		pattern(models.PatternSentiment, models.SentimentPositive, 1.0, 1.0),
	}

	m := computeMomentum(patterns)
	if m.Overall != 1.0 {
		t.Errorf("overall = %v, want clamped 1.0", m.Overall)
	}
}

func TestComputeMomentum_MaxOfType(t *testing.T) {
	patterns := []models.TrendPattern{
		pattern(models.PatternSentiment, models.SentimentPositive, 0.9, 0.8),
		pattern(models.PatternSentiment, models.SentimentNegative, 0.65, 0.8),
	}

	m := computeMomentum(patterns)
	if !almostEqual(m.Sentiment, 0.72) {
		t.Errorf("sentiment momentum = %v, want max 0.72", m.Sentiment)
	}
}

func TestComputeCorrelations(t *testing.T) {
	patterns := []models.TrendPattern{
		pattern(models.PatternCategory, "billing", 0.8, 1.0),
		pattern(models.PatternKeyword, "refund", 0.7, 1.0),
		pattern(models.PatternImpact, "increasing", 0.1, 1.0),
	}

	correlations := computeCorrelations(patterns)

	// |0.8-0.7| -> 0.9 in; |0.8-0.1| -> 0.3 out; |0.7-0.1| -> 0.4 out.
	if len(correlations) != 1 {
		t.Fatalf("correlations = %d, want 1", len(correlations))
	}
	c := correlations[0]
	if c.PatternA != "category:billing" || c.PatternB != "keyword:refund" {
		t.Errorf("pair = %q / %q", c.PatternA, c.PatternB)
	}
	if !almostEqual(c.Score, 0.9) {
		t.Errorf("score = %v, want 0.9", c.Score)
	}
}

func TestComputeCorrelations_ExactBoundaryExcluded(t *testing.T) {
	patterns := []models.TrendPattern{
		pattern(models.PatternCategory, "a", 0.75, 1.0),
		pattern(models.PatternCategory, "b", 0.25, 1.0),
	}
	if got := computeCorrelations(patterns); len(got) != 0 {
		t.Fatalf("score exactly 0.5 must be excluded, got %d pairs", len(got))
	}
}

func TestComputePredictions_Tiers(t *testing.T) {
	tests := []struct {
		name        string
		strength    float64
		confidence  float64
		wantOutlook string
		wantNone    bool
	}{
		{"strong continuation", 0.9, 0.9, models.OutlookStrong, false},
		{"moderate continuation", 0.8, 0.8, models.OutlookModerate, false},
		{"weak continuation", 0.7, 0.5, models.OutlookWeak, false},
		{"below weak bar", 0.5, 0.5, "", true},
		{"exactly at weak bar", 0.6, 0.5, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds := computePredictions([]models.TrendPattern{
				pattern(models.PatternCategory, "billing", tt.strength, tt.confidence),
			})
			if tt.wantNone {
				if len(preds) != 0 {
					t.Fatalf("want no prediction, got %+v", preds)
				}
				return
			}
			if len(preds) != 1 {
				t.Fatalf("predictions = %d, want 1", len(preds))
			}
			if preds[0].Outlook != tt.wantOutlook {
				t.Errorf("outlook = %q, want %q", preds[0].Outlook, tt.wantOutlook)
			}
			if !almostEqual(preds[0].Momentum, tt.strength*tt.confidence) {
				t.Errorf("momentum = %v, want %v", preds[0].Momentum, tt.strength*tt.confidence)
			}
		})
	}
}

func TestBuildAlerts(t *testing.T) {
	tests := []struct {
		name      string
		momentum  models.Momentum
		wantKinds []string
	}{
		{
			name:      "quiet batch raises nothing",
			momentum:  models.Momentum{Overall: 0.5, Sentiment: 0.5, Impact: 0.5},
			wantKinds: nil,
		},
		{
			name: "overall above bar",
			momentum: models.Momentum{
				Overall: 0.85,
			},
			wantKinds: []string{"overall_momentum"},
		},
		{
			name: "per-key alerts in sorted order",
			momentum: models.Momentum{
				PerCategory: map[string]float64{"security": 0.75, "billing": 0.8},
				PerKeyword:  map[string]float64{"ai": 0.65},
			},
			wantKinds: []string{"category_momentum", "category_momentum", "keyword_momentum"},
		},
		{
			name: "exact thresholds excluded",
			momentum: models.Momentum{
				Overall:     0.8,
				Sentiment:   0.8,
				Impact:      0.7,
				PerCategory: map[string]float64{"billing": 0.7},
				PerKeyword:  map[string]float64{"ai": 0.6},
			},
			wantKinds: nil,
		},
		{
			name: "sentiment and impact",
			momentum: models.Momentum{
				Sentiment: 0.81,
				Impact:    0.71,
			},
			wantKinds: []string{"sentiment_momentum", "impact_momentum"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := buildAlerts(tt.momentum)
			if len(alerts) != len(tt.wantKinds) {
				t.Fatalf("alerts = %d (%+v), want %d", len(alerts), alerts, len(tt.wantKinds))
			}
			for i, kind := range tt.wantKinds {
				if alerts[i].Kind != kind {
					t.Errorf("alert[%d].Kind = %q, want %q", i, alerts[i].Kind, kind)
				}
			}
		})
	}
}

func TestBuildAlerts_SortedCategoryKeys(t *testing.T) {
	alerts := buildAlerts(models.Momentum{
		PerCategory: map[string]float64{"security": 0.9, "automation": 0.9, "billing": 0.9},
	})
	if len(alerts) != 3 {
		t.Fatalf("alerts = %d, want 3", len(alerts))
	}
	wantOrder := []string{"automation", "billing", "security"}
	for i, category := range wantOrder {
		if want := "category " + category; !strings.Contains(alerts[i].Description, want) {
			t.Errorf("alert[%d] = %q, want mention of %q", i, alerts[i].Description, want)
		}
	}
}
