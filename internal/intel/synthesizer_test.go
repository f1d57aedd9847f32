package intel

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/models"
)

func testSynthesizer() *Synthesizer {
	s := NewSynthesizer(history.NewMemoryStore())
	s.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func reportWith(stats ...*models.CategoryStats) trends.Report {
	categories := make(map[string]*models.CategoryStats)
	for _, st := range stats {
		categories[st.Category] = st
	}
	return trends.Report{
		Distributions: models.Distributions{Categories: categories, Total: 1},
	}
}

func opportunityOf(result Result, typ, category string) (models.Opportunity, bool) {
	for _, opp := range result.Opportunities {
		if opp.Type == typ && opp.Category == category {
			return opp, true
		}
	}
	return models.Opportunity{}, false
}

func TestSynthesizer_TrendOpportunity(t *testing.T) {
	tests := []struct {
		name      string
		stats     *models.CategoryStats
		wantEmit  bool
		wantScore float64
	}{
		{
			name: "strong positive category emits",
			stats: &models.CategoryStats{
				Category: "ai_development", Count: 10, Share: 0.8,
				MeanRelevance: 0.7, MeanImpact: 0.8,
				DominantSentiment: models.SentimentPositive,
				SentimentCounts:   map[string]int{models.SentimentPositive: 8, models.SentimentNeutral: 2},
			},
			wantEmit:  true,
			wantScore: 0.3*0.8 + 0.3*0.7 + 0.3*0.8 + 0.1,
		},
		{
			name: "score exactly at bar does not emit",
			stats: &models.CategoryStats{
				// 0.3*1.0 + 0.3*1.0 + 0.3*0 + 0.1 = 0.7 exactly.
				Category: "automation", Count: 5, Share: 1.0,
				MeanRelevance: 1.0, MeanImpact: 0.0,
				DominantSentiment: models.SentimentPositive,
				SentimentCounts:   map[string]int{models.SentimentPositive: 5},
			},
			wantEmit: false,
		},
		{
			name: "negative dominant category never trends",
			stats: &models.CategoryStats{
				Category: "billing", Count: 10, Share: 1.0,
				MeanRelevance: 0.9, MeanImpact: 0.9,
				DominantSentiment: models.SentimentNegative,
				SentimentCounts:   map[string]int{models.SentimentNegative: 10},
			},
			wantEmit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testSynthesizer().Synthesize(context.Background(), reportWith(tt.stats))
			opp, ok := opportunityOf(result, models.OpportunityTrend, tt.stats.Category)
			if ok != tt.wantEmit {
				t.Fatalf("trend opportunity emitted = %v, want %v", ok, tt.wantEmit)
			}
			if tt.wantEmit && math.Abs(opp.Score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v", opp.Score, tt.wantScore)
			}
		})
	}
}

func TestSynthesizer_ProblemOpportunity(t *testing.T) {
	stats := &models.CategoryStats{
		Category: "billing", Count: 10, Share: 0.5,
		MeanRelevance: 0.6, MeanImpact: 0.8,
		DominantSentiment: models.SentimentNegative,
		SentimentCounts:   map[string]int{models.SentimentNegative: 8, models.SentimentNeutral: 2},
	}

	result := testSynthesizer().Synthesize(context.Background(), reportWith(stats))

	opp, ok := opportunityOf(result, models.OpportunityProblem, "billing")
	if !ok {
		t.Fatal("expected problem opportunity")
	}
	want := 0.5*0.8 + 0.3*0.5 + 0.2*0.8
	if math.Abs(opp.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", opp.Score, want)
	}
	if opp.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want medium for score %v", opp.Priority, want)
	}

	if _, ok := opportunityOf(result, models.OpportunityTrend, "billing"); ok {
		t.Error("negative-dominant category must not also emit a trend opportunity")
	}
}

func TestSynthesizer_ProblemRequiresImpact(t *testing.T) {
	stats := &models.CategoryStats{
		Category: "billing", Count: 10, Share: 0.5,
		MeanRelevance: 0.6, MeanImpact: 0.6, // exactly at bar
		DominantSentiment: models.SentimentNegative,
		SentimentCounts:   map[string]int{models.SentimentNegative: 10},
	}
	result := testSynthesizer().Synthesize(context.Background(), reportWith(stats))
	if _, ok := opportunityOf(result, models.OpportunityProblem, "billing"); ok {
		t.Fatal("mean impact exactly 0.6 must not emit a problem opportunity")
	}
}

func TestSynthesizer_GapOpportunity(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		impact   float64
		wantEmit bool
	}{
		{"qualifies", 6, 0.75, true},
		{"count exactly five", 5, 0.75, false},
		{"impact exactly at bar", 6, 0.7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &models.CategoryStats{
				Category: "integration", Count: tt.count, Share: 0.6,
				MeanRelevance: 0.7, MeanImpact: tt.impact,
				DominantSentiment: models.SentimentNegative,
				SentimentCounts:   map[string]int{models.SentimentNegative: tt.count},
			}
			result := testSynthesizer().Synthesize(context.Background(), reportWith(stats))
			_, ok := opportunityOf(result, models.OpportunityGap, "integration")
			if ok != tt.wantEmit {
				t.Fatalf("gap emitted = %v, want %v", ok, tt.wantEmit)
			}
		})
	}
}

func TestSynthesizer_SolutionPerOpportunity(t *testing.T) {
	stats := &models.CategoryStats{
		Category: "billing", Count: 8, Share: 0.8,
		MeanRelevance: 0.7, MeanImpact: 0.85,
		DominantSentiment: models.SentimentNegative,
		SentimentCounts:   map[string]int{models.SentimentNegative: 8},
		Keywords:          []string{"billing", "invoice", "refund"},
	}

	result := testSynthesizer().Synthesize(context.Background(), reportWith(stats))

	// Negative category with count 8 and impact 0.85 yields problem + gap.
	if len(result.Opportunities) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(result.Opportunities))
	}
	if len(result.Solutions) != len(result.Opportunities) {
		t.Fatalf("solutions = %d, want one per opportunity", len(result.Solutions))
	}
	for i, sol := range result.Solutions {
		opp := result.Opportunities[i]
		if sol.OpportunityTitle != opp.Title || sol.OpportunityType != opp.Type {
			t.Errorf("solution %d not linked to its opportunity", i)
		}
		if sol.ImpactPotential != 0.85 {
			t.Errorf("impact potential = %v, want upstream mean impact 0.85", sol.ImpactPotential)
		}
		// Negative sentiment contributes 0; three keywords saturate the
		// keyword boost cap: min(3/10, 0.1) = 0.1.
		want := 0.5 + 0.3*opp.Score + 0.1
		if math.Abs(sol.Feasibility-want) > 1e-9 {
			t.Errorf("feasibility = %v, want %v", sol.Feasibility, want)
		}
	}
}

func TestSynthesizer_StrategicInsights(t *testing.T) {
	// Three negative high-impact categories: 3 problem + 3 gap opportunities.
	negative := func(category string) *models.CategoryStats {
		return &models.CategoryStats{
			Category: category, Count: 7, Share: 0.3,
			MeanRelevance: 0.7, MeanImpact: 0.8,
			DominantSentiment: models.SentimentNegative,
			SentimentCounts:   map[string]int{models.SentimentNegative: 7},
		}
	}

	result := testSynthesizer().Synthesize(context.Background(),
		reportWith(negative("billing"), negative("integration"), negative("security")))

	if len(result.Opportunities) != 6 {
		t.Fatalf("opportunities = %d, want 6", len(result.Opportunities))
	}

	var clusters, feasibilityPlays int
	for _, insight := range result.Insights {
		if insight.Type != "strategic" {
			continue
		}
		if insight.Title == "High-feasibility plays available" {
			feasibilityPlays++
		} else {
			clusters++
		}
	}
	if clusters != 2 {
		t.Errorf("cluster insights = %d, want 2 (problem and gap types both exceed 2)", clusters)
	}
	if feasibilityPlays != 1 {
		t.Errorf("feasibility insights = %d, want 1", feasibilityPlays)
	}

	// One insight per opportunity and per solution plus the strategic ones.
	want := 6 + 6 + 2 + 1
	if len(result.Insights) != want {
		t.Errorf("insights = %d, want %d", len(result.Insights), want)
	}
}

func TestSynthesizer_EmptyReport(t *testing.T) {
	result := testSynthesizer().Synthesize(context.Background(), trends.Report{
		Distributions: models.Distributions{Categories: map[string]*models.CategoryStats{}},
	})
	if len(result.Opportunities) != 0 || len(result.Solutions) != 0 || len(result.Insights) != 0 {
		t.Fatalf("empty report must synthesize nothing, got %+v", result)
	}
}

func TestSynthesizer_Deterministic(t *testing.T) {
	stats := &models.CategoryStats{
		Category: "billing", Count: 8, Share: 0.8,
		MeanRelevance: 0.7, MeanImpact: 0.85,
		DominantSentiment: models.SentimentNegative,
		SentimentCounts:   map[string]int{models.SentimentNegative: 8},
	}
	a, _ := json.Marshal(testSynthesizer().Synthesize(context.Background(), reportWith(stats)))
	b, _ := json.Marshal(testSynthesizer().Synthesize(context.Background(), reportWith(stats)))
	if string(a) != string(b) {
		t.Fatal("identical reports must synthesize identical results")
	}
}

func TestSynthesizer_HistoryBounded(t *testing.T) {
	s := testSynthesizer()
	s.historyLimit = 2
	store := s.store.(*history.MemoryStore)

	for i := 0; i < 4; i++ {
		s.Synthesize(context.Background(), trends.Report{
			Distributions: models.Distributions{Categories: map[string]*models.CategoryStats{}},
		})
	}

	data, ok, err := store.Load(context.Background(), history.KeyIntelHistory)
	if err != nil || !ok {
		t.Fatalf("load history: ok=%v err=%v", ok, err)
	}
	var batches []intelBatch
	if err := json.Unmarshal(data, &batches); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("history length = %d, want 2", len(batches))
	}
}
