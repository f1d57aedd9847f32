package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/filtering"
	"github.com/selivandex/signal-intel/internal/intel"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/models"
)

func testCompiler(t *testing.T) (*Compiler, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore()
	c, err := NewCompiler(store)
	if err != nil {
		t.Fatalf("NewCompiler: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	seq := 0
	c.newID = func() string {
		seq++
		return fmt.Sprintf("digest-%d", seq)
	}
	return c, store
}

func richInputs() (intel.Result, trends.Report, filtering.BatchMetrics) {
	stats := &models.CategoryStats{
		Category: "billing", Count: 8, Share: 0.8,
		MeanRelevance: 0.7, MeanImpact: 0.85,
		DominantSentiment: models.SentimentNegative,
		SentimentCounts:   map[string]int{models.SentimentNegative: 8},
	}
	report := trends.Report{
		Distributions: models.Distributions{
			Categories:  map[string]*models.CategoryStats{"billing": stats},
			TopKeywords: []models.KeywordCount{{Keyword: "billing", Count: 6}, {Keyword: "refund", Count: 4}},
			Total:       10,
		},
		Patterns: []models.TrendPattern{
			{Type: models.PatternCategory, Key: "billing", Strength: 0.8, Confidence: 1.0},
		},
		Momentum: models.Momentum{Overall: 0.65},
		Predictions: []models.Prediction{
			{Type: models.PatternCategory, Key: "billing", Outlook: models.OutlookStrong, Momentum: 0.8},
		},
		Alerts: []models.Alert{
			{Kind: "category_momentum", Priority: models.PriorityHigh, Description: "category billing momentum at 0.80 exceeds 0.70"},
		},
	}
	result := intel.Result{
		Opportunities: []models.Opportunity{
			{Type: models.OpportunityProblem, Category: "billing", Title: "Persistent pain around billing",
				Description: "unresolved friction", Priority: models.PriorityHigh, Score: 0.82},
		},
		Solutions: []models.Solution{
			{OpportunityTitle: "Persistent pain around billing", OpportunityType: models.OpportunityProblem,
				Category: "billing", Title: "Relieve the billing friction", Approach: "Target the loudest complaint",
				Priority: models.PriorityHigh, Feasibility: 0.85, ImpactPotential: 0.85},
		},
		Insights: []models.Insight{
			{Type: "opportunity", Title: "Persistent pain around billing", Priority: models.PriorityHigh, Actionable: true},
			{Type: "solution", Title: "Relieve the billing friction", Priority: models.PriorityHigh, Actionable: true},
		},
	}
	metrics := filtering.BatchMetrics{Total: 10, Passed: 8, Rejected: 2, FilterRate: 0.8}
	return result, report, metrics
}

func TestCompiler_FiveSections(t *testing.T) {
	c, _ := testCompiler(t)
	result, report, metrics := richInputs()

	digest, err := c.Compile(context.Background(), result, report, metrics)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	sections := map[string]string{
		"executive summary": digest.Sections.ExecutiveSummary,
		"market trends":     digest.Sections.MarketTrends,
		"opportunities":     digest.Sections.Opportunities,
		"solutions":         digest.Sections.Solutions,
		"recommendations":   digest.Sections.Recommendations,
	}
	for name, body := range sections {
		if strings.TrimSpace(body) == "" {
			t.Errorf("section %s is empty", name)
		}
		if !strings.Contains(digest.Rendered, body) {
			t.Errorf("rendered digest missing section %s", name)
		}
	}

	if digest.Metrics.SectionCount != 5 {
		t.Errorf("section count = %d, want 5", digest.Metrics.SectionCount)
	}
	if digest.Metrics.InsightCount != 2 {
		t.Errorf("insight count = %d, want 2", digest.Metrics.InsightCount)
	}
	if !strings.Contains(digest.Sections.ExecutiveSummary, "10 signals collected") {
		t.Errorf("executive summary missing totals: %q", digest.Sections.ExecutiveSummary)
	}
	if !strings.Contains(digest.Sections.Solutions, "Quick wins") {
		t.Errorf("solutions section missing quick wins: %q", digest.Sections.Solutions)
	}
	if !strings.Contains(digest.Sections.Recommendations, "Execute quick win") {
		t.Errorf("recommendations missing quick-win line: %q", digest.Sections.Recommendations)
	}
}

func TestCompiler_ContentDeterministicAcrossRuns(t *testing.T) {
	result, report, metrics := richInputs()

	c1, _ := testCompiler(t)
	c2, _ := testCompiler(t)
	d1, err := c1.Compile(context.Background(), result, report, metrics)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := c2.Compile(context.Background(), result, report, metrics)
	if err != nil {
		t.Fatal(err)
	}

	if d1.Rendered != d2.Rendered {
		t.Error("identical inputs must render identical content")
	}
	if d1.Metrics != d2.Metrics {
		t.Errorf("metrics differ: %+v vs %+v", d1.Metrics, d2.Metrics)
	}
}

func TestCompiler_FreshIDPerCompile(t *testing.T) {
	c, _ := testCompiler(t)
	result, report, metrics := richInputs()

	d1, _ := c.Compile(context.Background(), result, report, metrics)
	d2, _ := c.Compile(context.Background(), result, report, metrics)
	if d1.ID == d2.ID {
		t.Fatalf("every compile must get a fresh id, both were %q", d1.ID)
	}
}

func TestCompiler_EmptyBatch(t *testing.T) {
	c, _ := testCompiler(t)

	digest, err := c.Compile(context.Background(), intel.Result{}, trends.Report{}, filtering.BatchMetrics{})
	if err != nil {
		t.Fatalf("Compile on empty batch: %v", err)
	}

	// Executive summary and the fallback recommendation still carry content.
	if digest.Metrics.SectionCount != 2 {
		t.Errorf("section count = %d, want 2", digest.Metrics.SectionCount)
	}
	if digest.Metrics.ActionCount != 1 {
		t.Errorf("action count = %d, want 1 (fallback recommendation)", digest.Metrics.ActionCount)
	}
	if !strings.Contains(digest.Sections.Recommendations, "Maintain the monitoring cadence") {
		t.Errorf("missing fallback recommendation: %q", digest.Sections.Recommendations)
	}
	if digest.Metrics.DigestScore <= 0 || digest.Metrics.DigestScore >= 1 {
		t.Errorf("digest score = %v, want within (0, 1)", digest.Metrics.DigestScore)
	}
}

func TestCompiler_TopKLimits(t *testing.T) {
	c, _ := testCompiler(t)
	result, report, metrics := richInputs()

	result.Opportunities = nil
	result.Solutions = nil
	for i := 0; i < 7; i++ {
		result.Opportunities = append(result.Opportunities, models.Opportunity{
			Type: models.OpportunityProblem, Category: "billing",
			Title:    fmt.Sprintf("Opportunity %d", i),
			Priority: models.PriorityHigh, Score: 0.9 - float64(i)*0.01,
		})
		result.Solutions = append(result.Solutions, models.Solution{
			Title: fmt.Sprintf("Solution %d", i), Approach: "do it",
			Priority: models.PriorityHigh, Feasibility: 0.9, ImpactPotential: 0.9,
		})
	}

	digest, err := c.Compile(context.Background(), result, report, metrics)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(digest.Sections.Recommendations, "Execute quick win"); got != 3 {
		t.Errorf("quick wins in recommendations = %d, want capped at 3", got)
	}
	highPriorityBlock := digest.Sections.Opportunities[:strings.Index(digest.Sections.Opportunities, "Also on the radar")]
	if got := strings.Count(highPriorityBlock, "- Opportunity"); got != 5 {
		t.Errorf("high-priority opportunities listed = %d, want capped at 5", got)
	}
}

func TestCompiler_DigestScoreFormula(t *testing.T) {
	c, _ := testCompiler(t)
	result, report, metrics := richInputs()

	digest, err := c.Compile(context.Background(), result, report, metrics)
	if err != nil {
		t.Fatal(err)
	}

	m := digest.Metrics
	words := float64(m.WordCount) / 1000
	if words > 1 {
		words = 1
	}
	actions := float64(m.ActionCount) / 10
	if actions > 1 {
		actions = 1
	}
	want := 0.4*(float64(m.SectionCount)/5) + 0.3*words + 0.3*actions
	if math.Abs(m.DigestScore-want) > 1e-9 {
		t.Errorf("digest score = %v, want %v", m.DigestScore, want)
	}
}

func TestCompiler_HistoryBounded(t *testing.T) {
	c, store := testCompiler(t)
	c.historyLimit = 2
	result, report, metrics := richInputs()

	for i := 0; i < 4; i++ {
		if _, err := c.Compile(context.Background(), result, report, metrics); err != nil {
			t.Fatal(err)
		}
	}

	data, ok, err := store.Load(context.Background(), history.KeyDigestHistory)
	if err != nil || !ok {
		t.Fatalf("load history: ok=%v err=%v", ok, err)
	}
	var records []digestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("history length = %d, want 2", len(records))
	}
	if records[1].ID != "digest-4" {
		t.Errorf("latest record id = %q, want digest-4", records[1].ID)
	}
}
