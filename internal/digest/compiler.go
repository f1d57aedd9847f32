// Package digest compiles intelligence results into a five-section markdown
// digest with quality metrics.
package digest

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/filtering"
	"github.com/selivandex/signal-intel/internal/intel"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/models"
	"github.com/selivandex/signal-intel/pkg/templates"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Fixed top-K extraction limits.
const (
	topCategories     = 5
	topKeywords       = 10
	topHighPriority   = 5
	topQuickWins      = 3
	topStrategic      = 3
	quickWinFeasBar   = 0.8
	quickWinImpact    = 0.7
	strategicImpact   = 0.8
	totalSections     = 5
	wordCalibration   = 1000.0
	actionCalibration = 10.0
)

const defaultHistoryLimit = 50

var sectionTemplates = []string{
	"executive_summary.tmpl",
	"market_trends.tmpl",
	"opportunities.tmpl",
	"solutions.tmpl",
	"recommendations.tmpl",
}

// Compiler renders digests through the shared template manager and keeps a
// bounded digest history.
type Compiler struct {
	renderer     templates.Renderer
	store        history.Store
	historyLimit int
	now          func() time.Time
	newID        func() string
}

// NewCompiler creates new digest compiler
func NewCompiler(store history.Store) (*Compiler, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded templates: %w", err)
	}
	manager, err := templates.NewManager(sub)
	if err != nil {
		return nil, err
	}
	for _, name := range sectionTemplates {
		if !manager.TemplateExists(name) {
			return nil, fmt.Errorf("missing digest section template %q", name)
		}
	}
	return &Compiler{
		renderer:     manager,
		store:        store,
		historyLimit: defaultHistoryLimit,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}, nil
}

// view is the data handed to every section template.
type view struct {
	TotalSignals       int
	Passed             int
	Rejected           int
	FilterRate         float64
	OverallMomentum    float64
	Patterns           []models.TrendPattern
	Predictions        []models.Prediction
	Alerts             []models.Alert
	TopCategories      []*models.CategoryStats
	TopKeywords        []models.KeywordCount
	HighPriority       []models.Opportunity
	OtherOpportunities []models.Opportunity
	QuickWins          []models.Solution
	StrategicPlays     []models.Solution
	OtherSolutions     []models.Solution
	Recommendations    []string
}

// Compile renders the five sections and derives the digest metrics. The
// returned digest is immutable; every call yields a fresh ID and timestamp.
func (c *Compiler) Compile(ctx context.Context, result intel.Result, report trends.Report, metrics filtering.BatchMetrics) (*models.Digest, error) {
	v := buildView(result, report, metrics)

	rendered := make([]string, 0, len(sectionTemplates))
	for _, name := range sectionTemplates {
		section, err := c.renderer.ExecuteTemplate(name, v)
		if err != nil {
			return nil, fmt.Errorf("failed to render section %q: %w", name, err)
		}
		rendered = append(rendered, strings.TrimSpace(section))
	}

	sections := models.DigestSections{
		ExecutiveSummary: rendered[0],
		MarketTrends:     rendered[1],
		Opportunities:    rendered[2],
		Solutions:        rendered[3],
		Recommendations:  rendered[4],
	}
	body := strings.Join(rendered, "\n\n")

	digest := &models.Digest{
		GeneratedAt: c.now(),
		ID:          c.newID(),
		Rendered:    body,
		Sections:    sections,
		Metrics:     computeMetrics(rendered, body, result.Insights, v.Recommendations),
	}

	logger.Debug("digest compiled",
		zap.String("digest_id", digest.ID),
		zap.Int("word_count", digest.Metrics.WordCount),
		zap.Float64("digest_score", digest.Metrics.DigestScore),
	)

	c.appendHistory(ctx, digest)
	return digest, nil
}

func buildView(result intel.Result, report trends.Report, metrics filtering.BatchMetrics) view {
	v := view{
		TotalSignals:    metrics.Total,
		Passed:          metrics.Passed,
		Rejected:        metrics.Rejected,
		FilterRate:      metrics.FilterRate,
		OverallMomentum: report.Momentum.Overall,
		Patterns:        report.Patterns,
		Predictions:     report.Predictions,
		Alerts:          report.Alerts,
		TopKeywords:     report.Distributions.TopKeywords,
	}
	if len(v.TopKeywords) > topKeywords {
		v.TopKeywords = v.TopKeywords[:topKeywords]
	}

	categories := make([]*models.CategoryStats, 0, len(report.Distributions.Categories))
	for _, stats := range report.Distributions.Categories {
		categories = append(categories, stats)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Count != categories[j].Count {
			return categories[i].Count > categories[j].Count
		}
		return categories[i].Category < categories[j].Category
	})
	if len(categories) > topCategories {
		categories = categories[:topCategories]
	}
	v.TopCategories = categories

	byScore := make([]models.Opportunity, len(result.Opportunities))
	copy(byScore, result.Opportunities)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })
	for _, opp := range byScore {
		if opp.Priority == models.PriorityHigh && len(v.HighPriority) < topHighPriority {
			v.HighPriority = append(v.HighPriority, opp)
		} else {
			v.OtherOpportunities = append(v.OtherOpportunities, opp)
		}
	}

	quickWinSet := make(map[string]bool)
	bySolution := make([]models.Solution, len(result.Solutions))
	copy(bySolution, result.Solutions)
	sort.SliceStable(bySolution, func(i, j int) bool { return bySolution[i].Feasibility > bySolution[j].Feasibility })
	for _, sol := range bySolution {
		if sol.Feasibility > quickWinFeasBar && sol.ImpactPotential > quickWinImpact && len(v.QuickWins) < topQuickWins {
			v.QuickWins = append(v.QuickWins, sol)
			quickWinSet[sol.Title] = true
		}
	}
	sort.SliceStable(bySolution, func(i, j int) bool { return bySolution[i].ImpactPotential > bySolution[j].ImpactPotential })
	strategicSet := make(map[string]bool)
	for _, sol := range bySolution {
		if sol.ImpactPotential > strategicImpact && len(v.StrategicPlays) < topStrategic {
			v.StrategicPlays = append(v.StrategicPlays, sol)
			strategicSet[sol.Title] = true
		}
	}
	for _, sol := range result.Solutions {
		if !quickWinSet[sol.Title] && !strategicSet[sol.Title] {
			v.OtherSolutions = append(v.OtherSolutions, sol)
		}
	}

	for _, sol := range v.QuickWins {
		v.Recommendations = append(v.Recommendations, fmt.Sprintf("Execute quick win: %s — %s", sol.Title, sol.Approach))
	}
	for _, sol := range v.StrategicPlays {
		v.Recommendations = append(v.Recommendations, fmt.Sprintf("Invest in strategic play: %s", sol.Title))
	}
	for _, alert := range report.Alerts {
		if alert.Priority == models.PriorityHigh {
			v.Recommendations = append(v.Recommendations, fmt.Sprintf("Review alert: %s", alert.Description))
		}
	}
	if len(v.Recommendations) == 0 {
		v.Recommendations = []string{"Maintain the monitoring cadence; no high-conviction actions this cycle"}
	}

	return v
}

// computeMetrics derives the digest quality metrics. A section counts as
// filled when it carries content beyond its header line.
func computeMetrics(sections []string, body string, insights []models.Insight, recommendations []string) models.DigestMetrics {
	filled := 0
	for _, section := range sections {
		if sectionFilled(section) {
			filled++
		}
	}

	words := len(strings.Fields(body))

	actionable := 0
	for _, insight := range insights {
		if insight.Actionable {
			actionable++
		}
	}
	actions := actionable + len(recommendations)

	score := 0.4*(float64(filled)/totalSections) +
		0.3*minFloat(float64(words)/wordCalibration, 1) +
		0.3*minFloat(float64(actions)/actionCalibration, 1)

	return models.DigestMetrics{
		SectionCount: filled,
		WordCount:    words,
		InsightCount: len(insights),
		ActionCount:  actions,
		DigestScore:  models.Clamp01(score),
	}
}

func sectionFilled(section string) bool {
	lines := 0
	for _, line := range strings.Split(section, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	return lines > 1
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// digestRecord is one persisted history entry (history key "digest_history").
type digestRecord struct {
	GeneratedAt time.Time             `json:"generated_at"`
	ID          string                `json:"id"`
	Metrics     models.DigestMetrics  `json:"metrics"`
	Sections    models.DigestSections `json:"sections"`
}

func (c *Compiler) appendHistory(ctx context.Context, digest *models.Digest) {
	var records []digestRecord
	if data, ok, err := c.store.Load(ctx, history.KeyDigestHistory); err != nil {
		logger.Warn("failed to load digest history, starting empty", zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(data, &records); err != nil {
			logger.Warn("corrupt digest history, starting empty", zap.Error(err))
			records = nil
		}
	}

	records = append(records, digestRecord{
		GeneratedAt: digest.GeneratedAt,
		ID:          digest.ID,
		Metrics:     digest.Metrics,
		Sections:    digest.Sections,
	})
	if len(records) > c.historyLimit {
		records = records[len(records)-c.historyLimit:]
	}

	data, err := json.Marshal(records)
	if err != nil {
		logger.Error("failed to encode digest history", zap.Error(err))
		return
	}
	if err := c.store.Save(ctx, history.KeyDigestHistory, data); err != nil {
		logger.Error("failed to persist digest history", zap.Error(err))
	}
}
