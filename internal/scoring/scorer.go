package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/pkg/models"
)

// Combination weights for the filter score.
const (
	weightRelevance = 0.4
	weightImpact    = 0.3
	weightTrend     = 0.2
	weightSentiment = 0.1

	relevanceBase       = 0.5
	categoryBonus       = 0.1
	neutralityBand      = 0.1
	engagementHigh      = 1.0
	engagementMedium    = 0.6
	engagementLow       = 0.3
	highEngagementBar   = 500.0
	mediumEngagementBar = 100.0
)

// Scorer computes the five sub-scores per signal and combines them into one
// filter score. Score is pure and total: malformed input degrades to neutral
// contributions, never to an error.
type Scorer struct {
	cfg           *config.ScoringConfig
	buckets       []CategoryBucket
	vocabulary    []WeightedKeyword
	positiveWords []WeightedKeyword
	negativeWords []WeightedKeyword
	now           func() time.Time
}

// NewScorer creates new scorer
func NewScorer(cfg *config.ScoringConfig) *Scorer {
	return &Scorer{
		cfg:           cfg,
		buckets:       buildCategoryBuckets(),
		vocabulary:    buildVocabulary(),
		positiveWords: buildPositiveWords(),
		negativeWords: buildNegativeWords(),
		now:           time.Now,
	}
}

// Score computes the scored record for one signal.
func (s *Scorer) Score(signal models.Signal) models.ScoredSignal {
	text := strings.ToLower(signal.Title + " " + signal.Description)
	tokens := tokenize(text)

	category, confidence := s.classify(signal, text, tokens)

	relevance := s.scoreRelevance(text, tokens, category)
	engagement := s.engagementLevel(signal)
	impact := s.scoreImpact(signal, engagement, relevance)
	trend := s.scoreTrend(signal, engagement, relevance)
	polarity := s.scorePolarity(tokens)
	label := sentimentLabel(polarity)
	magnitude := models.Clamp01(abs(polarity))

	combined := weightRelevance*relevance +
		weightImpact*impact +
		weightTrend*trend +
		weightSentiment*magnitude
	combined *= s.categoryWeight(category)
	combined *= s.sentimentWeight(label)

	return models.ScoredSignal{
		Signal:             signal,
		ScoredAt:           s.now(),
		Keywords:           s.extractKeywords(text, tokens),
		Relevance:          relevance,
		Impact:             impact,
		Trend:              trend,
		Sentiment:          magnitude,
		SentimentLabel:     label,
		Category:           category,
		CategoryConfidence: confidence,
		FilterScore:        models.Clamp01(combined),
	}
}

// ScoreBatch scores every signal in the batch.
func (s *Scorer) ScoreBatch(signals []models.Signal) []models.ScoredSignal {
	scored := make([]models.ScoredSignal, 0, len(signals))
	for _, sig := range signals {
		scored = append(scored, s.Score(sig))
	}
	return scored
}

// scoreRelevance = base + vocabulary hits + category membership bonus,
// clamped to 1.
func (s *Scorer) scoreRelevance(text string, tokens map[string]bool, category string) float64 {
	relevance := relevanceBase
	for _, entry := range s.vocabulary {
		if matchKeyword(text, tokens, entry.Keyword) {
			relevance += entry.Weight
		}
	}
	if category != CategoryGeneral {
		relevance += categoryBonus
	}
	return models.Clamp01(relevance)
}

// scoreImpact combines normalized popularity counters, the engagement level
// and a carry-over from relevance.
func (s *Scorer) scoreImpact(signal models.Signal, engagement, relevance float64) float64 {
	popularity := minf(signal.Metric("popularity")/s.cfg.PopularityCalibration, 1)
	comments := minf(signal.Metric("comments")/s.cfg.CommentsCalibration, 1)

	return models.Clamp01(0.35*popularity + 0.25*comments + 0.2*engagement + 0.2*relevance)
}

// scoreTrend applies a linear recency decay over the configured window.
func (s *Scorer) scoreTrend(signal models.Signal, engagement, relevance float64) float64 {
	recency := 0.0
	if !signal.Timestamp.IsZero() {
		age := s.now().Sub(signal.Timestamp)
		recency = models.Clamp01(1 - float64(age)/float64(s.cfg.TrendWindow))
	}
	return models.Clamp01(0.5*recency + 0.25*engagement + 0.25*relevance)
}

// scorePolarity returns lexicon polarity in [-1, 1], normalized by the number
// of matched words. The lexicons are walked in their declared order so the
// sum is reproducible bit for bit.
func (s *Scorer) scorePolarity(tokens map[string]bool) float64 {
	var score float64
	matches := 0

	for _, entry := range s.positiveWords {
		if tokens[entry.Keyword] {
			score += entry.Weight
			matches++
		}
	}
	for _, entry := range s.negativeWords {
		if tokens[entry.Keyword] {
			score -= entry.Weight
			matches++
		}
	}

	if matches == 0 {
		return 0
	}

	normalized := score / float64(matches)
	if normalized > 1 {
		normalized = 1
	} else if normalized < -1 {
		normalized = -1
	}
	return normalized
}

// classify runs the ordered bucket table. The raw signal category wins when
// it names a known bucket; unmatched signals fall back to "general".
func (s *Scorer) classify(signal models.Signal, text string, tokens map[string]bool) (string, float64) {
	raw := strings.ToLower(strings.TrimSpace(signal.Category))
	for _, bucket := range s.buckets {
		if bucket.Name == raw {
			return bucket.Name, bucket.Confidence
		}
	}

	for _, bucket := range s.buckets {
		for _, keyword := range bucket.Keywords {
			if matchKeyword(text, tokens, keyword) {
				return bucket.Name, bucket.Confidence
			}
		}
	}

	return CategoryGeneral, generalCategoryConfidence
}

// engagementLevel maps combined raw counters to a coarse level. Comments are
// weighted up: discussion signals engagement more than passive popularity.
func (s *Scorer) engagementLevel(signal models.Signal) float64 {
	total := signal.Metric("popularity") + 10*signal.Metric("comments")
	switch {
	case total >= highEngagementBar:
		return engagementHigh
	case total >= mediumEngagementBar:
		return engagementMedium
	default:
		return engagementLow
	}
}

// extractKeywords collects vocabulary and bucket words present in the text,
// deduped and sorted for deterministic output.
func (s *Scorer) extractKeywords(text string, tokens map[string]bool) []string {
	seen := make(map[string]bool)
	for _, entry := range s.vocabulary {
		if matchKeyword(text, tokens, entry.Keyword) {
			seen[entry.Keyword] = true
		}
	}
	for _, bucket := range s.buckets {
		for _, keyword := range bucket.Keywords {
			if matchKeyword(text, tokens, keyword) {
				seen[keyword] = true
			}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	keywords := make([]string, 0, len(seen))
	for keyword := range seen {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return keywords
}

func (s *Scorer) categoryWeight(category string) float64 {
	if w, ok := s.cfg.CategoryWeights[category]; ok && w > 0 {
		return w
	}
	return 1.0
}

func (s *Scorer) sentimentWeight(label string) float64 {
	if w, ok := s.cfg.SentimentWeights[label]; ok && w > 0 {
		return w
	}
	return 1.0
}

func sentimentLabel(polarity float64) string {
	switch {
	case polarity > neutralityBand:
		return models.SentimentPositive
	case polarity < -neutralityBand:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// tokenize splits lowered text into a punctuation-trimmed token set.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:()\"'")
		if word != "" {
			tokens[word] = true
		}
	}
	return tokens
}

// matchKeyword matches multi-word keywords as substrings and single words as
// whole tokens, so "ai" never matches inside "maintain".
func matchKeyword(text string, tokens map[string]bool, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(text, keyword)
	}
	return tokens[keyword]
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
