package scoring

// CategoryBucket is one ordered classification rule: a signal lands in the
// first bucket whose keywords appear in its text. Rules are data, not
// control flow, so each bucket is independently testable.
type CategoryBucket struct {
	Name       string
	Keywords   []string
	Confidence float64
}

// Fallback bucket for unclassified signals.
const (
	CategoryGeneral           = "general"
	generalCategoryConfidence = 0.3
)

// buildCategoryBuckets returns the ordered classification table. Earlier
// buckets win ties.
func buildCategoryBuckets() []CategoryBucket {
	return []CategoryBucket{
		{
			Name:       "ai_development",
			Keywords:   []string{"ai", "llm", "copilot", "agent", "machine learning", "prompt", "model training"},
			Confidence: 0.9,
		},
		{
			Name:       "security",
			Keywords:   []string{"vulnerability", "cve", "exploit", "security", "breach", "authentication"},
			Confidence: 0.85,
		},
		{
			Name:       "developer_tools",
			Keywords:   []string{"cli", "ide", "debugger", "sdk", "plugin", "editor", "toolchain"},
			Confidence: 0.85,
		},
		{
			Name:       "automation",
			Keywords:   []string{"automation", "workflow", "pipeline", "scheduled", "cron", "bot"},
			Confidence: 0.8,
		},
		{
			Name:       "integration",
			Keywords:   []string{"api", "webhook", "integration", "oauth", "connector"},
			Confidence: 0.8,
		},
		{
			Name:       "billing",
			Keywords:   []string{"billing", "invoice", "pricing", "subscription", "refund", "payment"},
			Confidence: 0.8,
		},
		{
			Name:       "performance",
			Keywords:   []string{"latency", "throughput", "slow", "memory leak", "performance", "optimization"},
			Confidence: 0.75,
		},
	}
}

// WeightedKeyword is one ordered lexicon entry. Lexicons are slices, not
// maps, so weight sums accumulate in a fixed order and identical signals
// produce bit-identical scores.
type WeightedKeyword struct {
	Keyword string
	Weight  float64
}

// buildVocabulary returns the domain relevance vocabulary. Each hit adds its
// weight on top of the 0.5 relevance base.
func buildVocabulary() []WeightedKeyword {
	return []WeightedKeyword{
		{"ai", 0.15},
		{"llm", 0.15},
		{"automation", 0.12},
		{"developer", 0.1},
		{"api", 0.1},
		{"productivity", 0.1},
		{"security", 0.1},
		{"open source", 0.1},
		{"workflow", 0.08},
		{"integration", 0.08},
		{"framework", 0.08},
		{"performance", 0.08},
		{"billing", 0.08},
		{"tool", 0.05},
		{"feature", 0.05},
		{"release", 0.05},
		{"bug", 0.05},
	}
}

// buildPositiveWords returns positive sentiment keywords with weights.
func buildPositiveWords() []WeightedKeyword {
	return []WeightedKeyword{
		{"love", 1.0},
		{"excellent", 1.0},
		{"awesome", 0.9},
		{"amazing", 0.9},
		{"breakthrough", 0.9},
		{"great", 0.8},
		{"powerful", 0.7},
		{"reliable", 0.7},
		{"fast", 0.6},
		{"improved", 0.6},
		{"growth", 0.6},
		{"adoption", 0.6},
		{"popular", 0.5},
		{"easy", 0.5},
		{"stable", 0.5},
		{"useful", 0.5},
		{"win", 0.5},
		{"happy", 0.5},
	}
}

// buildNegativeWords returns negative sentiment keywords with weights.
func buildNegativeWords() []WeightedKeyword {
	return []WeightedKeyword{
		{"hate", 1.0},
		{"broken", 1.0},
		{"outage", 1.0},
		{"crash", 0.9},
		{"frustrating", 0.9},
		{"painful", 0.8},
		{"fail", 0.8},
		{"failing", 0.8},
		{"expensive", 0.7},
		{"regression", 0.7},
		{"churn", 0.7},
		{"confusing", 0.6},
		{"slow", 0.6},
		{"annoying", 0.6},
		{"bug", 0.5},
		{"issue", 0.5},
		{"problem", 0.5},
		{"missing", 0.4},
	}
}
