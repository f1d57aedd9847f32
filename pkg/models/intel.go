package models

// Opportunity types.
const (
	OpportunityTrend   = "trend"
	OpportunityProblem = "problem"
	OpportunityGap     = "gap"
)

// Opportunity is a synthesized, scored candidate area for action.
type Opportunity struct {
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Sentiment   string   `json:"sentiment"`
	Keywords    []string `json:"keywords,omitempty"`
	Score       float64  `json:"score"` // 0..1
}

// Solution is a candidate response to one opportunity.
type Solution struct {
	OpportunityTitle string  `json:"opportunity_title"`
	OpportunityType  string  `json:"opportunity_type"`
	Category         string  `json:"category"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Approach         string  `json:"approach"`
	Priority         string  `json:"priority"`
	Feasibility      float64 `json:"feasibility"`      // 0..1
	ImpactPotential  float64 `json:"impact_potential"` // 0..1
}

// Insight is a single synthesized takeaway for the digest.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Actionable  bool   `json:"actionable"`
}
