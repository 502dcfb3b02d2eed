package domain

// Result labels for a completed session.
const (
	ResultPass    = "pass"
	ResultPartial = "partial"
	ResultFail    = "fail"
)

// Result cutoffs: score >= PassThreshold is a pass, >= PartialThreshold a
// partial, anything lower a fail.
const (
	PassThreshold    = 80
	PartialThreshold = 50
)

// RubricBreakdown maps the four rubric categories to their 0-25 scores.
// The category scores always sum to the overall Evaluation score.
type RubricBreakdown struct {
	Discovery int `json:"discovery"`
	Value     int `json:"value"`
	Objection int `json:"objection"`
	CTA       int `json:"cta"`
}

// Total returns the sum of the rubric categories.
func (r RubricBreakdown) Total() int {
	return r.Discovery + r.Value + r.Objection + r.CTA
}

// Evaluation is the final post-session grade. It is computed once when the
// session ends and is immutable afterwards.
type Evaluation struct {
	Score               int             `json:"score"`
	Result              string          `json:"result"`
	Rubric              RubricBreakdown `json:"rubric_breakdown"`
	FeedbackBullets     []string        `json:"feedback_bullets"`
	MissedOpportunities []string        `json:"missed_opportunities"`
}

// ResultForScore maps an overall score to its fixed result label.
func ResultForScore(score int) string {
	switch {
	case score >= PassThreshold:
		return ResultPass
	case score >= PartialThreshold:
		return ResultPartial
	default:
		return ResultFail
	}
}
