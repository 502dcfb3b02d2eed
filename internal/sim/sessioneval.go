package sim

import (
	"github.com/dooriq/simserver/internal/domain"
)

// Category score bands for feedback selection.
const (
	strongCategoryScore = 18
	weakCategoryScore   = 10
)

// EvaluateSession produces the final evaluation from the conversation
// transcript and the last computed live metrics. It always returns a
// complete evaluation, even for a session ended after zero turns; the
// categories simply score zero.
func EvaluateSession(history []domain.Message, final domain.LiveMetrics) domain.Evaluation {
	// Re-derive from the transcript rather than trusting the caller's
	// metrics snapshot, so end-after-crash still grades correctly.
	if len(history) > 0 {
		final = EvaluateTurn(history)
	} else {
		final = final.Clamp()
	}

	rubric := domain.RubricBreakdown{
		Discovery: final.Discovery,
		Value:     final.Value,
		Objection: final.Objection,
		CTA:       final.CTA,
	}
	score := rubric.Total()

	return domain.Evaluation{
		Score:               score,
		Result:              domain.ResultForScore(score),
		Rubric:              rubric,
		FeedbackBullets:     feedbackBullets(rubric),
		MissedOpportunities: missedOpportunities(rubric),
	}
}

func feedbackBullets(r domain.RubricBreakdown) []string {
	var bullets []string
	if r.Discovery >= strongCategoryScore {
		bullets = append(bullets, "Strong discovery: you asked open questions and let the homeowner describe the problem.")
	}
	if r.Value >= strongCategoryScore {
		bullets = append(bullets, "Clear value framing: you connected the service to what the homeowner cares about.")
	}
	if r.Objection >= strongCategoryScore {
		bullets = append(bullets, "Good objection handling: you acknowledged concerns before answering them.")
	}
	if r.CTA >= strongCategoryScore {
		bullets = append(bullets, "Confident close: you asked for the appointment instead of waiting for it.")
	}
	return bullets
}

func missedOpportunities(r domain.RubricBreakdown) []string {
	var missed []string
	if r.Discovery < weakCategoryScore {
		missed = append(missed, "Ask what pests they've seen and where before pitching; discovery earns the right to sell.")
	}
	if r.Value < weakCategoryScore {
		missed = append(missed, "Name concrete benefits: the barrier treatment, the warranty, what's included in the plan.")
	}
	if r.Objection < weakCategoryScore {
		missed = append(missed, "When price comes up, acknowledge it first, then reframe around cost of doing nothing.")
	}
	if r.CTA < weakCategoryScore {
		missed = append(missed, "End with a specific ask: offer two appointment windows and let them pick.")
	}
	return missed
}
