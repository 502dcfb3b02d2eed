package sim

import (
	"strings"

	"github.com/dooriq/simserver/internal/domain"
)

// Point values per detected signal. Every dimension is clipped to the
// metric ceiling, so repeated filler cannot run a score past it.
const (
	pointsOpenQuestion    = 5
	pointsClosedQuestion  = 2
	pointsValueStatement  = 6
	pointsAcknowledgment  = 10
	pointsResolution      = 5
	pointsCallToAction    = 8
	pointsScheduling      = 5
	suggestionLimit       = 3
	lagTurnsDiscovery     = 4
	lagTurnsValue         = 3
	lagTurnsCallToAction  = 6
	lagDiscoveryThreshold = 10
	lagScoreThreshold     = 8
)

// EvaluateTurn recomputes live metrics from the full conversation so far.
// It is a pure function: same history in, same metrics out. Scores derive
// from cumulative signal across all rep utterances, not just the newest one.
func EvaluateTurn(history []domain.Message) domain.LiveMetrics {
	var m domain.LiveMetrics
	turns := 0
	prospectObjected := false

	for i, msg := range history {
		if msg.Role == domain.RoleProspect {
			if hasObjectionSignal(msg.Text) {
				prospectObjected = true
			}
			continue
		}

		turns++
		switch {
		case isOpenQuestion(msg.Text):
			m.Discovery += pointsOpenQuestion
		case strings.Contains(msg.Text, "?"):
			// Closed questions earn a little; open ones earn more.
			m.Discovery += pointsClosedQuestion
		}
		if hasValueStatement(msg.Text) {
			m.Value += pointsValueStatement
		}
		if hasCallToAction(msg.Text) {
			m.CTA += pointsCallToAction
			if hasSchedulingConfirmation(msg.Text) {
				m.CTA += pointsScheduling
			}
		}
		if objectionHandled(history, i) {
			m.Objection += pointsAcknowledgment
			if hasValueStatement(msg.Text) {
				m.Objection += pointsResolution
			}
		}
	}

	m = m.Clamp()
	m.Suggestions = suggest(m, turns, prospectObjected)
	return m
}

// objectionHandled reports whether the rep message at index i acknowledges
// an objection the prospect raised immediately before it.
func objectionHandled(history []domain.Message, i int) bool {
	if i == 0 || history[i].Role != domain.RoleRep {
		return false
	}
	prev := history[i-1]
	if prev.Role != domain.RoleProspect || !hasObjectionSignal(prev.Text) {
		return false
	}
	return hasAcknowledgment(history[i].Text)
}

// suggest picks up to three coaching tips for dimensions lagging relative
// to how far the conversation has progressed.
func suggest(m domain.LiveMetrics, turns int, prospectObjected bool) []string {
	var tips []string
	if turns >= lagTurnsDiscovery && m.Discovery < lagDiscoveryThreshold {
		tips = append(tips, "Ask more open-ended questions to uncover the homeowner's actual pest problems.")
	}
	if turns >= lagTurnsValue && m.Value < lagScoreThreshold {
		tips = append(tips, "Tie the service to their specific situation: what it protects, what's included.")
	}
	if prospectObjected && m.Objection < lagScoreThreshold {
		tips = append(tips, "Acknowledge the concern before countering it; don't talk past the objection.")
	}
	if turns >= lagTurnsCallToAction && m.CTA < lagScoreThreshold {
		tips = append(tips, "Propose a concrete next step, like a specific appointment window.")
	}
	if len(tips) > suggestionLimit {
		tips = tips[:suggestionLimit]
	}
	return tips
}
