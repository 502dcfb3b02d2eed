// Package sim implements the practice-session simulation core: persona
// generation, the conversational state machine, per-turn live metrics, and
// final session evaluation.
package sim

import (
	"strings"
)

// Lexical signal detection shared by the state machine and the turn
// evaluator. All matching is lowercase substring matching over the rep's
// utterance; the goal is cheap, predictable signals, not NLU.

var openQuestionLeads = []string{
	"what ", "how ", "why ", "when ", "where ", "who ",
	"tell me", "walk me through", "help me understand",
}

var valuePhrases = []string{
	"protect", "prevent", "guarantee", "warranty", "save you",
	"peace of mind", "treatment", "barrier", "included", "free inspection",
	"licensed", "eco-friendly", "pet safe", "pet-safe", "kid safe", "kid-safe",
}

var objectionPhrases = []string{
	"expensive", "too much", "more than i expected", "can't afford",
	"not interested", "already have", "no thanks", "cost", "price",
	"think about it", "talk to my", "busy right now",
}

var acknowledgmentPhrases = []string{
	"i understand", "i hear you", "totally fair", "that's fair",
	"makes sense", "great question", "i get that", "good point",
	"a lot of folks", "many of our customers",
}

var ctaPhrases = []string{
	"schedule", "appointment", "book", "come by", "swing by", "stop by",
	"get you on the calendar", "tomorrow", "this week", "set up a time",
	"does morning or afternoon", "sign you up", "get started today",
}

var schedulingConfirmations = []string{
	"morning or afternoon", "tomorrow", "this week", "on the calendar",
	"what time works", "set up a time",
}

func containsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func countMatches(text string, phrases []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// isOpenQuestion reports whether the utterance contains an open-ended
// discovery question. Requires a question mark or a clear question lead-in.
func isOpenQuestion(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	hasLead := false
	for _, lead := range openQuestionLeads {
		if strings.HasPrefix(lower, lead) || strings.Contains(lower, " "+lead) {
			hasLead = true
			break
		}
	}
	return hasLead && strings.Contains(lower, "?")
}

// hasValueStatement reports whether the utterance states a concrete benefit.
func hasValueStatement(text string) bool {
	return containsAny(text, valuePhrases)
}

// hasObjectionSignal reports whether the utterance raises or engages a
// price/interest objection.
func hasObjectionSignal(text string) bool {
	return containsAny(text, objectionPhrases)
}

// hasAcknowledgment reports whether the utterance acknowledges a concern
// before responding to it.
func hasAcknowledgment(text string) bool {
	return containsAny(text, acknowledgmentPhrases)
}

// hasCallToAction reports whether the utterance proposes a next step.
func hasCallToAction(text string) bool {
	return containsAny(text, ctaPhrases)
}

// hasSchedulingConfirmation reports whether the utterance pins down a
// concrete time, the strongest close signal.
func hasSchedulingConfirmation(text string) bool {
	return containsAny(text, schedulingConfirmations)
}
