// Package reply produces the simulated prospect's utterances. The real
// implementation delegates to an external language model; a deterministic
// scripted generator covers local development and tests.
package reply

import (
	"context"

	"github.com/dooriq/simserver/internal/domain"
)

// Generator produces the prospect's next utterance for a conversation.
type Generator interface {
	// Reply returns the prospect's next line, consistent with the persona
	// and the current conversational state. Implementations must honor ctx
	// cancellation; callers bound the call with a timeout.
	Reply(ctx context.Context, persona domain.Persona, state domain.State, history []domain.Message) (string, error)
}

// fallbackLines are neutral utterances used when generation fails, so the
// conversation continues instead of surfacing an error mid-session.
var fallbackLines = []string{
	"I see.",
	"Hmm, okay.",
	"Go on.",
}

// Fallback returns a neutral prospect utterance for the given turn.
func Fallback(turn int) string {
	if turn < 0 {
		turn = 0
	}
	return fallbackLines[turn%len(fallbackLines)]
}

// FallbackGreeting opens the session when greeting generation fails.
const FallbackGreeting = "Yes? Can I help you?"
