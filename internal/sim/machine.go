package sim

import (
	"github.com/dooriq/simserver/internal/domain"
)

// Default turn thresholds for forced progression.
const (
	defaultCloseTurn = 8
	defaultMaxTurns  = 12
)

// Machine advances the conversational state from the rep's newest utterance
// and the turn count. It holds no state of its own; callers own the current
// state and pass it in.
type Machine struct {
	// CloseTurn is the turn at which the conversation is pushed toward a
	// close regardless of content.
	CloseTurn int
	// MaxTurns is the turn at which the conversation is forced terminal.
	MaxTurns int
}

// NewMachine returns a Machine with default thresholds.
func NewMachine() Machine {
	return Machine{CloseTurn: defaultCloseTurn, MaxTurns: defaultMaxTurns}
}

// Advance computes the next state given the current state, the rep's
// utterance, and the turn number this utterance belongs to (1-based).
//
// TERMINAL is absorbing. The machine never returns to OPENING once it has
// left it. Utterances with no recognizable signal hold the current state.
func (m Machine) Advance(cur domain.State, utterance string, turn int) domain.State {
	if cur.Terminal() {
		return cur
	}
	if m.MaxTurns > 0 && turn >= m.MaxTurns {
		return domain.StateTerminal
	}

	if cur == domain.StateClose {
		// A committed close only moves forward to terminal on a concrete
		// scheduling confirmation, or sideways into an objection.
		switch {
		case hasSchedulingConfirmation(utterance):
			return domain.StateTerminal
		case hasObjectionSignal(utterance):
			return domain.StateObjection
		default:
			return domain.StateClose
		}
	}

	switch {
	case hasObjectionSignal(utterance):
		return domain.StateObjection
	case hasCallToAction(utterance):
		return domain.StateClose
	case m.CloseTurn > 0 && turn >= m.CloseTurn:
		return domain.StateClose
	case hasValueStatement(utterance):
		return domain.StateValue
	case cur == domain.StateOpening:
		// The opener consumes the first turn; the conversation proper
		// starts in discovery.
		return domain.StateDiscovery
	default:
		return cur
	}
}

// End forces the terminal state from anywhere; used for explicit session end.
func (m Machine) End(domain.State) domain.State {
	return domain.StateTerminal
}
