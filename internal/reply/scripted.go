package reply

import (
	"context"
	"strings"

	"github.com/dooriq/simserver/internal/domain"
)

// Scripted is a deterministic, template-based generator. It is the default
// when no model API key is configured and the stub used in tests, so scoring
// and state-machine behavior never depend on a live model.
type Scripted struct{}

// NewScripted returns a scripted generator.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Reply selects a canned line from the persona type and conversational
// state. The prospect is guarded in OBJECTION, warmer once value lands.
func (s *Scripted) Reply(_ context.Context, persona domain.Persona, state domain.State, history []domain.Message) (string, error) {
	switch state {
	case domain.StateOpening:
		return openingLine(persona), nil
	case domain.StateDiscovery:
		if len(persona.Pain) > 0 {
			return "Well, we've had " + persona.Pain[0] + ", if I'm honest.", nil
		}
		return "Nothing major, the occasional bug here and there.", nil
	case domain.StateValue:
		return warmLine(persona), nil
	case domain.StateObjection:
		return objectionLine(persona), nil
	case domain.StateClose:
		if repMentionedTime(history) {
			return "I suppose a morning would work, if it doesn't take long.", nil
		}
		return "Maybe. What would that actually look like?", nil
	case domain.StateTerminal:
		return "Alright, we'll see you then. Thanks for stopping by.", nil
	default:
		return Fallback(len(history)), nil
	}
}

func openingLine(p domain.Persona) string {
	switch p.Type {
	case domain.PersonaSkeptical:
		return "We're not really interested in whatever you're selling."
	case domain.PersonaInterested:
		return "Oh, pest control? Funny timing, actually."
	case domain.PersonaBudgetConscious:
		return "We already get quotes for this kind of thing. What's this about?"
	case domain.PersonaSafetyFocused:
		return "Hi. We've got kids, so I only have a minute."
	default:
		return "Can I help you?"
	}
}

func warmLine(p domain.Persona) string {
	switch p.Type {
	case domain.PersonaSafetyFocused:
		return "Okay, the pet-safe part matters to us. Tell me more about that."
	case domain.PersonaBudgetConscious:
		return "That sounds reasonable, depending on what it costs."
	default:
		return "Huh, I didn't realize that was included."
	}
}

// Each objection line carries an explicitly recognizable objection phrase,
// so a rep who acknowledges it next turn earns objection-handling credit.
func objectionLine(p domain.Persona) string {
	switch p.Type {
	case domain.PersonaBudgetConscious:
		return "That's more than I expected. We had a cheaper quote last spring."
	case domain.PersonaSkeptical:
		return "The last company promised the same thing and the ants came back. I'm not interested in paying twice."
	case domain.PersonaSafetyFocused:
		return "What exactly are you spraying? If it's harsh chemicals near the kids, no thanks."
	default:
		return "I'd have to think about it. It's not really in the budget right now."
	}
}

func repMentionedTime(history []domain.Message) bool {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != domain.RoleRep {
			continue
		}
		lower := strings.ToLower(m.Text)
		if strings.Contains(lower, "morning") || strings.Contains(lower, "afternoon") ||
			strings.Contains(lower, "tomorrow") || strings.Contains(lower, "time") {
			return true
		}
	}
	return false
}
