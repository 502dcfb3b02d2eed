package sim

import (
	"math/rand"

	"github.com/dooriq/simserver/internal/domain"
)

// personaTemplates maps each concrete persona type to its fixed trait
// template. Templates are deterministic: the same type always yields the
// same traits, so tests and replays are stable.
var personaTemplates = map[domain.PersonaType]domain.Persona{
	domain.PersonaSkeptical: {
		Type:     domain.PersonaSkeptical,
		Company:  "Hartwell Residence",
		Vertical: "single-family home",
		Role:     "homeowner",
		Pain:     []string{"ants in the kitchen", "bad experience with a previous pest company"},
		Budget:   nil,
		Urgency:  "low",
	},
	domain.PersonaInterested: {
		Type:     domain.PersonaInterested,
		Company:  "Nguyen Residence",
		Vertical: "single-family home",
		Role:     "homeowner",
		Pain:     []string{"wasp nest by the back porch", "spiders in the garage"},
		Budget:   strPtr("$60-80/month"),
		Urgency:  "high",
	},
	domain.PersonaBudgetConscious: {
		Type:     domain.PersonaBudgetConscious,
		Company:  "Okafor Residence",
		Vertical: "townhouse",
		Role:     "homeowner",
		Pain:     []string{"occasional roaches", "comparing quotes from three companies"},
		Budget:   strPtr("$40/month"),
		Urgency:  "medium",
	},
	domain.PersonaSafetyFocused: {
		Type:     domain.PersonaSafetyFocused,
		Company:  "Reyes Residence",
		Vertical: "single-family home",
		Role:     "parent of young kids",
		Pain:     []string{"mice in the crawl space", "worried about chemicals around kids and pets"},
		Budget:   strPtr("$70/month"),
		Urgency:  "medium",
	},
}

func strPtr(s string) *string { return &s }

// GeneratePersona returns the persona for the requested type. Random (and
// any unknown input, which normalizes to random) selects uniformly among
// the concrete types using rng.
func GeneratePersona(pt domain.PersonaType, rng *rand.Rand) domain.Persona {
	if tmpl, ok := personaTemplates[pt]; ok {
		return clonePersona(tmpl)
	}
	types := domain.ConcretePersonaTypes()
	picked := types[rng.Intn(len(types))]
	return clonePersona(personaTemplates[picked])
}

// clonePersona copies the template so callers cannot mutate shared state.
func clonePersona(p domain.Persona) domain.Persona {
	out := p
	out.Pain = append([]string(nil), p.Pain...)
	if p.Budget != nil {
		b := *p.Budget
		out.Budget = &b
	}
	return out
}
