package domain

import "strings"

// PersonaType selects a trait template for the simulated homeowner.
type PersonaType string

// Defined persona types. PersonaRandom picks uniformly among the others.
const (
	PersonaRandom          PersonaType = "random"
	PersonaSkeptical       PersonaType = "skeptical"
	PersonaInterested      PersonaType = "interested"
	PersonaBudgetConscious PersonaType = "budget_conscious"
	PersonaSafetyFocused   PersonaType = "safety_focused"
)

// ConcretePersonaTypes lists every type a random selection can resolve to.
func ConcretePersonaTypes() []PersonaType {
	return []PersonaType{
		PersonaSkeptical,
		PersonaInterested,
		PersonaBudgetConscious,
		PersonaSafetyFocused,
	}
}

// NormalizePersonaType maps arbitrary input to a defined type.
// Unknown strings fall back to random so a simulation can always start.
func NormalizePersonaType(raw string) PersonaType {
	pt := PersonaType(strings.ToLower(strings.TrimSpace(raw)))
	switch pt {
	case PersonaRandom, PersonaSkeptical, PersonaInterested, PersonaBudgetConscious, PersonaSafetyFocused:
		return pt
	default:
		return PersonaRandom
	}
}

// Persona is the simulated prospect's fixed trait profile for one session.
// It is created at session start and never mutated afterwards.
type Persona struct {
	Type     PersonaType `json:"type"`
	Company  string      `json:"company"`
	Vertical string      `json:"vertical"`
	Role     string      `json:"role"`
	Pain     []string    `json:"pain"`
	Budget   *string     `json:"budget"`
	Urgency  string      `json:"urgency"`
}

// HasBudget reports whether the persona disclosed a budget.
func (p *Persona) HasBudget() bool {
	return p.Budget != nil && *p.Budget != ""
}
