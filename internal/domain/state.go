// Package domain contains core domain types for the DoorIQ simulation server.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State is the current phase of a practice conversation.
type State int

// Conversation phases, in forward order. Terminal is absorbing.
const (
	StateOpening State = iota
	StateDiscovery
	StateValue
	StateObjection
	StateClose
	StateTerminal
)

var stateNames = map[State]string{
	StateOpening:   "OPENING",
	StateDiscovery: "DISCOVERY",
	StateValue:     "VALUE",
	StateObjection: "OBJECTION",
	StateClose:     "CLOSE",
	StateTerminal:  "TERMINAL",
}

// String returns the wire name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

// Terminal reports whether the state is the absorbing end state.
func (s State) Terminal() bool {
	return s == StateTerminal
}

// ParseState maps a wire name back to a State.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == strings.ToUpper(strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return StateOpening, fmt.Errorf("unknown conversation state %q", name)
}

// MarshalJSON encodes the state as its wire name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state from its wire name.
func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("decode conversation state: %w", err)
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
