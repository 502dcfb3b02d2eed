package domain

import (
	"time"
)

// Message roles in the conversation transcript.
const (
	RoleRep      = "rep"
	RoleProspect = "prospect"
)

// Message is a single utterance in the session transcript.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Attempt is one practice conversation from start to evaluated end.
// Messages are append-only; State advances monotonically toward TERMINAL.
type Attempt struct {
	ID        string      `json:"attempt_id"`
	UserID    string      `json:"user_id"`
	Persona   Persona     `json:"persona"`
	State     State       `json:"state"`
	TurnCount int         `json:"turn_count"`
	Messages  []Message   `json:"messages"`
	Metrics   LiveMetrics `json:"live_metrics"`
	Eval      *Evaluation `json:"eval,omitempty"`
	Version   int64       `json:"-"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AppendExchange records one rep utterance and the prospect's reply and
// advances the turn counter by exactly one.
func (a *Attempt) AppendExchange(repText, prospectText string, now time.Time) {
	a.Messages = append(a.Messages,
		Message{Role: RoleRep, Text: repText, Timestamp: now},
		Message{Role: RoleProspect, Text: prospectText, Timestamp: now},
	)
	a.TurnCount++
	a.UpdatedAt = now
}

// Completed reports whether the session has been finalized with an evaluation.
func (a *Attempt) Completed() bool {
	return a.Eval != nil
}

// Duration returns elapsed session time, using EndedAt when set.
func (a *Attempt) Duration(now time.Time) time.Duration {
	end := now
	if a.EndedAt != nil {
		end = *a.EndedAt
	}
	d := end.Sub(a.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// RepMessages returns only the rep-side utterances, in order.
func (a *Attempt) RepMessages() []Message {
	var reps []Message
	for _, m := range a.Messages {
		if m.Role == RoleRep {
			reps = append(reps, m)
		}
	}
	return reps
}

// AvgTurnLength returns the mean rep utterance length in characters.
func (a *Attempt) AvgTurnLength() float64 {
	reps := a.RepMessages()
	if len(reps) == 0 {
		return 0
	}
	total := 0
	for _, m := range reps {
		total += len(m.Text)
	}
	return float64(total) / float64(len(reps))
}
