package reply

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dooriq/simserver/internal/domain"
)

func testPersona(pt domain.PersonaType) domain.Persona {
	budget := "$120/quarter"
	return domain.Persona{
		Type:     pt,
		Company:  "Okafor Residence",
		Vertical: "townhouse",
		Role:     "homeowner",
		Pain:     []string{"wasps by the back porch", "spiders in the garage"},
		Budget:   &budget,
		Urgency:  "medium",
	}
}

func TestFallbackCycles(t *testing.T) {
	seen := map[string]bool{}
	for turn := 0; turn < 6; turn++ {
		line := Fallback(turn)
		if line == "" {
			t.Fatalf("empty fallback at turn %d", turn)
		}
		seen[line] = true
	}
	if len(seen) != len(fallbackLines) {
		t.Errorf("fallback cycled through %d lines, want %d", len(seen), len(fallbackLines))
	}
	if Fallback(-1) != Fallback(0) {
		t.Error("negative turn should clamp to first fallback")
	}
}

func TestScriptedDeterministic(t *testing.T) {
	gen := NewScripted()
	persona := testPersona(domain.PersonaSkeptical)
	ctx := context.Background()

	for _, state := range []domain.State{
		domain.StateOpening, domain.StateDiscovery, domain.StateValue,
		domain.StateObjection, domain.StateClose, domain.StateTerminal,
	} {
		first, err := gen.Reply(ctx, persona, state, nil)
		if err != nil {
			t.Fatalf("Reply(%v) failed: %v", state, err)
		}
		if first == "" {
			t.Fatalf("Reply(%v) returned empty line", state)
		}
		second, _ := gen.Reply(ctx, persona, state, nil)
		if first != second {
			t.Errorf("Reply(%v) not deterministic: %q vs %q", state, first, second)
		}
	}
}

func TestScriptedDiscoveryUsesPain(t *testing.T) {
	gen := NewScripted()
	persona := testPersona(domain.PersonaInterested)

	line, err := gen.Reply(context.Background(), persona, domain.StateDiscovery, nil)
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if !strings.Contains(line, persona.Pain[0]) {
		t.Errorf("discovery line %q does not mention pain %q", line, persona.Pain[0])
	}
}

func TestScriptedCloseReactsToScheduling(t *testing.T) {
	gen := NewScripted()
	persona := testPersona(domain.PersonaInterested)
	ctx := context.Background()

	vague, _ := gen.Reply(ctx, persona, domain.StateClose, []domain.Message{
		{Role: domain.RoleRep, Text: "So can we get you taken care of?", Timestamp: time.Now()},
	})
	concrete, _ := gen.Reply(ctx, persona, domain.StateClose, []domain.Message{
		{Role: domain.RoleRep, Text: "Does tomorrow morning work?", Timestamp: time.Now()},
	})
	if vague == concrete {
		t.Error("close line should differ once the rep proposes a time")
	}
	if !strings.Contains(concrete, "morning") {
		t.Errorf("expected a time-anchored close line, got %q", concrete)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	persona := testPersona(domain.PersonaSafetyFocused)

	prompt := buildSystemPrompt(persona, domain.StateObjection)
	for _, want := range []string{
		persona.Company,
		persona.Pain[0],
		*persona.Budget,
		stateTone[domain.StateObjection],
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	persona.Budget = nil
	prompt = buildSystemPrompt(persona, domain.StateOpening)
	if strings.Contains(prompt, "budget ceiling") {
		t.Error("prompt mentions a budget the persona never disclosed")
	}
}

func TestBuildTranscriptPromptWindow(t *testing.T) {
	var history []domain.Message
	for i := 0; i < historyWindow+6; i++ {
		role := domain.RoleRep
		if i%2 == 1 {
			role = domain.RoleProspect
		}
		history = append(history, domain.Message{Role: role, Text: lineN(i)})
	}

	prompt := buildTranscriptPrompt(history)
	if strings.Contains(prompt, lineN(0)) {
		t.Error("prompt includes messages older than the window")
	}
	if !strings.Contains(prompt, lineN(len(history)-1)) {
		t.Error("prompt missing the newest message")
	}
	if !strings.Contains(prompt, "Rep: ") || !strings.Contains(prompt, "You: ") {
		t.Error("prompt missing speaker labels")
	}
	if !strings.HasSuffix(prompt, "Your next line:") {
		t.Error("prompt missing closing instruction")
	}
}

func lineN(i int) string {
	return "line number " + string(rune('a'+i))
}
