package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/dooriq/simserver/internal/domain"
)

var claudeModels = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
}

const (
	replyTemperature = 0.8
	replyMaxTokens   = 256
	maxRetries       = 2
	initialBackoff   = 500 * time.Millisecond
	historyWindow    = 12 // trailing messages included in the prompt
)

// Claude generates prospect replies with the Anthropic Messages API.
type Claude struct {
	client anthropic.Client
	model  string
}

// NewClaude returns a Claude generator. The model argument is a short alias
// ("haiku", "sonnet"); unknown aliases fall back to haiku. The API key is
// read from the environment by the SDK.
func NewClaude(model string) *Claude {
	return &Claude{client: anthropic.NewClient(), model: model}
}

// Reply asks the model for the prospect's next line. Retries transient
// failures with backoff; the caller bounds the whole call with a timeout
// and falls back to a neutral utterance on error.
func (c *Claude) Reply(ctx context.Context, persona domain.Persona, state domain.State, history []domain.Message) (string, error) {
	modelID := claudeModels[c.model]
	if modelID == "" {
		modelID = claudeModels["haiku"]
	}

	sysPrompt := buildSystemPrompt(persona, state)
	userPrompt := buildTranscriptPrompt(history)

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(modelID),
			MaxTokens:   replyMaxTokens,
			Temperature: anthropic.Float(replyTemperature),
			System: []anthropic.TextBlockParam{
				{Text: sysPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			lastErr = fmt.Errorf("anthropic messages (attempt %d/%d): %w", attempt, maxRetries, err)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
			}
			continue
		}

		text := strings.TrimSpace(extractText(message))
		if text == "" {
			lastErr = fmt.Errorf("empty model response (attempt %d/%d)", attempt, maxRetries)
			continue
		}
		return text, nil
	}

	return "", lastErr
}

func extractText(message *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// stateTone maps each conversational state to the prospect's emotional
// register for the prompt.
var stateTone = map[domain.State]string{
	domain.StateOpening:   "You are mildly surprised by the knock and noncommittal. Keep answers short.",
	domain.StateDiscovery: "You are willing to answer questions about your pest situation, but volunteer nothing extra.",
	domain.StateValue:     "Something the rep said landed. You are warmer and a little curious now.",
	domain.StateObjection: "You are guarded. Push back on price or trust before you give any ground.",
	domain.StateClose:     "You are close to saying yes but want the logistics pinned down.",
	domain.StateTerminal:  "You have agreed to an appointment. Wrap up politely.",
}

func buildSystemPrompt(persona domain.Persona, state domain.State) string {
	var sb strings.Builder
	sb.WriteString("You are roleplaying a homeowner answering the door for a pest-control sales rep. Stay in character; reply with one or two natural spoken sentences and nothing else.\n\n")
	fmt.Fprintf(&sb, "Household: %s (%s). You are the %s.\n", persona.Company, persona.Vertical, persona.Role)
	if len(persona.Pain) > 0 {
		fmt.Fprintf(&sb, "Your actual pest concerns: %s.\n", strings.Join(persona.Pain, "; "))
	}
	if persona.HasBudget() {
		fmt.Fprintf(&sb, "Your budget ceiling, which you do not volunteer unprompted: %s.\n", *persona.Budget)
	}
	fmt.Fprintf(&sb, "Your urgency about the problem is %s.\n\n", persona.Urgency)
	sb.WriteString(stateTone[state])
	return sb.String()
}

func buildTranscriptPrompt(history []domain.Message) string {
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, m := range history[start:] {
		speaker := "Rep"
		if m.Role == domain.RoleProspect {
			speaker = "You"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, m.Text)
	}
	sb.WriteString("\nYour next line:")
	return sb.String()
}
