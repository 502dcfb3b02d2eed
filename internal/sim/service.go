package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/metrics"
	"github.com/dooriq/simserver/internal/reply"
	"github.com/dooriq/simserver/internal/store"
)

// Input validation and lifecycle errors surfaced to the transport layer.
var (
	ErrEmptyUtterance   = errors.New("utterance must not be empty")
	ErrInvalidAttemptID = errors.New("invalid attempt id")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptTerminal  = errors.New("attempt already terminal")
)

// Rejection reasons for step metrics.
const (
	rejectEmptyUtterance = "empty_utterance"
	rejectNotFound       = "not_found"
	rejectTerminal       = "terminal"
	rejectConflict       = "version_conflict"
	rejectDuplicate      = "duplicate"
)

const defaultReplyTimeout = 10 * time.Second

// duplicateWindow is how long an identical repeated utterance is treated as
// a network retry of the previous step rather than a new turn.
const duplicateWindow = 5 * time.Second

// StepResult is the outcome of one accepted conversation turn.
type StepResult struct {
	ProspectReply string
	State         domain.State
	Metrics       domain.LiveMetrics
	Terminal      bool
}

// EndResult is the outcome of finalizing a session.
type EndResult struct {
	Eval          domain.Evaluation
	TotalTurns    int
	Duration      time.Duration
	AvgTurnLength float64
}

// Service orchestrates the simulation loop: it owns the state machine and
// evaluators, serializes writes per attempt, and delegates prospect speech
// to the reply generator.
type Service struct {
	repo         store.Repository
	gen          reply.Generator
	machine      Machine
	mm           *metrics.Manager
	replyTimeout time.Duration

	// Per-attempt locks serialize concurrent step/end calls for the same
	// attempt (duplicate network retries must apply exactly once).
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Options tune service behavior; zero values take defaults.
type Options struct {
	// ReplyTimeout bounds each reply-generation call.
	ReplyTimeout time.Duration
	// MaxTurns overrides the forced-terminal turn threshold.
	MaxTurns int
}

// NewService creates a simulation service.
func NewService(repo store.Repository, gen reply.Generator, mm *metrics.Manager, opts Options) *Service {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	machine := NewMachine()
	if opts.MaxTurns > 0 {
		machine.MaxTurns = opts.MaxTurns
	}
	return &Service{
		repo:         repo,
		gen:          gen,
		machine:      machine,
		mm:           mm,
		replyTimeout: opts.ReplyTimeout,
		locks:        make(map[string]*sync.Mutex),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// lockAttempt returns the mutex serializing writes for one attempt ID.
func (s *Service) lockAttempt(attemptID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[attemptID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[attemptID] = mu
	}
	return mu
}

// releaseAttempt drops the per-attempt lock entry once a session is done.
func (s *Service) releaseAttempt(attemptID string) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	delete(s.locks, attemptID)
}

// Start creates a new attempt with a generated persona in the opening state.
// The prospect speaks first: the attempt opens with a persona-voiced greeting
// the rep's first utterance responds to.
func (s *Service) Start(ctx context.Context, userID, personaType string) (*domain.Attempt, error) {
	pt := domain.NormalizePersonaType(personaType)

	s.rngMu.Lock()
	persona := GeneratePersona(pt, s.rng)
	s.rngMu.Unlock()

	now := time.Now()
	greeting := s.generateGreeting(ctx, persona)
	attempt := &domain.Attempt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Persona:   persona,
		State:     domain.StateOpening,
		Messages:  []domain.Message{{Role: domain.RoleProspect, Text: greeting, Timestamp: now}},
		StartedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.mm.SessionStarted()
	slog.Info("attempt started", "attempt_id", attempt.ID, "user_id", userID, "persona_type", persona.Type)
	return attempt, nil
}

// Step applies one rep utterance: the state machine advances, live metrics
// are recomputed, and the prospect replies. Writes for the same attempt are
// serialized; a duplicate concurrent step is rejected by the store's version
// check rather than applied twice.
func (s *Service) Step(ctx context.Context, attemptID, utterance string) (*StepResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		s.mm.StepRejected(rejectEmptyUtterance)
		return nil, ErrEmptyUtterance
	}
	if attemptID == "" {
		s.mm.StepRejected(rejectNotFound)
		return nil, ErrInvalidAttemptID
	}

	mu := s.lockAttempt(attemptID)
	mu.Lock()
	defer mu.Unlock()

	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		s.mm.StepRejected(rejectNotFound)
		return nil, ErrAttemptNotFound
	}
	if attempt.State.Terminal() {
		// Terminal is absorbing: no message is appended, no turn counted.
		s.mm.StepRejected(rejectTerminal)
		return nil, ErrAttemptTerminal
	}

	now := time.Now()

	// A retried duplicate of the previous step replays its result instead
	// of consuming a turn.
	if dup := duplicateOf(attempt, utterance, now); dup != nil {
		s.mm.StepRejected(rejectDuplicate)
		return dup, nil
	}

	turn := attempt.TurnCount + 1
	nextState := s.machine.Advance(attempt.State, utterance, turn)

	// Metrics see the rep utterance before the prospect reply exists.
	repMsg := domain.Message{Role: domain.RoleRep, Text: utterance, Timestamp: now}
	live := EvaluateTurn(append(append([]domain.Message{}, attempt.Messages...), repMsg))

	prospectReply := s.generateReply(ctx, attempt, nextState, repMsg)

	expected := attempt.Version
	attempt.State = nextState
	attempt.Metrics = live
	attempt.AppendExchange(utterance, prospectReply, now)

	if err := s.repo.UpdateAttempt(ctx, attempt, expected); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			s.mm.StepRejected(rejectConflict)
			return nil, fmt.Errorf("concurrent step dropped: %w", err)
		}
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	s.mm.StepProcessed()
	return &StepResult{
		ProspectReply: prospectReply,
		State:         attempt.State,
		Metrics:       live,
		Terminal:      attempt.State.Terminal(),
	}, nil
}

// duplicateOf returns the replayed result when the utterance matches the
// rep side of the most recent exchange inside the duplicate window.
func duplicateOf(attempt *domain.Attempt, utterance string, now time.Time) *StepResult {
	n := len(attempt.Messages)
	if n < 2 {
		return nil
	}
	lastRep, lastProspect := attempt.Messages[n-2], attempt.Messages[n-1]
	if lastRep.Role != domain.RoleRep || lastProspect.Role != domain.RoleProspect {
		return nil
	}
	if lastRep.Text != utterance || now.Sub(lastProspect.Timestamp) > duplicateWindow {
		return nil
	}
	return &StepResult{
		ProspectReply: lastProspect.Text,
		State:         attempt.State,
		Metrics:       attempt.Metrics,
		Terminal:      attempt.State.Terminal(),
	}
}

// generateGreeting produces the prospect's door-answer line for a fresh
// session, degrading to a neutral greeting when generation fails.
func (s *Service) generateGreeting(ctx context.Context, persona domain.Persona) string {
	genCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	text, err := s.gen.Reply(genCtx, persona, domain.StateOpening, nil)
	if err != nil || strings.TrimSpace(text) == "" {
		s.mm.ReplyFallback()
		slog.Warn("greeting generation failed, using fallback",
			"persona_type", persona.Type, "error", err)
		return reply.FallbackGreeting
	}
	return text
}

// generateReply invokes the generator with a bounded timeout and degrades
// to a neutral fallback utterance on any failure, so the conversation
// continues instead of erroring mid-session.
func (s *Service) generateReply(ctx context.Context, attempt *domain.Attempt, state domain.State, repMsg domain.Message) string {
	genCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	history := append(append([]domain.Message{}, attempt.Messages...), repMsg)

	start := time.Now()
	text, err := s.gen.Reply(genCtx, attempt.Persona, state, history)
	s.mm.ObserveReplyLatency(time.Since(start))

	if err != nil || strings.TrimSpace(text) == "" {
		s.mm.ReplyFallback()
		slog.Warn("reply generation failed, using fallback",
			"attempt_id", attempt.ID, "state", state.String(), "error", err)
		return reply.Fallback(attempt.TurnCount)
	}
	return text
}

// End finalizes the attempt and returns its evaluation. Ending is
// idempotent: a second call returns the stored evaluation unchanged.
func (s *Service) End(ctx context.Context, attemptID string) (*EndResult, error) {
	if attemptID == "" {
		return nil, ErrInvalidAttemptID
	}

	mu := s.lockAttempt(attemptID)
	mu.Lock()
	defer mu.Unlock()

	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}

	now := time.Now()
	if attempt.Completed() {
		return s.endResult(attempt, now), nil
	}

	eval := EvaluateSession(attempt.Messages, attempt.Metrics)
	expected := attempt.Version
	attempt.State = s.machine.End(attempt.State)
	attempt.Eval = &eval
	attempt.EndedAt = &now
	attempt.UpdatedAt = now

	if err := s.repo.UpdateAttempt(ctx, attempt, expected); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// A concurrent end won the race; serve its stored result.
			stored, loadErr := s.repo.GetAttempt(ctx, attemptID)
			if loadErr == nil && stored != nil && stored.Completed() {
				return s.endResult(stored, now), nil
			}
		}
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	s.mm.SessionCompleted(eval.Result)
	s.releaseAttempt(attemptID)
	slog.Info("attempt completed",
		"attempt_id", attempt.ID, "score", eval.Score, "result", eval.Result, "turns", attempt.TurnCount)
	return s.endResult(attempt, now), nil
}

func (s *Service) endResult(attempt *domain.Attempt, now time.Time) *EndResult {
	return &EndResult{
		Eval:          *attempt.Eval,
		TotalTurns:    attempt.TurnCount,
		Duration:      attempt.Duration(now),
		AvgTurnLength: attempt.AvgTurnLength(),
	}
}

// GetAttempt loads an attempt for read-only use by transports.
func (s *Service) GetAttempt(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	attempt, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}
