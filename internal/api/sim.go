package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/identity"
	"github.com/dooriq/simserver/internal/sim"
)

// SimHandler exposes the simulation loop over HTTP.
type SimHandler struct {
	svc *sim.Service
}

// NewSimHandler creates a simulation handler.
func NewSimHandler(svc *sim.Service) *SimHandler {
	return &SimHandler{svc: svc}
}

// RegisterRoutes registers simulation routes.
func (h *SimHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sim", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/step", h.Step)
		r.Post("/end", h.End)
	})
}

type startRequest struct {
	UserID      string `json:"userId"`
	PersonaType string `json:"personaType"`
}

type startResponse struct {
	AttemptID string         `json:"attemptId"`
	Persona   domain.Persona `json:"persona"`
	State     domain.State   `json:"state"`
	Greeting  string         `json:"greeting"`
}

// Start creates a new practice attempt.
func (h *SimHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}
	if userID == "" {
		Error(w, http.StatusUnauthorized, "no user identity")
		return
	}

	attempt, err := h.svc.Start(r.Context(), userID, req.PersonaType)
	if err != nil {
		slog.Error("Failed to start attempt", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to start simulation")
		return
	}

	resp := startResponse{
		AttemptID: attempt.ID,
		Persona:   attempt.Persona,
		State:     attempt.State,
	}
	if len(attempt.Messages) > 0 {
		resp.Greeting = attempt.Messages[0].Text
	}
	JSON(w, http.StatusOK, resp)
}

type stepRequest struct {
	AttemptID    string `json:"attemptId"`
	RepUtterance string `json:"repUtterance"`
}

type stepResponse struct {
	ProspectReply string             `json:"prospectReply"`
	State         domain.State       `json:"state"`
	LiveMetrics   domain.LiveMetrics `json:"liveMetrics"`
	Terminal      bool               `json:"terminal"`
}

// Step applies one rep utterance and returns the prospect's reply.
func (h *SimHandler) Step(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Step(r.Context(), req.AttemptID, req.RepUtterance)
	if err != nil {
		h.writeStepError(w, req.AttemptID, err)
		return
	}

	JSON(w, http.StatusOK, stepResponse{
		ProspectReply: result.ProspectReply,
		State:         result.State,
		LiveMetrics:   result.Metrics,
		Terminal:      result.Terminal,
	})
}

func (h *SimHandler) writeStepError(w http.ResponseWriter, attemptID string, err error) {
	switch {
	case errors.Is(err, sim.ErrEmptyUtterance), errors.Is(err, sim.ErrInvalidAttemptID):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sim.ErrAttemptNotFound):
		Error(w, http.StatusNotFound, "attempt not found")
	case errors.Is(err, sim.ErrAttemptTerminal):
		Error(w, http.StatusConflict, "attempt already terminal")
	default:
		slog.Error("Step failed", "error", err, "attempt_id", attemptID)
		Error(w, http.StatusInternalServerError, "failed to process step")
	}
}

type endRequest struct {
	AttemptID string `json:"attemptId"`
}

type endResponse struct {
	Eval    domain.Evaluation `json:"eval"`
	Metrics endMetrics        `json:"metrics"`
	Attempt endAttempt        `json:"attempt"`
}

type endMetrics struct {
	TotalTurns    int     `json:"totalTurns"`
	DurationSecs  float64 `json:"duration"`
	AvgTurnLength float64 `json:"avgTurnLength"`
}

type endAttempt struct {
	TurnCount int `json:"turnCount"`
}

// End finalizes the attempt and returns its evaluation.
func (h *SimHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.End(r.Context(), req.AttemptID)
	if err != nil {
		switch {
		case errors.Is(err, sim.ErrInvalidAttemptID):
			Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, sim.ErrAttemptNotFound):
			Error(w, http.StatusNotFound, "attempt not found")
		default:
			slog.Error("End failed", "error", err, "attempt_id", req.AttemptID)
			Error(w, http.StatusInternalServerError, "failed to end simulation")
		}
		return
	}

	JSON(w, http.StatusOK, endResponse{
		Eval: result.Eval,
		Metrics: endMetrics{
			TotalTurns:    result.TotalTurns,
			DurationSecs:  result.Duration.Seconds(),
			AvgTurnLength: result.AvgTurnLength,
		},
		Attempt: endAttempt{TurnCount: result.TotalTurns},
	})
}
