package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/sim"
)

// WebSocketHandler runs a practice session over a single WebSocket
// connection, mirroring the step/end HTTP semantics for realtime clients.
type WebSocketHandler struct {
	svc           *sim.Service
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket session handler.
func NewWebSocketHandler(svc *sim.Service, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

// wsInbound is a client frame.
type wsInbound struct {
	Type    string `json:"type"` // "utterance" | "end"
	Content string `json:"content,omitempty"`
}

// wsOutbound is a server frame.
type wsOutbound struct {
	Type        string              `json:"type"` // "reply" | "eval" | "error"
	Content     string              `json:"content,omitempty"`
	State       string              `json:"state,omitempty"`
	LiveMetrics *domain.LiveMetrics `json:"liveMetrics,omitempty"`
	Terminal    bool                `json:"terminal,omitempty"`
	Eval        *domain.Evaluation  `json:"eval,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// ServeHTTP upgrades the connection and runs the session loop until the
// client ends the session, the attempt goes terminal, or the socket closes.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attempt_id")
	if attemptID == "" {
		http.Error(w, "attempt_id required", http.StatusBadRequest)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	if _, err := h.svc.GetAttempt(r.Context(), attemptID); err != nil {
		http.Error(w, "attempt not found", http.StatusNotFound)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "attempt_id", attemptID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "attempt_id", attemptID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	slog.Info("WebSocket session opened", "attempt_id", attemptID, "ip", r.RemoteAddr)

	for {
		var msg wsInbound
		if err := h.readJSON(ctx, ws, &msg); err != nil {
			slog.Debug("WebSocket read ended", "error", err, "attempt_id", attemptID)
			return
		}

		switch msg.Type {
		case "utterance":
			done := h.handleUtterance(ctx, ws, attemptID, msg.Content)
			if done {
				return
			}
		case "end":
			h.handleEnd(ctx, ws, attemptID)
			return
		default:
			h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: "unknown message type"})
		}
	}
}

// handleUtterance applies a step and reports the result. Returns true when
// the session reached terminal and has been finalized.
func (h *WebSocketHandler) handleUtterance(ctx context.Context, ws *websocket.Conn, attemptID, content string) bool {
	result, err := h.svc.Step(ctx, attemptID, content)
	if err != nil {
		if errors.Is(err, sim.ErrAttemptTerminal) {
			h.handleEnd(ctx, ws, attemptID)
			return true
		}
		h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: err.Error()})
		return false
	}

	metrics := result.Metrics
	h.writeJSON(ctx, ws, wsOutbound{
		Type:        "reply",
		Content:     result.ProspectReply,
		State:       result.State.String(),
		LiveMetrics: &metrics,
		Terminal:    result.Terminal,
	})

	if result.Terminal {
		h.handleEnd(ctx, ws, attemptID)
		return true
	}
	return false
}

func (h *WebSocketHandler) handleEnd(ctx context.Context, ws *websocket.Conn, attemptID string) {
	result, err := h.svc.End(ctx, attemptID)
	if err != nil {
		h.writeJSON(ctx, ws, wsOutbound{Type: "error", Error: "failed to end session"})
		slog.Error("WebSocket end failed", "error", err, "attempt_id", attemptID)
		return
	}
	eval := result.Eval
	h.writeJSON(ctx, ws, wsOutbound{
		Type:     "eval",
		State:    domain.StateTerminal.String(),
		Terminal: true,
		Eval:     &eval,
	})
}

func (h *WebSocketHandler) readJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	_, data, err := ws.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode WebSocket frame", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}

// checkOrigin mirrors the CORS posture: permissive in development, exact
// origin match in production.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev || h.allowedOrigin == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	return strings.EqualFold(strings.TrimSuffix(origin, "/"), strings.TrimSuffix(h.allowedOrigin, "/"))
}
