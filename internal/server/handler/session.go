package handler

import (
	"net/http"

	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/session"
)

// SessionHandler exposes the trading-session state machine over HTTP.
type SessionHandler struct {
	orch *session.Orchestrator
}

// NewSessionHandler creates a SessionHandler for the given orchestrator.
func NewSessionHandler(orch *session.Orchestrator) *SessionHandler {
	return &SessionHandler{orch: orch}
}

// GetSession handles GET /api/session and reports the current step, the
// ordered step history of the last initialization, and the error message
// when the machine is in the error state.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	steps := h.orch.StepLog()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}

	body := map[string]any{
		"step":            string(h.orch.Step()),
		"steps":           names,
		"trading_address": h.orch.TradingAddress().Hex(),
	}
	if msg := h.orch.ErrMessage(); msg != "" {
		body["error"] = msg
	}
	writeJSON(w, http.StatusOK, body)
}

// InitSession handles POST /api/session/init. It first tries to resume a
// persisted session and falls back to a fresh initialization; initialization
// from the error state restarts the sequence.
func (h *SessionHandler) InitSession(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Resume(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	if h.orch.Step() != domain.StepReady {
		if err := h.orch.Initialize(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	h.GetSession(w, r)
}

// EndSession handles DELETE /api/session. It clears persisted session state
// and returns the machine to idle.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.End(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"step": string(domain.StepIdle)})
}
