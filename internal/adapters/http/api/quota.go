// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yukko233/maimai-raking/internal/domain/quota"
)

// QuotaDependencies defines the interface for refresh quota operations.
type QuotaDependencies interface {
	ResetQuota(ctx context.Context, playerID string) error
	QuotaRemaining(ctx context.Context, playerID string) (int, error)
}

// QuotaHandler handles refresh quota requests.
type QuotaHandler struct {
	deps QuotaDependencies
}

// NewQuotaHandler creates a new quota handler.
func NewQuotaHandler(deps QuotaDependencies) *QuotaHandler {
	return &QuotaHandler{deps: deps}
}

// HandleReset handles POST /quota/reset requests. Operator override;
// resetting an untouched counter is a no-op success.
func (h *QuotaHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.quota_reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.PlayerID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := h.deps.ResetQuota(r.Context(), req.PlayerID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "reset"})
}

// HandleRemaining handles GET /quota/remaining?player=P requests.
func (h *QuotaHandler) HandleRemaining(w http.ResponseWriter, r *http.Request) {
	const op = "api.quota_remaining"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	remaining, err := h.deps.QuotaRemaining(r.Context(), playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id": playerID,
		"date":      quota.DateKey(time.Now()),
		"remaining": remaining,
	})
}
