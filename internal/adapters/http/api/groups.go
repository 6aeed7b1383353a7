// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yukko233/maimai-raking/internal/adapters/refresh"
	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// GroupDependencies defines the interface for group membership operations.
type GroupDependencies interface {
	EnableGroup(ctx context.Context, groupID string) error
	DisableGroup(ctx context.Context, groupID string) error
	JoinGroup(ctx context.Context, groupID, playerID string) (model.PlayerProfile, error)
	LeaveGroup(ctx context.Context, groupID, playerID string) error
	RefreshGroup(ctx context.Context, groupID, requestedBy string) (refresh.Result, error)
}

// GroupsHandler handles group lifecycle and membership requests.
type GroupsHandler struct {
	deps GroupDependencies
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies) *GroupsHandler {
	return &GroupsHandler{deps: deps}
}

// memberRequest is the body of join, leave, and refresh calls.
type memberRequest struct {
	PlayerID string `json:"player_id"`
}

func (m memberRequest) validate() error {
	if strings.TrimSpace(m.PlayerID) == "" {
		return NewKind("api.group_action", ErrBadRequest)
	}
	return nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleGroupAction handles POST /groups/{group_id}/{action} requests,
// where action is one of enable, disable, join, leave, refresh.
func (h *GroupsHandler) HandleGroupAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.group_action"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /groups/
	path := strings.TrimPrefix(r.URL.Path, "/groups/")
	groupID, action, found := strings.Cut(path, "/")
	if !found || groupID == "" || strings.Contains(action, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch action {
	case "enable":
		if err := h.deps.EnableGroup(r.Context(), groupID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "enabled"})
	case "disable":
		if err := h.deps.DisableGroup(r.Context(), groupID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "disabled"})
	case "join":
		req, err := decodeMember(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		profile, err := h.deps.JoinGroup(r.Context(), groupID, req.PlayerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "joined",
			"nickname": profile.Nickname,
			"rating":   profile.Rating,
		})
	case "leave":
		req, err := decodeMember(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := h.deps.LeaveGroup(r.Context(), groupID, req.PlayerID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "left"})
	case "refresh":
		req, err := decodeMember(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		result, err := h.deps.RefreshGroup(r.Context(), groupID, req.PlayerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		http.NotFound(w, r)
	}
}

func decodeMember(r *http.Request) (memberRequest, error) {
	const op = "api.group_action"
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return memberRequest{}, WrapKind(op, ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return memberRequest{}, err
	}
	return req, nil
}
