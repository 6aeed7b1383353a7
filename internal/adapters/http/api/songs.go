// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// SongDependencies defines the interface for song and alias operations.
type SongDependencies interface {
	ResolveSong(ctx context.Context, query string) (model.CatalogEntry, error)
	AddCustomAlias(ctx context.Context, songID int, alias string) error
	RemoveCustomAlias(ctx context.Context, alias string) error
	Cover(ctx context.Context, songID int) ([]byte, error)
}

// SongsHandler handles song resolution, alias curation, and cover art.
type SongsHandler struct {
	deps SongDependencies
}

// NewSongsHandler creates a new songs handler.
func NewSongsHandler(deps SongDependencies) *SongsHandler {
	return &SongsHandler{deps: deps}
}

// HandleResolve handles GET /songs/resolve?q=QUERY requests.
func (h *SongsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_song"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.ResolveSong(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// aliasRequest is the body of POST and DELETE /songs/aliases.
type aliasRequest struct {
	SongID int    `json:"song_id"`
	Alias  string `json:"alias"`
}

// HandleAliases handles POST /songs/aliases (add) and DELETE
// /songs/aliases (remove) requests.
func (h *SongsHandler) HandleAliases(w http.ResponseWriter, r *http.Request) {
	const op = "api.aliases"
	var req aliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Alias) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodPost:
		if req.SongID <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if err := h.deps.AddCustomAlias(r.Context(), req.SongID, req.Alias); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "added"})
	case http.MethodDelete:
		if err := h.deps.RemoveCustomAlias(r.Context(), req.Alias); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "removed"})
	default:
		http.NotFound(w, r)
	}
}

// HandleCover handles GET /covers/{song_id} requests.
func (h *SongsHandler) HandleCover(w http.ResponseWriter, r *http.Request) {
	const op = "api.cover"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /covers/
	path := strings.TrimPrefix(r.URL.Path, "/covers/")
	songID, err := strconv.Atoi(path)
	if err != nil || songID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	data, err := h.deps.Cover(r.Context(), songID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}
