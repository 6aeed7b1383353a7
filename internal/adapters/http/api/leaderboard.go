// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/yukko233/maimai-raking/internal/app"
	"github.com/yukko233/maimai-raking/internal/domain/ranking"
)

// LeaderboardDependencies defines the interface for leaderboard queries.
type LeaderboardDependencies interface {
	SongLeaderboard(ctx context.Context, groupID, query, difficulty string) (app.SongBoard, error)
	RatingLeaderboard(ctx context.Context, groupID string, segment int) (app.RatingBoard, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleSongLeaderboard handles GET /leaderboard/song?group=G&q=QUERY[&difficulty=D].
func (h *LeaderboardHandler) HandleSongLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.song_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	groupID := r.URL.Query().Get("group")
	query := r.URL.Query().Get("q")
	if groupID == "" || query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	difficulty := r.URL.Query().Get("difficulty")

	board, err := h.deps.SongLeaderboard(r.Context(), groupID, query, difficulty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleRatingLeaderboard handles GET /leaderboard/rating?group=G[&segment=N].
// Without a segment the whole group is ranked.
func (h *LeaderboardHandler) HandleRatingLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.rating_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	groupID := r.URL.Query().Get("group")
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	segment := ranking.NoSegment
	if raw := r.URL.Query().Get("segment"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		segment = n
	}

	board, err := h.deps.RatingLeaderboard(r.Context(), groupID, segment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
