// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yukko233/maimai-raking/internal/adapters/prober"
	"github.com/yukko233/maimai-raking/internal/adapters/refresh"
	"github.com/yukko233/maimai-raking/internal/adapters/store"
	"github.com/yukko233/maimai-raking/internal/app"
	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/internal/domain/quota"
	"github.com/yukko233/maimai-raking/internal/domain/ranking"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EnableGroup(ctx context.Context, groupID string) error
	DisableGroup(ctx context.Context, groupID string) error
	JoinGroup(ctx context.Context, groupID, playerID string) (model.PlayerProfile, error)
	LeaveGroup(ctx context.Context, groupID, playerID string) error
	RefreshGroup(ctx context.Context, groupID, requestedBy string) (refresh.Result, error)

	ResolveSong(ctx context.Context, query string) (model.CatalogEntry, error)
	SongLeaderboard(ctx context.Context, groupID, query, difficulty string) (app.SongBoard, error)
	RatingLeaderboard(ctx context.Context, groupID string, segment int) (app.RatingBoard, error)

	ResetQuota(ctx context.Context, playerID string) error
	QuotaRemaining(ctx context.Context, playerID string) (int, error)

	AddCustomAlias(ctx context.Context, songID int, alias string) error
	RemoveCustomAlias(ctx context.Context, alias string) error
	Cover(ctx context.Context, songID int) ([]byte, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	groupsHandler      *GroupsHandler
	leaderboardHandler *LeaderboardHandler
	songsHandler       *SongsHandler
	quotaHandler       *QuotaHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		groupsHandler:      NewGroupsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		songsHandler:       NewSongsHandler(deps),
		quotaHandler:       NewQuotaHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/groups/", MetricsMiddleware(s.groupsHandler.HandleGroupAction, "groups"))
	mux.HandleFunc("/leaderboard/song", MetricsMiddleware(s.leaderboardHandler.HandleSongLeaderboard, "leaderboard_song"))
	mux.HandleFunc("/leaderboard/rating", MetricsMiddleware(s.leaderboardHandler.HandleRatingLeaderboard, "leaderboard_rating"))
	mux.HandleFunc("/songs/resolve", MetricsMiddleware(s.songsHandler.HandleResolve, "songs_resolve"))
	mux.HandleFunc("/songs/aliases", MetricsMiddleware(s.songsHandler.HandleAliases, "songs_aliases"))
	mux.HandleFunc("/covers/", MetricsMiddleware(s.songsHandler.HandleCover, "covers"))
	mux.HandleFunc("/quota/reset", MetricsMiddleware(s.quotaHandler.HandleReset, "quota_reset"))
	mux.HandleFunc("/quota/remaining", MetricsMiddleware(s.quotaHandler.HandleRemaining, "quota_remaining"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain sentinels into HTTP responses. An
// empty population is a successful query over nobody, so it answers 200
// with an explicit no_data payload rather than an error status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ranking.ErrEmptyPopulation):
		writeJSON(w, http.StatusOK, map[string]any{"status": "no_data"})
	case errors.Is(err, quota.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, "quota_exceeded", err)
	case errors.Is(err, app.ErrSongNotFound),
		errors.Is(err, prober.ErrPlayerNotFound),
		errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrGroupDisabled):
		writeError(w, http.StatusForbidden, "group_disabled", err)
	case errors.Is(err, app.ErrAlreadyMember),
		errors.Is(err, app.ErrNotMember),
		errors.Is(err, store.ErrDuplicateAlias):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, app.ErrEmptyQuery),
		errors.Is(err, app.ErrUnknownDifficulty),
		errors.Is(err, ranking.ErrInvalidSegment),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, app.ErrCatalogUnavailable):
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", err)
	case errors.Is(err, app.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
