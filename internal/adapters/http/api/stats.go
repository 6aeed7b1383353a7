// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// StatsProvider exposes the runtime counters the service keeps about
// itself: catalog size, snapshot age, quota budget, worker count.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service introspection endpoint.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler builds the handler for GET /stats.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the current service statistics as a JSON object.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.provider.GetStats())
}
