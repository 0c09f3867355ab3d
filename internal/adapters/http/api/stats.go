// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatsHandler handles service statistics requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	st := h.deps.Stats(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"meetings":    st.Store.Meetings,
		"records":     st.Store.Records,
		"reports":     st.Store.Reports,
		"aggregates":  st.Store.Aggregates,
		"pit_entries": st.Store.PitEntries,
		"queued_jobs": st.QueuedJobs,
		"dedupe_size": st.DedupeSize,
	})
}
