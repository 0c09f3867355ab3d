// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// ScoutingHandler handles match scouting report submission and aggregates.
type ScoutingHandler struct {
	deps Dependencies
}

// NewScoutingHandler creates a new scouting handler.
func NewScoutingHandler(deps Dependencies) *ScoutingHandler {
	return &ScoutingHandler{deps: deps}
}

type reportRequest struct {
	// ReportID makes retries idempotent; the server mints one if omitted.
	ReportID string             `json:"report_id" validate:"omitempty"`
	TeamID   string             `json:"team_id" validate:"required"`
	MatchID  string             `json:"match_id" validate:"required"`
	ScoutID  string             `json:"scout_id" validate:"required"`
	Numeric  map[string]float64 `json:"numeric" validate:"omitempty"`
	Boolean  map[string]bool    `json:"boolean" validate:"omitempty"`
	At       string             `json:"at" validate:"omitempty"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmitReport handles POST /scouting/reports requests.
func (h *ScoutingHandler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_report"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req reportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(req.Numeric) == 0 && len(req.Boolean) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	at, err := parseTimestamp(req.At, time.Now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	duplicate, err := h.deps.SubmitReport(r.Context(), model.ScoutingReport{
		ID:          req.ReportID,
		TeamID:      req.TeamID,
		MatchID:     req.MatchID,
		ScoutID:     req.ScoutID,
		Numeric:     req.Numeric,
		Boolean:     req.Boolean,
		SubmittedAt: at,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

type aggregateResponse struct {
	TeamID      string             `json:"team_id"`
	MatchID     string             `json:"match_id"`
	Numeric     map[string]float64 `json:"numeric"`
	Boolean     map[string]bool    `json:"boolean"`
	Agreement   map[string]float64 `json:"agreement"`
	Disputed    bool               `json:"disputed"`
	ReportIDs   []string           `json:"report_ids"`
	ReportCount int                `json:"report_count"`
	ComputedAt  string             `json:"computed_at"`
}

// HandleGetAggregate handles GET /scouting/aggregate/{team}/{match}.
// Callers must treat a disputed aggregate as needing review, not as
// authoritative.
func (h *ScoutingHandler) HandleGetAggregate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	teamID, matchID, ok := pathPair(r.URL.Path, "/scouting/aggregate/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	agg, err := h.deps.Aggregate(r.Context(), teamID, matchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{
		TeamID:      agg.TeamID,
		MatchID:     agg.MatchID,
		Numeric:     agg.Numeric,
		Boolean:     agg.Boolean,
		Agreement:   agg.Agreement,
		Disputed:    agg.Disputed,
		ReportIDs:   agg.ReportIDs,
		ReportCount: agg.ReportCount,
		ComputedAt:  agg.ComputedAt.Format(time.RFC3339),
	})
}
