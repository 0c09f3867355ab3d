// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// PitScoutingHandler handles pit scouting form submission and lookup.
type PitScoutingHandler struct {
	deps Dependencies
}

// NewPitScoutingHandler creates a new pit scouting handler.
func NewPitScoutingHandler(deps Dependencies) *PitScoutingHandler {
	return &PitScoutingHandler{deps: deps}
}

type pitFormRequest struct {
	TeamID      string            `json:"team_id" validate:"required"`
	Competition string            `json:"competition" validate:"required"`
	ScoutID     string            `json:"scout_id" validate:"required"`
	Fields      map[string]string `json:"fields" validate:"required,min=1"`
	At          string            `json:"at" validate:"omitempty"`
}

type fieldChangeResponse struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value"`
	At       string `json:"at"`
	UserID   string `json:"user_id"`
}

type pitEntryResponse struct {
	TeamID      string                `json:"team_id"`
	Competition string                `json:"competition"`
	Fields      map[string]string     `json:"fields"`
	UpdatedAt   string                `json:"updated_at"`
	UpdatedBy   string                `json:"updated_by"`
	History     []fieldChangeResponse `json:"history"`
}

// HandleSubmitForm handles POST /pitscouting/form requests.
func (h *PitScoutingHandler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	const op = "api.pit_form"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req pitFormRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	at, err := parseTimestamp(req.At, time.Now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, _, err := h.deps.SubmitPitEntry(r.Context(), model.PitSubmission{
		TeamID:      req.TeamID,
		Competition: req.Competition,
		Fields:      req.Fields,
		SubmittedAt: at,
		UserID:      req.ScoutID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPitEntryResponse(entry))
}

// HandleGetEntry handles GET /pitscouting/{competition}/{team} requests.
func (h *PitScoutingHandler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	competition, teamID, ok := pathPair(r.URL.Path, "/pitscouting/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	entry, err := h.deps.PitEntry(r.Context(), teamID, competition)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPitEntryResponse(entry))
}

func toPitEntryResponse(entry model.PitScoutingEntry) pitEntryResponse {
	resp := pitEntryResponse{
		TeamID:      entry.TeamID,
		Competition: entry.Competition,
		Fields:      entry.Fields,
		UpdatedAt:   entry.UpdatedAt.Format(time.RFC3339),
		UpdatedBy:   entry.UpdatedBy,
		History:     make([]fieldChangeResponse, 0, len(entry.History)),
	}
	for _, fc := range entry.History {
		resp.History = append(resp.History, fieldChangeResponse{
			Field:    fc.Field,
			OldValue: fc.OldValue,
			NewValue: fc.NewValue,
			At:       fc.At.Format(time.RFC3339),
			UserID:   fc.UserID,
		})
	}
	return resp
}
