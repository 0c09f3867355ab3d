// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/app"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// MeetingsHandler handles meeting creation, lookup and close.
type MeetingsHandler struct {
	deps Dependencies
}

// NewMeetingsHandler creates a new meetings handler.
func NewMeetingsHandler(deps Dependencies) *MeetingsHandler {
	return &MeetingsHandler{deps: deps}
}

type createMeetingRequest struct {
	Title     string  `json:"title" validate:"required"`
	CreatedBy string  `json:"created_by" validate:"required"`
	StartTime string  `json:"time_start" validate:"required"`
	EndTime   string  `json:"time_end" validate:"required"`
	Location  string  `json:"location" validate:"omitempty"`
	HourCap   float64 `json:"hour_cap" validate:"omitempty,gte=0"`
	Term      int     `json:"term" validate:"required,min=1"`
	Year      string  `json:"year" validate:"required"`
}

type meetingResponse struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	CreatedBy string  `json:"created_by"`
	StartTime string  `json:"time_start"`
	EndTime   string  `json:"time_end"`
	Location  string  `json:"location,omitempty"`
	HourCap   float64 `json:"hour_cap,omitempty"`
	Term      int     `json:"term"`
	Year      string  `json:"year"`
	Status    string  `json:"status"`
}

// HandleCreate handles POST /meetings requests.
func (h *MeetingsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_meeting"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createMeetingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.CreateMeeting(r.Context(), app.MeetingParams{
		Title:     req.Title,
		CreatedBy: req.CreatedBy,
		StartTime: start,
		EndTime:   end,
		Location:  req.Location,
		HourCap:   req.HourCap,
		Term:      req.Term,
		Year:      req.Year,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeetingResponse(m))
}

// HandleMeeting handles GET /meetings/{id} and POST /meetings/{id}/close.
func (h *MeetingsHandler) HandleMeeting(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/meetings/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/close"); ok {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		// Closing is lead/admin work; creation shares the same gate via
		// route registration, this path is checked here.
		if !callerRole(r).AtLeast(model.RoleLead) {
			writeError(w, http.StatusForbidden, "forbidden", NewKind("api.role", ErrForbidden))
			return
		}
		m, err := h.deps.CloseMeeting(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMeetingResponse(m))
		return
	}

	if r.Method != http.MethodGet || strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}
	m, err := h.deps.Meeting(r.Context(), rest)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeetingResponse(m))
}

func toMeetingResponse(m model.Meeting) meetingResponse {
	return meetingResponse{
		ID:        m.ID,
		Title:     m.Title,
		CreatedBy: m.CreatedBy,
		StartTime: m.StartTime.Format(time.RFC3339),
		EndTime:   m.EndTime.Format(time.RFC3339),
		Location:  m.Location,
		HourCap:   m.HourCap,
		Term:      m.Term,
		Year:      m.Year,
		Status:    string(m.Status),
	}
}
