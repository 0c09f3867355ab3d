// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// AttendanceHandler handles check-in/out and hour queries.
type AttendanceHandler struct {
	deps Dependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps Dependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

type checkRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	MeetingID string `json:"meeting_id" validate:"required"`
	// At is an optional RFC3339 timestamp; the server clock is used when
	// omitted.
	At string `json:"at" validate:"omitempty"`
}

type recordResponse struct {
	UserID        string  `json:"user_id"`
	MeetingID     string  `json:"meeting_id"`
	State         string  `json:"state"`
	CheckIn       string  `json:"check_in,omitempty"`
	CheckOut      string  `json:"check_out,omitempty"`
	CreditedHours float64 `json:"credited_hours"`
}

// HandleCheckIn handles POST /attendance/checkin requests.
func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkin"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req checkRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	at, err := parseTimestamp(req.At, time.Now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.CheckIn(r.Context(), req.UserID, req.MeetingID, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

// HandleCheckOut handles POST /attendance/checkout requests.
func (h *AttendanceHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req checkRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	at, err := parseTimestamp(req.At, time.Now)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.CheckOut(r.Context(), req.UserID, req.MeetingID, at)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

// HandleHours handles GET /attendance/hours/{user_id} requests. Totals are
// bucketed by "year_term" keys.
func (h *AttendanceHandler) HandleHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/attendance/hours/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	hours, err := h.deps.MemberHours(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "hours": hours})
}

type manualCreditRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	Hours     float64 `json:"hours" validate:"required,gt=0"`
	Term      int     `json:"term" validate:"required,min=1"`
	Year      string  `json:"year" validate:"required"`
	GrantedBy string  `json:"granted_by" validate:"required"`
}

// HandleManualCredit handles POST /attendance/manual requests.
func (h *AttendanceHandler) HandleManualCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req manualCreditRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rec, err := h.deps.AddManualCredit(r.Context(), req.UserID, req.Hours, req.Term, req.Year, req.GrantedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func toRecordResponse(rec model.AttendanceRecord) recordResponse {
	resp := recordResponse{
		UserID:        rec.UserID,
		MeetingID:     rec.MeetingID,
		State:         string(rec.State),
		CreditedHours: rec.CreditedHours,
	}
	if !rec.CheckIn.IsZero() {
		resp.CheckIn = rec.CheckIn.Format(time.RFC3339)
	}
	if !rec.CheckOut.IsZero() {
		resp.CheckOut = rec.CheckOut.Format(time.RFC3339)
	}
	return resp
}
