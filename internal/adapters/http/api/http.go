// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/frc-emotion/nautilus-backend/internal/adapters/repository"
	"github.com/frc-emotion/nautilus-backend/internal/app"
	"github.com/frc-emotion/nautilus-backend/internal/domain/attendance"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/internal/domain/pitscouting"
	"github.com/frc-emotion/nautilus-backend/internal/domain/scouting"
)

// validate checks request payload struct tags. A single instance caches
// struct metadata across requests.
var validate = validator.New()

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	CreateMeeting(ctx context.Context, p app.MeetingParams) (model.Meeting, error)
	Meeting(ctx context.Context, id string) (model.Meeting, error)
	CloseMeeting(ctx context.Context, meetingID string) (model.Meeting, error)

	CheckIn(ctx context.Context, userID, meetingID string, at time.Time) (model.AttendanceRecord, error)
	CheckOut(ctx context.Context, userID, meetingID string, at time.Time) (model.AttendanceRecord, error)
	AttendanceRecord(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error)
	MemberHours(ctx context.Context, userID string) (map[string]float64, error)
	AddManualCredit(ctx context.Context, userID string, hours float64, term int, year, grantedBy string) (model.AttendanceRecord, error)

	SubmitReport(ctx context.Context, r model.ScoutingReport) (bool, error)
	Aggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error)

	SubmitPitEntry(ctx context.Context, sub model.PitSubmission) (model.PitScoutingEntry, []model.FieldChange, error)
	PitEntry(ctx context.Context, teamID, competition string) (model.PitScoutingEntry, error)

	Stats(ctx context.Context) app.Stats
}

// Server wires HTTP routes for the business API.
type Server struct {
	attendanceHandler *AttendanceHandler
	meetingsHandler   *MeetingsHandler
	scoutingHandler   *ScoutingHandler
	pitHandler        *PitScoutingHandler
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		attendanceHandler: NewAttendanceHandler(deps),
		meetingsHandler:   NewMeetingsHandler(deps),
		scoutingHandler:   NewScoutingHandler(deps),
		pitHandler:        NewPitScoutingHandler(deps),
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/attendance/checkin", MetricsMiddleware(RequireRole(model.RoleMember, s.attendanceHandler.HandleCheckIn), "checkin"))
	mux.HandleFunc("/attendance/checkout", MetricsMiddleware(RequireRole(model.RoleMember, s.attendanceHandler.HandleCheckOut), "checkout"))
	mux.HandleFunc("/attendance/hours/", MetricsMiddleware(RequireRole(model.RoleLead, s.attendanceHandler.HandleHours), "hours"))
	mux.HandleFunc("/attendance/manual", MetricsMiddleware(RequireRole(model.RoleAdmin, s.attendanceHandler.HandleManualCredit), "manual"))

	mux.HandleFunc("/meetings", MetricsMiddleware(RequireRole(model.RoleLead, s.meetingsHandler.HandleCreate), "meetings"))
	mux.HandleFunc("/meetings/", MetricsMiddleware(s.meetingsHandler.HandleMeeting, "meeting"))

	mux.HandleFunc("/scouting/reports", MetricsMiddleware(RequireRole(model.RoleMember, s.scoutingHandler.HandleSubmitReport), "reports"))
	mux.HandleFunc("/scouting/aggregate/", MetricsMiddleware(RequireRole(model.RoleMember, s.scoutingHandler.HandleGetAggregate), "aggregate"))

	mux.HandleFunc("/pitscouting/form", MetricsMiddleware(RequireRole(model.RoleMember, s.pitHandler.HandleSubmitForm), "pit_form"))
	mux.HandleFunc("/pitscouting/", MetricsMiddleware(RequireRole(model.RoleMember, s.pitHandler.HandleGetEntry), "pit_entry"))
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

// writeDomainError translates domain sentinel errors to HTTP responses so
// every business-rule violation surfaces with a stable code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrOutOfWindow):
		writeError(w, http.StatusUnprocessableEntity, "out_of_window", err)
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, "already_checked_in", err)
	case errors.Is(err, attendance.ErrInvalidOrdering):
		writeError(w, http.StatusUnprocessableEntity, "invalid_ordering", err)
	case errors.Is(err, attendance.ErrAlreadyCredited):
		writeError(w, http.StatusConflict, "already_credited", err)
	case errors.Is(err, attendance.ErrNotCheckedIn):
		writeError(w, http.StatusConflict, "not_checked_in", err)
	case errors.Is(err, attendance.ErrMeetingClosed):
		writeError(w, http.StatusConflict, "meeting_closed", err)
	case errors.Is(err, pitscouting.ErrEntryConflict):
		writeError(w, http.StatusConflict, "pit_entry_conflict", err)
	case errors.Is(err, scouting.ErrInsufficientReports):
		writeError(w, http.StatusNotFound, "no_reports", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrExists):
		writeError(w, http.StatusConflict, "already_exists", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeAndValidate decodes a JSON body into v and runs struct validation.
func decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return WrapKind("api.validate", ErrBadRequest, err)
	}
	return nil
}

// parseTimestamp parses an optional RFC3339 timestamp, defaulting to now.
func parseTimestamp(raw string, now func() time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid timestamp; must be RFC3339")
	}
	return t, nil
}

// pathPair extracts two trailing path segments after prefix, e.g.
// /scouting/aggregate/{team}/{match}.
func pathPair(path, prefix string) (string, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
