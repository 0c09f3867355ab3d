// Package model contains domain models passed between layers.
package model

import "time"

// Role identifies a member's position on the team. Roles are checked by the
// calling layer and passed explicitly; the domain core holds no session state.
type Role string

// Known roles, lowest to highest privilege.
const (
	RoleMember Role = "member"
	RoleMentor Role = "mentor"
	RoleLead   Role = "lead"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember: 0,
	RoleMentor: 1,
	RoleLead:   2,
	RoleAdmin:  3,
}

// Known reports whether r is one of the defined roles.
func (r Role) Known() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	ra, ok := roleRank[r]
	if !ok {
		return false
	}
	return ra >= roleRank[min]
}

// User is an immutable identity with a mutable role.
type User struct {
	ID   string
	Name string
	Role Role
}

// MeetingStatus tracks a meeting's lifecycle.
type MeetingStatus string

// Meeting lifecycle states. Closed meetings are immutable.
const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingActive    MeetingStatus = "active"
	MeetingClosed    MeetingStatus = "closed"
)

// Meeting is a scheduled session members check in and out of.
type Meeting struct {
	ID        string
	Title     string
	CreatedBy string
	StartTime time.Time
	EndTime   time.Time
	PreGrace  time.Duration
	PostGrace time.Duration
	Location  string
	// HourCap overrides the configured per-meeting credit cap when positive.
	HourCap float64
	Term    int
	Year    string
	Status  MeetingStatus
}

// AttendanceState is the per-(user, meeting) lifecycle state.
type AttendanceState string

// Attendance lifecycle states. Void is terminal and reachable from any
// non-credited state when the meeting closes without a valid checkout.
const (
	AttendanceNone       AttendanceState = "none"
	AttendanceCheckedIn  AttendanceState = "checked_in"
	AttendanceCheckedOut AttendanceState = "checked_out"
	AttendanceCredited   AttendanceState = "credited"
	AttendanceVoid       AttendanceState = "void"
)

// Terminal reports whether the state admits no further transitions.
func (s AttendanceState) Terminal() bool {
	return s == AttendanceCredited || s == AttendanceVoid
}

// AttendanceRecord is the single record per (user, meeting). Records are
// never deleted; voiding is a terminal flag preserving audit history.
type AttendanceRecord struct {
	UserID    string
	MeetingID string
	CheckIn   time.Time // zero until checked in
	CheckOut  time.Time // zero until checked out
	State     AttendanceState
	// CreditedHours is set when the record reaches the credited state.
	CreditedHours float64
	Term          int
	Year          string
}

// ScoutingReport is one scout's observation of a team in one match.
// Reports are immutable once submitted; corrections are new reports.
type ScoutingReport struct {
	ID          string
	TeamID      string
	MatchID     string
	ScoutID     string
	Numeric     map[string]float64
	Boolean     map[string]bool
	SubmittedAt time.Time
}

// ScoutingAggregate is the merged view of all reports for one (team, match).
type ScoutingAggregate struct {
	TeamID  string
	MatchID string
	Numeric map[string]float64
	Boolean map[string]bool
	// Agreement holds the per-field fraction of contributing reports that
	// match the merged value.
	Agreement map[string]float64
	Disputed  bool
	// ReportIDs lists the contributing reports, in submission order.
	ReportIDs   []string
	ReportCount int
	ComputedAt  time.Time
}

// FieldChange records one overwritten pit scouting field value.
type FieldChange struct {
	Field    string
	OldValue string
	NewValue string
	At       time.Time
	UserID   string
}

// PitScoutingEntry is the single canonical robot-spec record per
// (team, competition). Every update is reflected in History.
type PitScoutingEntry struct {
	TeamID      string
	Competition string
	Fields      map[string]string
	UpdatedAt   time.Time
	UpdatedBy   string
	History     []FieldChange
}

// PitSubmission is one scout's pit form for a (team, competition).
type PitSubmission struct {
	TeamID      string
	Competition string
	Fields      map[string]string
	SubmittedAt time.Time
	UserID      string
}
