// Package attendance implements the per-(user, meeting) check-in lifecycle.
//
// The state machine is pure: it takes record and meeting snapshots and
// returns a new record value. Serialization per (user, meeting) key is the
// persistence layer's job; callers run transitions inside the store's
// per-key update.
package attendance

import (
	"fmt"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/accrual"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/internal/domain/window"
)

// EventKind identifies the transition being attempted.
type EventKind int

// Transition events. Close is raised once per record when the meeting
// transitions to closed.
const (
	EventCheckIn EventKind = iota
	EventCheckOut
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventCheckIn:
		return "check_in"
	case EventCheckOut:
		return "check_out"
	default:
		return "close"
	}
}

// Event carries one attempted transition.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Transition applies ev to the record and returns the updated record.
// Re-entrant attempts on terminal records are rejected, not absorbed: a
// repeated client request after a crash must surface the conflict.
func Transition(rec model.AttendanceRecord, m model.Meeting, ev Event, pol accrual.Policy) (model.AttendanceRecord, error) {
	if rec.State == "" {
		rec.State = model.AttendanceNone
	}

	switch ev.Kind {
	case EventCheckIn:
		return checkIn(rec, m, ev)
	case EventCheckOut:
		return checkOut(rec, m, ev)
	case EventClose:
		return closeOut(rec, m, pol)
	default:
		return rec, fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func checkIn(rec model.AttendanceRecord, m model.Meeting, ev Event) (model.AttendanceRecord, error) {
	switch rec.State {
	case model.AttendanceCredited, model.AttendanceVoid:
		return rec, ErrAlreadyCredited
	case model.AttendanceCheckedIn, model.AttendanceCheckedOut:
		return rec, ErrAlreadyCheckedIn
	}
	if m.Status == model.MeetingClosed {
		return rec, ErrMeetingClosed
	}
	if res := window.Evaluate(m, ev.At, window.CheckIn); res != window.Valid {
		return rec, fmt.Errorf("%w: check-in %s", ErrOutOfWindow, res)
	}

	rec.MeetingID = m.ID
	rec.CheckIn = ev.At
	rec.State = model.AttendanceCheckedIn
	rec.Term = m.Term
	rec.Year = m.Year
	return rec, nil
}

func checkOut(rec model.AttendanceRecord, m model.Meeting, ev Event) (model.AttendanceRecord, error) {
	switch rec.State {
	case model.AttendanceNone:
		return rec, ErrNotCheckedIn
	case model.AttendanceCheckedOut, model.AttendanceCredited, model.AttendanceVoid:
		return rec, ErrAlreadyCredited
	}
	if m.Status == model.MeetingClosed {
		return rec, ErrMeetingClosed
	}
	if res := window.Evaluate(m, ev.At, window.CheckOut); res != window.Valid {
		return rec, fmt.Errorf("%w: check-out %s", ErrOutOfWindow, res)
	}
	// Duration must be strictly positive; equal timestamps are rejected.
	if !ev.At.After(rec.CheckIn) {
		return rec, ErrInvalidOrdering
	}

	rec.CheckOut = ev.At
	rec.State = model.AttendanceCheckedOut
	return rec, nil
}

// closeOut finalizes a record when its meeting closes. A completed
// check-in/out pair is credited; anything short of a valid checkout is
// voided with zero hours.
func closeOut(rec model.AttendanceRecord, m model.Meeting, pol accrual.Policy) (model.AttendanceRecord, error) {
	switch rec.State {
	case model.AttendanceCredited, model.AttendanceVoid:
		return rec, ErrAlreadyCredited
	case model.AttendanceCheckedOut:
		if m.HourCap > 0 {
			pol.CapHours = m.HourCap
		}
		credit := accrual.Accrue(rec.CheckIn, rec.CheckOut, pol)
		rec.CreditedHours = credit.Hours
		rec.State = model.AttendanceCredited
		return rec, nil
	default:
		// No checkout recorded before close: terminal void, no hours.
		rec.CreditedHours = 0
		rec.State = model.AttendanceVoid
		return rec, nil
	}
}
