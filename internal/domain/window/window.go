// Package window evaluates event timestamps against a meeting's accepted
// check-in and check-out windows. Evaluation is pure and deterministic so the
// attendance state machine above it stays trivially testable.
package window

import (
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// Kind selects which window an event is evaluated against.
type Kind int

// Event kinds.
const (
	CheckIn Kind = iota
	CheckOut
)

func (k Kind) String() string {
	if k == CheckIn {
		return "check_in"
	}
	return "check_out"
}

// Result classifies a timestamp against a meeting window.
type Result int

// Evaluation results.
const (
	Valid Result = iota
	TooEarly
	TooLate
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case TooEarly:
		return "too_early"
	default:
		return "too_late"
	}
}

// Evaluate reports whether t is acceptable for the given event kind against
// the meeting's window. Check-in is valid on [start-preGrace, end]; check-out
// is valid on [start, end+postGrace]. Bounds are inclusive.
func Evaluate(m model.Meeting, t time.Time, kind Kind) Result {
	var earliest, latest time.Time
	switch kind {
	case CheckIn:
		earliest = m.StartTime.Add(-m.PreGrace)
		latest = m.EndTime
	case CheckOut:
		earliest = m.StartTime
		latest = m.EndTime.Add(m.PostGrace)
	}
	if t.Before(earliest) {
		return TooEarly
	}
	if t.After(latest) {
		return TooLate
	}
	return Valid
}
