package attendance

import "errors"

// Sentinel kinds for attendance transitions. These reflect business-rule
// violations, never transient faults, and are not retried.
var (
	ErrOutOfWindow      = errors.New("timestamp out of meeting window")
	ErrAlreadyCheckedIn = errors.New("already checked in")
	ErrInvalidOrdering  = errors.New("check-out must be after check-in")
	ErrAlreadyCredited  = errors.New("attendance record already finalized")
	ErrNotCheckedIn     = errors.New("not checked in")
	ErrMeetingClosed    = errors.New("meeting is closed")
)
