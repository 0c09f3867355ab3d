// Package accrual derives credited hours from a completed check-in/out pair.
// The computation is a pure function of its inputs so credited hours can be
// recomputed for audit and reproduce the same value bit-for-bit.
package accrual

import (
	"time"
)

// Policy controls rounding and capping of credited hours.
type Policy struct {
	// Increment is the rounding step. Durations round down to the nearest
	// multiple; a duration below one increment credits zero hours.
	Increment time.Duration

	// CapHours limits credited hours per meeting when positive.
	CapHours float64
}

// Credit is the accrual outcome. BelowIncrement marks the zero-credit case
// so callers can log it distinctly from a normal credit.
type Credit struct {
	Hours          float64
	BelowIncrement bool
}

// Accrue computes credited hours for the interval [checkIn, checkOut].
// The interval must be strictly positive; callers enforce ordering before
// invoking accrual.
func Accrue(checkIn, checkOut time.Time, p Policy) Credit {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return Credit{Hours: 0, BelowIncrement: true}
	}

	increment := p.Increment
	if increment <= 0 {
		increment = 15 * time.Minute
	}

	rounded := d.Truncate(increment)
	if rounded <= 0 {
		return Credit{Hours: 0, BelowIncrement: true}
	}

	hours := rounded.Hours()
	if p.CapHours > 0 && hours > p.CapHours {
		hours = p.CapHours
	}
	return Credit{Hours: hours}
}
