package scouting

import "errors"

// Sentinel kinds for report merging.
var (
	ErrInsufficientReports = errors.New("no reports to aggregate")
	ErrMixedKeys           = errors.New("reports reference different team/match keys")
)
