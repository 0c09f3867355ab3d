package pitscouting

import "errors"

// Sentinel kinds for pit entry reconciliation.
var (
	ErrEntryConflict = errors.New("pit entry conflict: submission older than current entry")
	ErrKeyMismatch   = errors.New("submission references a different team/competition")
)
