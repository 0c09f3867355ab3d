// Package repository defines the snapshot store interface and errors.
//
// The domain core is pure; the store supplies the fetch-compute-commit
// pattern around it. Update methods execute their callback under the entity
// key's lock, which provides the per-key serialization the domain relies on
// (attendance transitions per (user, meeting), pit entry reconciliation per
// (team, competition), aggregate recomputes per (team, match)).
package repository

import (
	"context"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// Stats summarizes store contents for the stats endpoint.
type Stats struct {
	Meetings   int
	Records    int
	Reports    int
	Aggregates int
	PitEntries int
}

// Store provides read/write access to entity snapshots.
type Store interface {
	// PutMeeting inserts a meeting. Fails with ErrExists on a duplicate ID.
	PutMeeting(ctx context.Context, m model.Meeting) error
	// Meeting returns a meeting snapshot. Returns ErrNotFound if unknown.
	Meeting(ctx context.Context, id string) (model.Meeting, error)
	// UpdateMeeting runs fn on the current meeting under its key lock and
	// commits the returned value. fn errors abort the update.
	UpdateMeeting(ctx context.Context, id string, fn func(model.Meeting) (model.Meeting, error)) (model.Meeting, error)

	// Record returns the attendance record for (user, meeting).
	// Returns ErrNotFound if no transition has ever been attempted.
	Record(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error)
	// UpdateRecord runs fn under the (user, meeting) key lock. When no
	// record exists yet, fn receives a fresh record in the none state.
	UpdateRecord(ctx context.Context, userID, meetingID string, fn func(model.AttendanceRecord) (model.AttendanceRecord, error)) (model.AttendanceRecord, error)
	// RecordsByMeeting lists all records of a meeting.
	RecordsByMeeting(ctx context.Context, meetingID string) ([]model.AttendanceRecord, error)
	// RecordsByUser lists all records of a user.
	RecordsByUser(ctx context.Context, userID string) ([]model.AttendanceRecord, error)

	// AppendReport inserts an immutable scouting report. Append-only;
	// duplicate report IDs for the same (team, match) fail with ErrExists.
	AppendReport(ctx context.Context, r model.ScoutingReport) error
	// Reports lists all reports for a (team, match) in insertion order.
	Reports(ctx context.Context, teamID, matchID string) ([]model.ScoutingReport, error)
	// RecomputeAggregate folds the current report set into a new aggregate
	// under the (team, match) key lock, so two concurrent recomputes for the
	// same key never interleave partial folds.
	RecomputeAggregate(ctx context.Context, teamID, matchID string, fold func([]model.ScoutingReport) (model.ScoutingAggregate, error)) (model.ScoutingAggregate, error)
	// Aggregate returns the current aggregate for a (team, match).
	Aggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error)

	// UpdatePitEntry runs fn under the (team, competition) key lock. fn
	// receives nil when no entry exists yet. The committed entry is always
	// the latest persisted value, never a stale read.
	UpdatePitEntry(ctx context.Context, teamID, competition string, fn func(*model.PitScoutingEntry) (model.PitScoutingEntry, error)) (model.PitScoutingEntry, error)
	// PitEntry returns the canonical entry for a (team, competition).
	PitEntry(ctx context.Context, teamID, competition string) (model.PitScoutingEntry, error)

	// Counts reports store contents.
	Counts(ctx context.Context) Stats
}
