// Package pitscouting enforces at-most-one canonical robot-spec entry per
// (team, competition).
//
// Reconcile is pure; running it against the latest persisted entry is the
// caller's job. The store executes it inside the key's update transaction so
// the second of two concurrent writers always sees the first writer's entry.
package pitscouting

import (
	"sort"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// Reconcile merges a submission into the existing entry, or creates the
// entry when existing is nil. Last writer wins per field, but every replaced
// value is retained in the entry's history; the audit trail is part of the
// entry's observable state, not a side log.
//
// A submission older than the current entry is rejected with
// ErrEntryConflict instead of being applied out of order.
func Reconcile(existing *model.PitScoutingEntry, sub model.PitSubmission) (model.PitScoutingEntry, []model.FieldChange, error) {
	if existing == nil {
		entry := model.PitScoutingEntry{
			TeamID:      sub.TeamID,
			Competition: sub.Competition,
			Fields:      make(map[string]string, len(sub.Fields)),
			UpdatedAt:   sub.SubmittedAt,
			UpdatedBy:   sub.UserID,
		}
		delta := make([]model.FieldChange, 0, len(sub.Fields))
		for _, field := range sortedFields(sub.Fields) {
			entry.Fields[field] = sub.Fields[field]
			delta = append(delta, model.FieldChange{
				Field:    field,
				NewValue: sub.Fields[field],
				At:       sub.SubmittedAt,
				UserID:   sub.UserID,
			})
		}
		entry.History = delta
		return entry, delta, nil
	}

	if existing.TeamID != sub.TeamID || existing.Competition != sub.Competition {
		return *existing, nil, ErrKeyMismatch
	}
	if sub.SubmittedAt.Before(existing.UpdatedAt) {
		return *existing, nil, ErrEntryConflict
	}

	entry := *existing
	entry.Fields = make(map[string]string, len(existing.Fields))
	for k, v := range existing.Fields {
		entry.Fields[k] = v
	}
	entry.History = append([]model.FieldChange(nil), existing.History...)

	var delta []model.FieldChange
	for _, field := range sortedFields(sub.Fields) {
		newVal := sub.Fields[field]
		oldVal, present := entry.Fields[field]
		if present && oldVal == newVal {
			continue
		}
		entry.Fields[field] = newVal
		delta = append(delta, model.FieldChange{
			Field:    field,
			OldValue: oldVal,
			NewValue: newVal,
			At:       sub.SubmittedAt,
			UserID:   sub.UserID,
		})
	}
	entry.History = append(entry.History, delta...)
	entry.UpdatedAt = sub.SubmittedAt
	entry.UpdatedBy = sub.UserID
	return entry, delta, nil
}

func sortedFields(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
