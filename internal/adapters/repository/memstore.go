package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
)

// MemStore is the in-memory Store implementation. State lives in plain maps
// behind one RWMutex; Update methods additionally serialize through a
// per-key mutex so a callback always computes against the latest committed
// value.
type MemStore struct {
	mu       sync.RWMutex
	meetings map[string]model.Meeting
	records  map[string]model.AttendanceRecord
	reports  map[string][]model.ScoutingReport
	aggs     map[string]model.ScoutingAggregate
	pit      map[string]model.PitScoutingEntry

	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(ctx context.Context) *MemStore {
	return &MemStore{
		meetings: make(map[string]model.Meeting),
		records:  make(map[string]model.AttendanceRecord),
		reports:  make(map[string][]model.ScoutingReport),
		aggs:     make(map[string]model.ScoutingAggregate),
		pit:      make(map[string]model.PitScoutingEntry),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

// lockFor returns the mutex serializing updates for a key, creating it on
// first use. Locks are never removed; the key space is bounded by entities.
func (s *MemStore) lockFor(key string) *sync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

func (s *MemStore) PutMeeting(ctx context.Context, m model.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; ok {
		return fmt.Errorf("%w: meeting %s", ErrExists, m.ID)
	}
	s.meetings[m.ID] = m
	return nil
}

func (s *MemStore) Meeting(ctx context.Context, id string) (model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return model.Meeting{}, fmt.Errorf("%w: meeting %s", ErrNotFound, id)
	}
	return m, nil
}

func (s *MemStore) UpdateMeeting(ctx context.Context, id string, fn func(model.Meeting) (model.Meeting, error)) (model.Meeting, error) {
	l := s.lockFor("meeting|" + id)
	l.Lock()
	defer l.Unlock()

	cur, err := s.Meeting(ctx, id)
	if err != nil {
		return model.Meeting{}, err
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	s.mu.Lock()
	s.meetings[id] = next
	s.mu.Unlock()
	return next, nil
}

func (s *MemStore) Record(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[pairKey(userID, meetingID)]
	if !ok {
		return model.AttendanceRecord{}, fmt.Errorf("%w: attendance %s/%s", ErrNotFound, userID, meetingID)
	}
	return rec, nil
}

func (s *MemStore) UpdateRecord(ctx context.Context, userID, meetingID string, fn func(model.AttendanceRecord) (model.AttendanceRecord, error)) (model.AttendanceRecord, error) {
	key := pairKey(userID, meetingID)
	l := s.lockFor("record|" + key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	cur, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		cur = model.AttendanceRecord{
			UserID:    userID,
			MeetingID: meetingID,
			State:     model.AttendanceNone,
		}
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	s.mu.Lock()
	s.records[key] = next
	s.mu.Unlock()
	return next, nil
}

func (s *MemStore) RecordsByMeeting(ctx context.Context, meetingID string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AttendanceRecord
	for _, rec := range s.records {
		if rec.MeetingID == meetingID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemStore) RecordsByUser(ctx context.Context, userID string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AttendanceRecord
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeetingID < out[j].MeetingID })
	return out, nil
}

func (s *MemStore) AppendReport(ctx context.Context, r model.ScoutingReport) error {
	key := pairKey(r.TeamID, r.MatchID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports[key] {
		if existing.ID == r.ID {
			return fmt.Errorf("%w: report %s", ErrExists, r.ID)
		}
	}
	s.reports[key] = append(s.reports[key], r)
	return nil
}

func (s *MemStore) Reports(ctx context.Context, teamID, matchID string) ([]model.ScoutingReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.reports[pairKey(teamID, matchID)]
	out := make([]model.ScoutingReport, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *MemStore) RecomputeAggregate(ctx context.Context, teamID, matchID string, fold func([]model.ScoutingReport) (model.ScoutingAggregate, error)) (model.ScoutingAggregate, error) {
	key := pairKey(teamID, matchID)
	l := s.lockFor("aggregate|" + key)
	l.Lock()
	defer l.Unlock()

	reports, _ := s.Reports(ctx, teamID, matchID)
	agg, err := fold(reports)
	if err != nil {
		return model.ScoutingAggregate{}, err
	}
	s.mu.Lock()
	s.aggs[key] = agg
	s.mu.Unlock()
	return agg, nil
}

func (s *MemStore) Aggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggs[pairKey(teamID, matchID)]
	if !ok {
		return model.ScoutingAggregate{}, fmt.Errorf("%w: aggregate %s/%s", ErrNotFound, teamID, matchID)
	}
	return agg, nil
}

func (s *MemStore) UpdatePitEntry(ctx context.Context, teamID, competition string, fn func(*model.PitScoutingEntry) (model.PitScoutingEntry, error)) (model.PitScoutingEntry, error) {
	key := pairKey(teamID, competition)
	l := s.lockFor("pit|" + key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	cur, ok := s.pit[key]
	s.mu.RUnlock()

	var curPtr *model.PitScoutingEntry
	if ok {
		curPtr = &cur
	}
	next, err := fn(curPtr)
	if err != nil {
		return cur, err
	}
	s.mu.Lock()
	s.pit[key] = next
	s.mu.Unlock()
	return next, nil
}

func (s *MemStore) PitEntry(ctx context.Context, teamID, competition string) (model.PitScoutingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.pit[pairKey(teamID, competition)]
	if !ok {
		return model.PitScoutingEntry{}, fmt.Errorf("%w: pit entry %s/%s", ErrNotFound, teamID, competition)
	}
	return entry, nil
}

func (s *MemStore) Counts(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reports := 0
	for _, rs := range s.reports {
		reports += len(rs)
	}
	return Stats{
		Meetings:   len(s.meetings),
		Records:    len(s.records),
		Reports:    reports,
		Aggregates: len(s.aggs),
		PitEntries: len(s.pit),
	}
}
