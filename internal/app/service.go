// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
//
// The service owns no business rules itself: it fetches entity snapshots
// from the store, runs the pure domain functions inside the store's per-key
// update transactions, and persists the results (fetch, compute, commit).
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/frc-emotion/nautilus-backend/internal/adapters/mq/queue"
	workerpool "github.com/frc-emotion/nautilus-backend/internal/adapters/mq/worker"
	"github.com/frc-emotion/nautilus-backend/internal/adapters/repository"
	"github.com/frc-emotion/nautilus-backend/internal/domain/accrual"
	"github.com/frc-emotion/nautilus-backend/internal/domain/attendance"
	"github.com/frc-emotion/nautilus-backend/internal/domain/dedupe"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/internal/domain/pitscouting"
	"github.com/frc-emotion/nautilus-backend/internal/domain/scouting"
	"github.com/frc-emotion/nautilus-backend/pkg/logger"
	"github.com/frc-emotion/nautilus-backend/pkg/metrics"
)

// Stats summarizes service state for the stats endpoint.
type Stats struct {
	Store      repository.Stats
	QueuedJobs int
	DedupeSize int64
}

// MeetingParams carries the caller-supplied fields for a new meeting.
type MeetingParams struct {
	Title     string
	CreatedBy string
	StartTime time.Time
	EndTime   time.Time
	Location  string
	HourCap   float64
	Term      int
	Year      string
}

// Service implements the attendance and scouting operations behind the API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	jobs    jobqueue.Queue
	pool    *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	accrualPol  accrual.Policy
	mergeCfg    scouting.Config
	preGrace    time.Duration
	postGrace   time.Duration

	// Time source; injectable for deterministic tests.
	now func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of reconciliation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the submission dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithAccrualPolicy sets the hour accrual rounding and cap policy.
func WithAccrualPolicy(pol accrual.Policy) Option {
	return func(s *Service) {
		s.accrualPol = pol
	}
}

// WithMergeConfig sets the report merge dispute threshold and tolerance.
func WithMergeConfig(cfg scouting.Config) Option {
	return func(s *Service) {
		s.mergeCfg = cfg
	}
}

// WithGraceWindows sets the default pre/post grace applied to new meetings.
func WithGraceWindows(pre, post time.Duration) Option {
	return func(s *Service) {
		if pre >= 0 {
			s.preGrace = pre
		}
		if post >= 0 {
			s.postGrace = post
		}
	}
}

// WithClock sets the time source. Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  100_000,
		accrualPol:  accrual.Policy{Increment: 15 * time.Minute},
		mergeCfg:    scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9},
		preGrace:    10 * time.Minute,
		postGrace:   10 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.store = repository.NewMemStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobs = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping attendance service...")

	if s.jobs != nil {
		_ = s.jobs.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}

	s.started = false
	s.logger.Info(ctx, "attendance service stopped")
}

// CreateMeeting persists a new meeting with the configured grace windows.
func (s *Service) CreateMeeting(ctx context.Context, p MeetingParams) (model.Meeting, error) {
	if !p.EndTime.After(p.StartTime) {
		return model.Meeting{}, fmt.Errorf("meeting end must be after start")
	}
	m := model.Meeting{
		ID:        uuid.NewString(),
		Title:     p.Title,
		CreatedBy: p.CreatedBy,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		PreGrace:  s.preGrace,
		PostGrace: s.postGrace,
		Location:  p.Location,
		HourCap:   p.HourCap,
		Term:      p.Term,
		Year:      p.Year,
		Status:    model.MeetingScheduled,
	}
	if err := s.store.PutMeeting(ctx, m); err != nil {
		return model.Meeting{}, err
	}
	s.logger.Info(ctx, "meeting created",
		logger.String("meeting", m.ID),
		logger.String("title", m.Title),
		logger.Time("start", m.StartTime),
	)
	return m, nil
}

// Meeting returns a meeting snapshot.
func (s *Service) Meeting(ctx context.Context, id string) (model.Meeting, error) {
	return s.store.Meeting(ctx, id)
}

// CloseMeeting transitions a meeting to closed and schedules the crediting
// sweep that finalizes its attendance records.
func (s *Service) CloseMeeting(ctx context.Context, meetingID string) (model.Meeting, error) {
	m, err := s.store.UpdateMeeting(ctx, meetingID, func(cur model.Meeting) (model.Meeting, error) {
		if cur.Status == model.MeetingClosed {
			return cur, attendance.ErrMeetingClosed
		}
		cur.Status = model.MeetingClosed
		return cur, nil
	})
	if err != nil {
		return model.Meeting{}, err
	}
	metrics.RecordMeetingClosed()

	job := jobqueue.Job{
		Kind:       jobqueue.JobCreditMeeting,
		MeetingID:  meetingID,
		ClosedAt:   s.now(),
		EnqueuedAt: s.now(),
	}
	if !s.jobs.Enqueue(ctx, job) {
		// Queue full or closed: credit inline rather than losing the sweep.
		s.logger.Warn(ctx, "job queue rejected crediting sweep, running inline",
			logger.String("meeting", meetingID),
		)
		if _, _, err := s.CreditMeeting(ctx, meetingID); err != nil {
			return m, err
		}
	}
	return m, nil
}

// CheckIn admits a member into a meeting.
func (s *Service) CheckIn(ctx context.Context, userID, meetingID string, at time.Time) (model.AttendanceRecord, error) {
	rec, err := s.store.UpdateRecord(ctx, userID, meetingID, func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
		// The meeting is read under the record's update lock so the
		// transition sees a close committed by a concurrent CloseMeeting.
		m, err := s.store.Meeting(ctx, meetingID)
		if err != nil {
			return cur, err
		}
		return attendance.Transition(cur, m, attendance.Event{Kind: attendance.EventCheckIn, At: at}, s.accrualPol)
	})
	metrics.RecordCheckIn(outcomeLabel(err))
	if err != nil {
		return rec, err
	}
	s.logger.Info(ctx, "checked in",
		logger.String("user", userID),
		logger.String("meeting", meetingID),
		logger.Time("at", at),
	)
	return rec, nil
}

// CheckOut records a member leaving a meeting.
func (s *Service) CheckOut(ctx context.Context, userID, meetingID string, at time.Time) (model.AttendanceRecord, error) {
	rec, err := s.store.UpdateRecord(ctx, userID, meetingID, func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
		m, err := s.store.Meeting(ctx, meetingID)
		if err != nil {
			return cur, err
		}
		return attendance.Transition(cur, m, attendance.Event{Kind: attendance.EventCheckOut, At: at}, s.accrualPol)
	})
	metrics.RecordCheckOut(outcomeLabel(err))
	if err != nil {
		return rec, err
	}
	s.logger.Info(ctx, "checked out",
		logger.String("user", userID),
		logger.String("meeting", meetingID),
		logger.Time("at", at),
	)
	return rec, nil
}

// AttendanceRecord returns the record for a (user, meeting).
func (s *Service) AttendanceRecord(ctx context.Context, userID, meetingID string) (model.AttendanceRecord, error) {
	return s.store.Record(ctx, userID, meetingID)
}

// MemberHours returns a user's credited hours bucketed by "year_term".
func (s *Service) MemberHours(ctx context.Context, userID string) (map[string]float64, error) {
	recs, err := s.store.RecordsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	hours := make(map[string]float64)
	for _, rec := range recs {
		if rec.State != model.AttendanceCredited {
			continue
		}
		key := fmt.Sprintf("%s_%d", rec.Year, rec.Term)
		hours[key] += rec.CreditedHours
	}
	return hours, nil
}

// AddManualCredit records an adjustment credit outside any scheduled
// meeting. The synthetic record keeps the adjustment in the same audit
// trail as earned hours.
func (s *Service) AddManualCredit(ctx context.Context, userID string, hours float64, term int, year, grantedBy string) (model.AttendanceRecord, error) {
	if hours <= 0 {
		return model.AttendanceRecord{}, fmt.Errorf("manual credit must be positive")
	}
	manualID := "manual-" + uuid.NewString()
	rec, err := s.store.UpdateRecord(ctx, userID, manualID, func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
		cur.State = model.AttendanceCredited
		cur.CreditedHours = hours
		cur.Term = term
		cur.Year = year
		return cur, nil
	})
	if err != nil {
		return rec, err
	}
	metrics.RecordHoursCredited(hours)
	s.logger.Info(ctx, "manual credit added",
		logger.String("user", userID),
		logger.Float64("hours", hours),
		logger.String("grantedBy", grantedBy),
	)
	return rec, nil
}

// SubmitReport accepts a scout's report and schedules the aggregate
// recompute for its (team, match). Returns true when the submission was a
// duplicate and absorbed idempotently at the transport edge.
func (s *Service) SubmitReport(ctx context.Context, r model.ScoutingReport) (bool, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = s.now()
	}

	if s.deduper.SeenAndRecord(ctx, r.ID) {
		metrics.RecordReportDuplicate()
		return true, nil
	}
	if err := s.store.AppendReport(ctx, r); err != nil {
		if errors.Is(err, repository.ErrExists) {
			metrics.RecordReportDuplicate()
			return true, nil
		}
		s.deduper.Unrecord(ctx, r.ID)
		return false, err
	}
	metrics.RecordReportAccepted()

	job := jobqueue.Job{
		Kind:       jobqueue.JobRecomputeAggregate,
		TeamID:     r.TeamID,
		MatchID:    r.MatchID,
		EnqueuedAt: s.now(),
	}
	if !s.jobs.Enqueue(ctx, job) {
		// The report is already persisted; recompute inline so the
		// aggregate never lags a committed report indefinitely.
		s.logger.Warn(ctx, "job queue rejected recompute, running inline",
			logger.String("team", r.TeamID),
			logger.String("match", r.MatchID),
		)
		if _, err := s.RecomputeAggregate(ctx, r.TeamID, r.MatchID); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Aggregate returns the current merged view for a (team, match).
func (s *Service) Aggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error) {
	return s.store.Aggregate(ctx, teamID, matchID)
}

// SubmitPitEntry reconciles a pit form against the canonical entry.
func (s *Service) SubmitPitEntry(ctx context.Context, sub model.PitSubmission) (model.PitScoutingEntry, []model.FieldChange, error) {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now()
	}
	var delta []model.FieldChange
	entry, err := s.store.UpdatePitEntry(ctx, sub.TeamID, sub.Competition, func(cur *model.PitScoutingEntry) (model.PitScoutingEntry, error) {
		next, d, err := pitscouting.Reconcile(cur, sub)
		if err != nil {
			return model.PitScoutingEntry{}, err
		}
		delta = d
		return next, nil
	})
	if err != nil {
		if errors.Is(err, pitscouting.ErrEntryConflict) {
			metrics.RecordPitConflict()
		}
		return entry, nil, err
	}
	metrics.RecordPitUpdate()
	s.logger.Info(ctx, "pit entry reconciled",
		logger.String("team", sub.TeamID),
		logger.String("competition", sub.Competition),
		logger.Int("changes", len(delta)),
	)
	return entry, delta, nil
}

// PitEntry returns the canonical entry for a (team, competition).
func (s *Service) PitEntry(ctx context.Context, teamID, competition string) (model.PitScoutingEntry, error) {
	return s.store.PitEntry(ctx, teamID, competition)
}

// Stats reports current service state.
func (s *Service) Stats(ctx context.Context) Stats {
	return Stats{
		Store:      s.store.Counts(ctx),
		QueuedJobs: s.jobs.Len(ctx),
		DedupeSize: s.deduper.Size(),
	}
}

// RecomputeAggregate folds all current reports for a (team, match) into a
// fresh aggregate. Always a full fold, never an incremental patch.
func (s *Service) RecomputeAggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error) {
	agg, err := s.store.RecomputeAggregate(ctx, teamID, matchID, func(reports []model.ScoutingReport) (model.ScoutingAggregate, error) {
		return scouting.Merge(reports, s.mergeCfg, s.now())
	})
	if err != nil {
		return model.ScoutingAggregate{}, err
	}
	metrics.RecordAggregateRecompute()
	if agg.Disputed {
		metrics.RecordDisputedAggregate()
		s.logger.Warn(ctx, "aggregate disputed",
			logger.String("team", teamID),
			logger.String("match", matchID),
			logger.Int("reports", agg.ReportCount),
		)
	}
	return agg, nil
}

// CreditMeeting finalizes every attendance record of a closed meeting:
// completed check-in/out pairs are credited, everything else is voided.
func (s *Service) CreditMeeting(ctx context.Context, meetingID string) (credited, voided int, err error) {
	m, err := s.store.Meeting(ctx, meetingID)
	if err != nil {
		return 0, 0, err
	}
	if m.Status != model.MeetingClosed {
		return 0, 0, fmt.Errorf("meeting %s is not closed", meetingID)
	}

	recs, err := s.store.RecordsByMeeting(ctx, meetingID)
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range recs {
		if rec.State.Terminal() {
			continue
		}
		updated, terr := s.store.UpdateRecord(ctx, rec.UserID, meetingID, func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
			return attendance.Transition(cur, m, attendance.Event{Kind: attendance.EventClose, At: s.now()}, s.accrualPol)
		})
		if terr != nil {
			if errors.Is(terr, attendance.ErrAlreadyCredited) {
				continue
			}
			return credited, voided, terr
		}
		switch updated.State {
		case model.AttendanceCredited:
			credited++
			metrics.RecordHoursCredited(updated.CreditedHours)
			if updated.CreditedHours == 0 {
				// Duration was below the rounding increment: a distinct
				// outcome from a normal credit.
				metrics.RecordZeroCredit()
				s.logger.Info(ctx, "zero-credit attendance",
					logger.String("user", updated.UserID),
					logger.String("meeting", meetingID),
				)
			}
		case model.AttendanceVoid:
			voided++
		}
	}
	if voided > 0 {
		metrics.RecordVoided(voided)
	}
	return credited, voided, nil
}

// outcomeLabel maps a transition error to its metrics label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, attendance.ErrOutOfWindow):
		return "out_of_window"
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, attendance.ErrInvalidOrdering):
		return "invalid_ordering"
	case errors.Is(err, attendance.ErrAlreadyCredited):
		return "already_credited"
	case errors.Is(err, attendance.ErrNotCheckedIn):
		return "not_checked_in"
	case errors.Is(err, attendance.ErrMeetingClosed):
		return "meeting_closed"
	default:
		return "error"
	}
}
