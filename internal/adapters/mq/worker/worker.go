// Package worker runs asynchronous reconciliation jobs: aggregate re-folds
// after report submissions and crediting sweeps after meeting close.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/adapters/mq/queue"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/pkg/logger"
	"github.com/frc-emotion/nautilus-backend/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Executor performs the actual reconciliation work for a job.
type Executor interface {
	// RecomputeAggregate re-folds all current reports for a (team, match).
	RecomputeAggregate(ctx context.Context, teamID, matchID string) (model.ScoutingAggregate, error)

	// CreditMeeting finalizes every attendance record of a closed meeting.
	// Returns the number of credited and voided records.
	CreditMeeting(ctx context.Context, meetingID string) (credited, voided int, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker struct {
	queue    Queue
	executor Executor
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a new worker with configuration options.
func NewWorker(q Queue, ex Executor, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		executor: ex,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				metrics.RecordWorkerError()
				w.logger.Error(ctx, "job failed",
					logger.String("kind", job.Kind.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	switch job.Kind {
	case queue.JobRecomputeAggregate:
		agg, err := w.executor.RecomputeAggregate(ctx, job.TeamID, job.MatchID)
		if err != nil {
			return fmt.Errorf("recompute %s/%s: %w", job.TeamID, job.MatchID, err)
		}
		w.logger.Debug(ctx, "aggregate recomputed",
			logger.String("team", job.TeamID),
			logger.String("match", job.MatchID),
			logger.Int("reports", agg.ReportCount),
			logger.Bool("disputed", agg.Disputed),
		)
		return nil
	case queue.JobCreditMeeting:
		credited, voided, err := w.executor.CreditMeeting(ctx, job.MeetingID)
		if err != nil {
			return fmt.Errorf("credit meeting %s: %w", job.MeetingID, err)
		}
		w.logger.Info(ctx, "meeting credited",
			logger.String("meeting", job.MeetingID),
			logger.Int("credited", credited),
			logger.Int("voided", voided),
		)
		return nil
	default:
		return fmt.Errorf("unknown job kind %d", job.Kind)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool of workerCount workers.
func NewPool(workerCount int, q Queue, ex Executor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * 2
	}
	p := &Pool{
		workers:  make([]*Worker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewWorker(q, ex, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, bounding the wait per worker.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		select {
		case <-w.shutdown:
			// already signaled
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire pool: the queue stops accepting
// work, then workers drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
