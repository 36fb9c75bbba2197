// Package scheduler runs the daily bookkeeping jobs for every tenant:
// recurring transaction execution, the overdue invoice sweep and the bank sync.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind selects what a job does for its tenant
type JobKind string

const (
	JobKindRecurring JobKind = "RECURRING_EXECUTE"
	JobKindOverdue   JobKind = "INVOICE_OVERDUE"
	JobKindBankSync  JobKind = "BANK_SYNC"
)

// DailyJobKinds are submitted for every tenant on each daily run
func DailyJobKinds() []JobKind {
	return []JobKind{JobKindRecurring, JobKindOverdue, JobKindBankSync}
}

// Job is one unit of work for one tenant
type Job struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Kind        JobKind
	AsOf        time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a pending job
func NewJob(tenantID uuid.UUID, kind JobKind, asOf time.Time) *Job {
	return &Job{
		ID:       uuid.New(),
		TenantID: tenantID,
		Kind:     kind,
		AsOf:     asOf,
		Status:   JobStatusPending,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// JobExecutor executes jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Scheduler is a fixed worker pool draining a job queue
type Scheduler struct {
	workers    int
	jobTimeout time.Duration
	executor   JobExecutor
	logger     *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inflight  sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg config.SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		workers:    workers,
		jobTimeout: timeout,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *Job, 256),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Job scheduler started",
		zap.Int("workers", s.workers),
		zap.Duration("job_timeout", s.jobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	s.inflight.Add(1)
	select {
	case s.jobs <- job:
		return nil
	default:
		s.inflight.Done()
		return ErrJobQueueFull
	}
}

// Wait blocks until every submitted job has finished
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for job := range s.jobs {
		if ctx.Err() != nil {
			job.Fail(ctx.Err().Error())
			s.inflight.Done()
			continue
		}
		s.processJob(ctx, job, workerID)
		s.inflight.Done()
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()

	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	if err := s.executor.Execute(jobCtx, job); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)
		return
	}

	job.Complete()
	s.logger.Debug("Job completed",
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("kind", string(job.Kind)),
	)
}
