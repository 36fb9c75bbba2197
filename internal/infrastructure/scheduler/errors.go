package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobKind is returned by the executor for kinds it does not handle
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidDailyAt is returned when the daily time is not HH:MM
	ErrInvalidDailyAt = errors.New("invalid daily time, expected HH:MM")
)
