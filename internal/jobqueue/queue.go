// Package jobqueue is the accessor API that controllers and workers use to create,
// advance and inspect asynchronous jobs. It validates input, fills in defaults and
// normalizes "absent" results; persistence is delegated to a store.JobStore.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"productory/internal/store"

	"github.com/google/uuid"
)

// ErrInvalidJob is returned when a job cannot be created from the given input.
var ErrInvalidJob = errors.New("invalid job")

// NewJob describes a job to enqueue.
type NewJob struct {
	JobType     store.JobType
	Payload     store.Payload
	UserID      string
	Priority    int
	MaxAttempts int // 0 means store.DefaultMaxAttempts
}

// Queue exposes the per-user job operations.
type Queue struct {
	jobs   store.JobStore
	logger *slog.Logger
	now    func() time.Time
}

// New wires a Queue over jobs. logger receives job log append failures; nil discards them.
func New(jobs store.JobStore, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Queue{
		jobs:   jobs,
		logger: logger.With("component", "jobqueue"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob enqueues a pending job with zero attempts. Persistence errors are returned as is.
func (q *Queue) CreateJob(ctx context.Context, in NewJob) (*store.Job, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidJob)
	}
	if !in.JobType.Valid() {
		return nil, fmt.Errorf("%w: job type %q: %w", ErrInvalidJob, in.JobType, store.ErrUnknownJobType)
	}
	if err := store.ValidatePayload(in.JobType, in.Payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if in.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: max attempts must not be negative", ErrInvalidJob)
	}

	maxAttempts := in.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = store.DefaultMaxAttempts
	}

	now := q.now()
	job := &store.Job{
		ID:          uuid.New(),
		UserID:      in.UserID,
		JobType:     in.JobType,
		Status:      store.JobStatusPending,
		Priority:    in.Priority,
		Payload:     in.Payload,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := q.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns nil, nil when the job does not exist.
func (q *Queue) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	job, err := q.jobs.GetJob(ctx, id)
	if errors.Is(err, store.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJobStatus is the only sanctioned way to move a job between states.
// result and errorMessage are optional.
func (q *Queue) UpdateJobStatus(ctx context.Context, id uuid.UUID, status store.JobStatus, result store.Result, errorMessage *string) (*store.Job, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, store.ErrInvalidTransition)
	}
	return q.jobs.UpdateJobStatus(ctx, id, store.StatusUpdate{
		Status:       status,
		Result:       result,
		ErrorMessage: errorMessage,
	})
}

// IncrementJobAttempts bumps the attempt counter by one.
func (q *Queue) IncrementJobAttempts(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	return q.jobs.IncrementJobAttempts(ctx, id)
}

// AddJobLog appends a log line to a job. Logging is best effort: a failed write is
// reported to the queue's logger and never returned. The result reports whether
// the entry was stored. An empty level means info.
func (q *Queue) AddJobLog(ctx context.Context, jobID uuid.UUID, message string, level store.LogLevel) bool {
	if level == "" {
		level = store.LogLevelInfo
	}
	if !level.Valid() {
		q.logger.WarnContext(ctx, "dropping job log with unknown level",
			"job_id", jobID, "level", level, "message", message)
		return false
	}

	entry := &store.JobLogEntry{JobID: jobID, Message: message, Level: level}
	if err := q.jobs.AddJobLog(ctx, entry); err != nil {
		q.logger.ErrorContext(ctx, "failed to add job log",
			"job_id", jobID, "level", level, "message", message, "error", err)
		return false
	}
	return true
}

// GetUserJobs lists a user's jobs newest first. A nil status returns every job.
func (q *Queue) GetUserJobs(ctx context.Context, userID string, status *store.JobStatus) ([]store.Job, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidJob, *status)
	}
	return q.jobs.ListUserJobs(ctx, userID, status)
}

// GetJobLogs returns a job's log lines in creation order.
func (q *Queue) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]store.JobLogEntry, error) {
	return q.jobs.GetJobLogs(ctx, jobID)
}
