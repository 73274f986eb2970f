package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// UserStore resolves API keys to users.
type UserStore interface {
	// CreateUser inserts a new user with the hash of its API key.
	CreateUser(ctx context.Context, user *User, hashedKey string) error

	// GetUserByAPIKeyHash returns ErrUserNotFound when no user matches.
	GetUserByAPIKeyHash(ctx context.Context, hash string) (*User, error)
}

// JobStore persists jobs and their logs. Every method except those on WorkerQueue
// is expected to be called on behalf of a single user.
type JobStore interface {
	// CreateJob inserts job as given. The caller sets ID, status and timestamps.
	CreateJob(ctx context.Context, job *Job) error

	// GetJob returns ErrJobNotFound when the row is absent.
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)

	// UpdateJobStatus applies update and maintains started_at/completed_at.
	// Returns ErrInvalidTransition when the current status cannot move to update.Status.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*Job, error)

	// IncrementJobAttempts atomically adds one to attempts.
	IncrementJobAttempts(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListUserJobs returns the user's jobs newest first, optionally filtered by status.
	ListUserJobs(ctx context.Context, userID string, status *JobStatus) ([]Job, error)

	// AddJobLog appends a log entry.
	AddJobLog(ctx context.Context, entry *JobLogEntry) error

	// GetJobLogs returns a job's logs in creation order.
	GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]JobLogEntry, error)
}

// WorkerQueue holds the operations that scan across all users.
// Only the worker process, running with service credentials, should hold one.
type WorkerQueue interface {
	// GetNextPendingJob returns the pending job with the highest priority, oldest first
	// within a priority, without claiming it. Returns nil when none is pending.
	GetNextPendingJob(ctx context.Context) (*Job, error)

	// ClaimNextJob selects the same job as GetNextPendingJob and moves it to processing
	// in a single statement. Returns nil when none is pending.
	ClaimNextJob(ctx context.Context) (*Job, error)

	// RequeueRetryingJobs moves retrying jobs untouched for at least backoff back to pending.
	RequeueRetryingJobs(ctx context.Context, backoff time.Duration) (int64, error)

	// RecoverStaleJobs moves processing jobs untouched for at least timeout to retrying,
	// or to failed when no attempts remain, recording StaleJobMessage.
	RecoverStaleJobs(ctx context.Context, timeout time.Duration) (int64, error)

	// CountByStatus returns the number of jobs in each status.
	CountByStatus(ctx context.Context) (map[JobStatus]int64, error)
}
