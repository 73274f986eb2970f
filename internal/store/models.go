// Package store contains the domain types and persistence interfaces for the job queue.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrJobNotFound is returned when a job row does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a status change violates the state machine.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrUserNotFound is returned when no user matches an API key.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when a user with the same email or key already exists.
	ErrUserExists = errors.New("user already exists")
)

// StaleJobMessage is recorded on processing jobs reclaimed after their worker went silent.
const StaleJobMessage = "attempt abandoned: worker did not finish before the processing timeout"

// DefaultMaxAttempts applies when a job is created without an explicit ceiling.
const DefaultMaxAttempts = 3

// User owns jobs and uploaded files.
type User struct {
	ID             string
	Email          string
	RateLimit      int // requests per second, 0 = unlimited
	RateLimitBurst int
	CreatedAt      time.Time
}

// Job is a unit of asynchronous work.
type Job struct {
	ID           uuid.UUID
	UserID       string
	JobType      JobType
	Status       JobStatus
	Priority     int
	Payload      Payload
	Result       Result // set only in terminal states
	ErrorMessage *string
	Attempts     int
	MaxAttempts  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// StatusUpdate is the input to an UpdateJobStatus call. Nil fields leave the stored value untouched.
type StatusUpdate struct {
	Status       JobStatus
	Result       Result
	ErrorMessage *string
}

// JobLogEntry is an append-only audit line attached to a job.
type JobLogEntry struct {
	ID        int64
	JobID     uuid.UUID
	Message   string
	Level     LogLevel
	CreatedAt time.Time
}

// LogLevel is the severity of a JobLogEntry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Valid reports whether l is a known level.
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	}
	return false
}

// JobStatus represents the state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusRetrying,
	JobStatusCompleted,
	JobStatusFailed,
}

// transitions lists the statuses each status may move to.
// completed and failed are terminal.
var transitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusFailed},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusRetrying},
	JobStatusRetrying:   {JobStatusPending, JobStatusFailed},
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether a job in status from may move to status to.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status that may transition into to.
func SourcesFor(to JobStatus) []JobStatus {
	var from []JobStatus
	for _, s := range AllStatuses {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// TransitionError wraps ErrInvalidTransition with the offending states.
func TransitionError(id uuid.UUID, from, to JobStatus) error {
	return fmt.Errorf("job %s: %s -> %s: %w", id, from, to, ErrInvalidTransition)
}
