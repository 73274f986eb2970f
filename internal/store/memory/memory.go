// Package memory is an in-process implementation of the store interfaces.
// It mirrors the PostgreSQL semantics closely enough for tests and for
// running the controller without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"productory/internal/store"

	"github.com/google/uuid"
)

type jobRecord struct {
	job store.Job
	seq int64
}

type userRecord struct {
	user    store.User
	keyHash string
}

// Store keeps jobs, logs and users in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*jobRecord
	logs    map[uuid.UUID][]store.JobLogEntry
	users   map[string]userRecord
	seq     int64
	nextLog int64

	now func() time.Time
}

// New returns an empty store using the wall clock.
func New() *Store {
	return &Store{
		jobs:  make(map[uuid.UUID]*jobRecord),
		logs:  make(map[uuid.UUID][]store.JobLogEntry),
		users: make(map[string]userRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests that need deterministic timestamps.
func (m *Store) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Store) CreateUser(_ context.Context, user *store.User, hashedKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.user.ID == user.ID || u.user.Email == user.Email {
			return fmt.Errorf("failed to create user %s: %w", user.Email, store.ErrUserExists)
		}
	}
	m.users[hashedKey] = userRecord{user: *user, keyHash: hashedKey}
	return nil
}

func (m *Store) GetUserByAPIKeyHash(_ context.Context, hash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.users[hash]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	u := rec.user
	return &u, nil
}

func (m *Store) CreateJob(_ context.Context, job *store.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("failed to insert job %s: duplicate id", job.ID)
	}
	m.seq++
	m.jobs[job.ID] = &jobRecord{job: copyJob(*job), seq: m.seq}
	return nil
}

func (m *Store) GetJob(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	j := copyJob(rec.job)
	return &j, nil
}

func (m *Store) UpdateJobStatus(_ context.Context, id uuid.UUID, update store.StatusUpdate) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	if !store.CanTransition(rec.job.Status, update.Status) {
		return nil, store.TransitionError(id, rec.job.Status, update.Status)
	}
	m.applyStatus(&rec.job, update)
	j := copyJob(rec.job)
	return &j, nil
}

// applyStatus sets started_at on the first entry into processing and completed_at
// on the first entry into a terminal status.
func (m *Store) applyStatus(job *store.Job, update store.StatusUpdate) {
	now := m.now()
	job.Status = update.Status
	if update.Status == store.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if update.Status.Terminal() && job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	// Results belong to terminal jobs only.
	if update.Result != nil && update.Status.Terminal() {
		job.Result = update.Result
	}
	if update.ErrorMessage != nil {
		msg := *update.ErrorMessage
		job.ErrorMessage = &msg
	}
	job.UpdatedAt = now
}

func (m *Store) IncrementJobAttempts(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	rec.job.Attempts++
	rec.job.UpdatedAt = m.now()
	j := copyJob(rec.job)
	return &j, nil
}

func (m *Store) ListUserJobs(_ context.Context, userID string, status *store.JobStatus) ([]store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]*jobRecord, 0)
	for _, rec := range m.jobs {
		if rec.job.UserID != userID {
			continue
		}
		if status != nil && rec.job.Status != *status {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, k int) bool {
		a, b := recs[i], recs[k]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]store.Job, 0, len(recs))
	for _, rec := range recs {
		out = append(out, copyJob(rec.job))
	}
	return out, nil
}

func (m *Store) AddJobLog(_ context.Context, entry *store.JobLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[entry.JobID]; !ok {
		return fmt.Errorf("job %s: %w", entry.JobID, store.ErrJobNotFound)
	}
	m.nextLog++
	entry.ID = m.nextLog
	entry.CreatedAt = m.now()
	m.logs[entry.JobID] = append(m.logs[entry.JobID], *entry)
	return nil
}

func (m *Store) GetJobLogs(_ context.Context, jobID uuid.UUID) ([]store.JobLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.JobLogEntry, len(m.logs[jobID]))
	copy(out, m.logs[jobID])
	return out, nil
}

func (m *Store) GetNextPendingJob(_ context.Context) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.nextPending()
	if rec == nil {
		return nil, nil
	}
	j := copyJob(rec.job)
	return &j, nil
}

func (m *Store) ClaimNextJob(_ context.Context) (*store.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.nextPending()
	if rec == nil {
		return nil, nil
	}
	m.applyStatus(&rec.job, store.StatusUpdate{Status: store.JobStatusProcessing})
	j := copyJob(rec.job)
	return &j, nil
}

// nextPending picks by priority descending, then creation time ascending.
// Insertion order breaks ties between identical timestamps.
func (m *Store) nextPending() *jobRecord {
	var best *jobRecord
	for _, rec := range m.jobs {
		if rec.job.Status != store.JobStatusPending {
			continue
		}
		if best == nil || before(rec, best) {
			best = rec
		}
	}
	return best
}

func before(a, b *jobRecord) bool {
	if a.job.Priority != b.job.Priority {
		return a.job.Priority > b.job.Priority
	}
	if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
		return a.job.CreatedAt.Before(b.job.CreatedAt)
	}
	return a.seq < b.seq
}

func (m *Store) RequeueRetryingJobs(_ context.Context, backoff time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-backoff)
	var n int64
	for _, rec := range m.jobs {
		if rec.job.Status != store.JobStatusRetrying || rec.job.UpdatedAt.After(cutoff) {
			continue
		}
		m.applyStatus(&rec.job, store.StatusUpdate{Status: store.JobStatusPending})
		n++
	}
	return n, nil
}

func (m *Store) RecoverStaleJobs(_ context.Context, timeout time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-timeout)
	msg := store.StaleJobMessage
	var n int64
	for _, rec := range m.jobs {
		if rec.job.Status != store.JobStatusProcessing || rec.job.UpdatedAt.After(cutoff) {
			continue
		}
		next := store.JobStatusRetrying
		if rec.job.Attempts >= rec.job.MaxAttempts {
			next = store.JobStatusFailed
		}
		m.applyStatus(&rec.job, store.StatusUpdate{Status: next, ErrorMessage: &msg})
		n++
	}
	return n, nil
}

func (m *Store) CountByStatus(_ context.Context) (map[store.JobStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[store.JobStatus]int64, len(store.AllStatuses))
	for _, st := range store.AllStatuses {
		counts[st] = 0
	}
	for _, rec := range m.jobs {
		counts[rec.job.Status]++
	}
	return counts, nil
}

// copyJob detaches pointer fields so callers cannot mutate stored state.
func copyJob(j store.Job) store.Job {
	if j.StartedAt != nil {
		t := *j.StartedAt
		j.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		j.CompletedAt = &t
	}
	if j.ErrorMessage != nil {
		s := *j.ErrorMessage
		j.ErrorMessage = &s
	}
	return j
}
