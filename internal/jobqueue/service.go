package jobqueue

import (
	"context"
	"log/slog"
	"time"

	"productory/internal/store"
)

// ServiceQueue adds the cross-user operations only the worker may perform.
type ServiceQueue struct {
	*Queue
	workers store.WorkerQueue
}

// NewService wires a ServiceQueue. jobs and workers are usually the same store.
func NewService(jobs store.JobStore, workers store.WorkerQueue, logger *slog.Logger) *ServiceQueue {
	return &ServiceQueue{Queue: New(jobs, logger), workers: workers}
}

// GetNextPendingJob returns the job a worker would claim next without claiming it,
// or nil when nothing is pending.
func (q *ServiceQueue) GetNextPendingJob(ctx context.Context) (*store.Job, error) {
	return q.workers.GetNextPendingJob(ctx)
}

// ClaimNextJob atomically moves the next pending job to processing and returns it,
// or nil when nothing is pending.
func (q *ServiceQueue) ClaimNextJob(ctx context.Context) (*store.Job, error) {
	return q.workers.ClaimNextJob(ctx)
}

// RequeueRetryingJobs returns retrying jobs idle for at least backoff to pending.
func (q *ServiceQueue) RequeueRetryingJobs(ctx context.Context, backoff time.Duration) (int64, error) {
	return q.workers.RequeueRetryingJobs(ctx, backoff)
}

// RecoverStaleJobs reclaims processing jobs idle for at least timeout.
func (q *ServiceQueue) RecoverStaleJobs(ctx context.Context, timeout time.Duration) (int64, error) {
	return q.workers.RecoverStaleJobs(ctx, timeout)
}

func (q *ServiceQueue) CountByStatus(ctx context.Context) (map[store.JobStatus]int64, error) {
	return q.workers.CountByStatus(ctx)
}
