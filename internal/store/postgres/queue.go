package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"productory/internal/store"
)

// GetNextPendingJob peeks at the job a worker would claim next. It takes no lock;
// workers should use ClaimNextJob.
func (s *Store) GetNextPendingJob(ctx context.Context) (*store.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM job_queue
		WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending job query failed: %w", err)
	}
	return job, nil
}

// ClaimNextJob claims the next pending job using SELECT ... FOR UPDATE SKIP LOCKED inside
// a single UPDATE, so concurrent workers never receive the same row.
func (s *Store) ClaimNextJob(ctx context.Context) (*store.Job, error) {
	query := `
		UPDATE job_queue
		SET status = 'processing',
			started_at = COALESCE(started_at, NOW()),
			updated_at = NOW()
		WHERE id = (
			SELECT id
			FROM job_queue
			WHERE status = 'pending'
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim query failed: %w", err)
	}
	return job, nil
}

// RequeueRetryingJobs returns retrying jobs to pending once their backoff has elapsed.
func (s *Store) RequeueRetryingJobs(ctx context.Context, backoff time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_queue
		SET status = 'pending', updated_at = NOW()
		WHERE status = 'retrying' AND updated_at <= NOW() - ($1 * INTERVAL '1 second')
	`, backoff.Seconds())
	if err != nil {
		return 0, fmt.Errorf("requeue retrying jobs failed: %w", err)
	}
	return res.RowsAffected()
}

// RecoverStaleJobs reclaims processing jobs whose worker stopped updating them. Jobs with
// attempts left go to retrying; the rest fail.
func (s *Store) RecoverStaleJobs(ctx context.Context, timeout time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_queue
		SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'retrying' END,
			completed_at = CASE WHEN attempts >= max_attempts THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
			error_message = $2,
			updated_at = NOW()
		WHERE status = 'processing' AND updated_at <= NOW() - ($1 * INTERVAL '1 second')
	`, timeout.Seconds(), store.StaleJobMessage)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs failed: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus tracks the number of jobs per status.
func (s *Store) CountByStatus(ctx context.Context) (map[store.JobStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM job_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[store.JobStatus]int64, len(store.AllStatuses))
	for _, st := range store.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			status store.JobStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
