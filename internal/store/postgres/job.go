package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"productory/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const jobColumns = `id, user_id, job_type, status, priority, payload, result, error_message,
	attempts, max_attempts, created_at, updated_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*store.Job, error) {
	var (
		job     store.Job
		payload []byte
		result  []byte
	)

	err := row.Scan(
		&job.ID, &job.UserID, &job.JobType, &job.Status, &job.Priority,
		&payload, &result, &job.ErrorMessage,
		&job.Attempts, &job.MaxAttempts,
		&job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if job.Payload, err = store.DecodePayload(payload); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	if job.Result, err = store.DecodeResult(result); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}

	return &job, nil
}

// CreateJob inserts a new job row. The payload is stored as JSONB with its type discriminant.
func (s *Store) CreateJob(ctx context.Context, job *store.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `
		INSERT INTO job_queue (id, user_id, job_type, status, priority, payload, attempts, max_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.JobType,
		job.Status,
		job.Priority,
		string(payload),
		job.Attempts,
		job.MaxAttempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	query := "SELECT " + jobColumns + " FROM job_queue WHERE id = $1"

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJobStatus moves a job to a new status in one conditional statement.
// started_at is only ever set on the first entry into processing and completed_at on the
// first entry into a terminal status; COALESCE keeps earlier values.
func (s *Store) UpdateJobStatus(ctx context.Context, id uuid.UUID, update store.StatusUpdate) (*store.Job, error) {
	// Results belong to terminal jobs only.
	var result interface{}
	if update.Result != nil && update.Status.Terminal() {
		raw, err := json.Marshal(update.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		result = string(raw)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	job, err := updateStatus(ctx, tx, id, update, result)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return job, nil
}

func updateStatus(ctx context.Context, tx store.DBTransaction, id uuid.UUID, update store.StatusUpdate, result interface{}) (*store.Job, error) {
	sources := make([]string, 0, 3)
	for _, st := range store.SourcesFor(update.Status) {
		sources = append(sources, string(st))
	}

	query := `
		UPDATE job_queue
		SET status = $2::text,
			started_at = CASE WHEN $2::text = 'processing' THEN COALESCE(started_at, NOW()) ELSE started_at END,
			completed_at = CASE WHEN $2::text IN ('completed', 'failed') THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
			result = COALESCE($3::jsonb, result),
			error_message = COALESCE($4, error_message),
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
		RETURNING ` + jobColumns

	job, err := scanJob(tx.QueryRowContext(ctx, query, id, update.Status, result, update.ErrorMessage, pq.Array(sources)))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update job %s: %w", id, err)
	}

	// Nothing matched: either the job is gone or its current status forbids the move.
	var current store.JobStatus
	err = tx.QueryRowContext(ctx, "SELECT status FROM job_queue WHERE id = $1", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}
	return nil, store.TransitionError(id, current, update.Status)
}

func (s *Store) IncrementJobAttempts(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	query := `
		UPDATE job_queue
		SET attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, store.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment attempts for job %s: %w", id, err)
	}
	return job, nil
}

func (s *Store) ListUserJobs(ctx context.Context, userID string, status *store.JobStatus) ([]store.Job, error) {
	args := []interface{}{userID}
	where := "WHERE user_id = $1"
	if status != nil {
		where += " AND status = $2"
		args = append(args, *status)
	}

	query := "SELECT " + jobColumns + " FROM job_queue " + where + " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []store.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
