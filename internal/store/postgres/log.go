package postgres

import (
	"context"

	"productory/internal/store"

	"github.com/google/uuid"
)

func (s *Store) AddJobLog(ctx context.Context, entry *store.JobLogEntry) error {
	query := `INSERT INTO job_logs (job_id, message, level) VALUES ($1, $2, $3) RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, entry.JobID, entry.Message, entry.Level).Scan(&entry.ID, &entry.CreatedAt)
}

func (s *Store) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]store.JobLogEntry, error) {
	query := `
		SELECT id, job_id, message, level, created_at
		FROM job_logs
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []store.JobLogEntry{}
	for rows.Next() {
		var entry store.JobLogEntry
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Message, &entry.Level, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
