// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import (
	"encoding/json"
	"time"
)

// CreateUserRequest is the request body for creating a new user.
type CreateUserRequest struct {
	Email string `json:"email"`
}

// CreateUserResponse is the response body after creating a user.
// The API key is only ever returned here.
type CreateUserResponse struct {
	ID     string `json:"user_id"`
	Email  string `json:"email"`
	ApiKey string `json:"api_key"`
}

// CreateJobRequest is the request body for enqueuing a job.
// Payload carries the job-type specific fields, e.g.
// {"fileId": "...", "transcriptionId": "...", "options": {...}}.
type CreateJobRequest struct {
	JobType string          `json:"job_type"`
	Payload json.RawMessage `json:"payload"`
	// Priority must be between 0 and 100
	Priority    int `json:"priority,omitempty"`
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// CreateJobResponse is the response body after submitting a job.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse represents a job in API responses.
type JobResponse struct {
	ID           string          `json:"id"`
	JobType      string          `json:"job_type"`
	Status       string          `json:"status"`
	Priority     int             `json:"priority"`
	Payload      json.RawMessage `json:"payload"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// ListJobsResponse is the response body for GET /jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// LogEntry represents a single job log line in the response.
type LogEntry struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// GetLogsResponse is the response body for fetching logs.
type GetLogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

// FileResponse describes an uploaded audio object.
type FileResponse struct {
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	Size              int64     `json:"size"`
	ContentType       string    `json:"content_type,omitempty"`
	TranscriptionPath string    `json:"transcription_path"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// ListFilesResponse is the response body for GET /files.
type ListFilesResponse struct {
	Files []FileResponse `json:"files"`
}

// FileURLsResponse is the response body for GET /files/{name}/urls.
type FileURLsResponse struct {
	Path              string `json:"path"`
	StoragePath       string `json:"storage_path"`
	PublicURL         string `json:"public_url"`
	DownloadURL       string `json:"download_url"`
	PresignedURL      string `json:"presigned_url,omitempty"`
	TranscriptionPath string `json:"transcription_path"`
}

// Priority levels for job execution
const (
	PriorityLow      = 0
	PriorityNormal   = 50
	PriorityHigh     = 75
	PriorityCritical = 100

	PriorityMin = 0
	PriorityMax = 100
)
