package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"productory/internal/store"
	"productory/pkg/api"

	"github.com/google/uuid"
)

func TestCreateJob(t *testing.T) {
	validBody := `{"job_type":"transcription","priority":75,"payload":{"fileId":"meeting.mp3","transcriptionId":"tr-1","options":{"language":"en"}}}`

	tests := []struct {
		name           string
		body           string
		noUser         bool
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			body:           validBody,
			expectedStatus: http.StatusCreated,
			expectedInBody: `"status":"pending"`,
		},
		{
			name:           "Summary Job",
			body:           `{"job_type":"ai_summary","payload":{"fileId":"a.mp3","transcriptionId":"tr-1","options":{"style":"bullets"}}}`,
			expectedStatus: http.StatusCreated,
			expectedInBody: "job_id",
		},
		{
			name:           "Invalid JSON",
			body:           `{invalid-json}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid request body",
		},
		{
			name:           "Missing Required Fields",
			body:           `{"job_type": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "job_type and payload are required",
		},
		{
			name:           "Unknown Job Type",
			body:           `{"job_type":"translation","payload":{"fileId":"a"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "unknown job type",
		},
		{
			name:           "Payload Missing Identifiers",
			body:           `{"job_type":"transcription","payload":{"fileId":"a.mp3"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "transcriptionId",
		},
		{
			name:           "Priority Out Of Range",
			body:           `{"job_type":"transcription","priority":101,"payload":{"fileId":"a","transcriptionId":"b"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Priority",
		},
		{
			name:           "Negative Max Attempts",
			body:           `{"job_type":"transcription","max_attempts":-1,"payload":{"fileId":"a","transcriptionId":"b"}}`,
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "max attempts",
		},
		{
			name:           "Unauthenticated",
			body:           validBody,
			noUser:         true,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "Create Job Failure",
			body: validBody,
			mockSetup: func(m *mockStore) {
				m.createJobErr = errors.New("insert failed")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to create job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, HandlerConfig{})
			if tt.mockSetup != nil {
				tt.mockSetup(env.store)
			}

			req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewBufferString(tt.body))
			if !tt.noUser {
				req = asUser(req, testUserID)
			}

			rr := httptest.NewRecorder()
			env.h.CreateJob(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestCreateJob_PersistsCallerAndDefaults(t *testing.T) {
	env := newTestEnv(t, HandlerConfig{})

	body := `{"job_type":"transcription","priority":75,"payload":{"fileId":"meeting.mp3","transcriptionId":"tr-1"}}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body)), testUserID)
	rr := httptest.NewRecorder()
	env.h.CreateJob(rr, req)

	var resp api.CreateJobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	job, err := env.store.GetJob(context.Background(), uuid.MustParse(resp.JobID))
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.UserID != testUserID || job.Priority != 75 || job.MaxAttempts != store.DefaultMaxAttempts {
		t.Errorf("unexpected job %+v", job)
	}
	p, ok := job.Payload.(store.TranscriptionPayload)
	if !ok || p.FileID != "meeting.mp3" {
		t.Errorf("unexpected payload %#v", job.Payload)
	}
}

func TestGetJob(t *testing.T) {
	env := newTestEnv(t, HandlerConfig{})
	mine := env.seedJob(t, testUserID)
	theirs := env.seedJob(t, "someone-else")

	tests := []struct {
		name           string
		jobIDParam     string
		mockSetup      func(*mockStore)
		expectedStatus int
	}{
		{"Success", mine.ID.String(), nil, http.StatusOK},
		{"Invalid UUID Format", "not-a-uuid", nil, http.StatusBadRequest},
		{"Job Not Found", uuid.New().String(), nil, http.StatusNotFound},
		{"Other User's Job", theirs.ID.String(), nil, http.StatusNotFound},
		{
			"Store Error",
			mine.ID.String(),
			func(m *mockStore) { m.getJobErr = errors.New("connection refused") },
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.store.getJobErr = nil
			if tt.mockSetup != nil {
				tt.mockSetup(env.store)
			}

			req := asUser(httptest.NewRequest(http.MethodGet, "/jobs/"+tt.jobIDParam, nil), testUserID)
			rr := serve("GET /jobs/{id}", env.h.GetJob, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d: %s", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}
}

func TestGetJob_ReportsResult(t *testing.T) {
	env := newTestEnv(t, HandlerConfig{})
	job := env.seedJob(t, testUserID)
	ctx := context.Background()

	if _, err := env.queue.UpdateJobStatus(ctx, job.ID, store.JobStatusProcessing, nil, nil); err != nil {
		t.Fatal(err)
	}
	result := store.TranscriptionResult{TranscriptionID: "tr-1", Text: "hello world"}
	if _, err := env.queue.UpdateJobStatus(ctx, job.ID, store.JobStatusCompleted, result, nil); err != nil {
		t.Fatal(err)
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID.String(), nil), testUserID)
	rr := serve("GET /jobs/{id}", env.h.GetJob, req)

	var resp api.JobResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "completed" {
		t.Errorf("status = %s, want completed", resp.Status)
	}
	if resp.StartedAt == nil || resp.CompletedAt == nil {
		t.Error("expected started_at and completed_at")
	}
	if !strings.Contains(string(resp.Result), "hello world") {
		t.Errorf("result %s lacks transcript text", resp.Result)
	}
	if !strings.Contains(string(resp.Payload), `"type":"transcription"`) {
		t.Errorf("payload %s lacks type discriminant", resp.Payload)
	}
}

func TestListJobs(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedCount  int
		expectFilter   bool
	}{
		{"All", "", nil, http.StatusOK, 2, false},
		{"Status Filter", "?status=pending", nil, http.StatusOK, 2, true},
		{"Empty Filter Result", "?status=failed", nil, http.StatusOK, 0, true},
		{"Unknown Status", "?status=bogus", nil, http.StatusBadRequest, 0, false},
		{
			"Store Error",
			"",
			func(m *mockStore) { m.listJobsErr = errors.New("timeout") },
			http.StatusInternalServerError,
			0,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, HandlerConfig{})
			env.seedJob(t, testUserID)
			env.seedJob(t, testUserID)
			env.seedJob(t, "someone-else")
			if tt.mockSetup != nil {
				tt.mockSetup(env.store)
			}

			req := asUser(httptest.NewRequest(http.MethodGet, "/jobs"+tt.query, nil), testUserID)
			rr := httptest.NewRecorder()
			env.h.ListJobs(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("got status %d, want %d", rr.Code, tt.expectedStatus)
			}
			if rr.Code != http.StatusOK {
				return
			}

			var resp api.ListJobsResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Jobs) != tt.expectedCount {
				t.Errorf("got %d jobs, want %d", len(resp.Jobs), tt.expectedCount)
			}
			if tt.expectFilter && env.store.capturedStatus == nil {
				t.Error("expected status filter to reach the store")
			}
		})
	}
}
