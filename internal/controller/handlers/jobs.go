package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"productory/internal/controller/middleware"
	"productory/internal/jobqueue"
	"productory/internal/store"
	"productory/pkg/api"

	"github.com/google/uuid"
)

// CreateJob handles POST /jobs.
// It validates the payload against the job type and enqueues a pending job for the caller.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if req.JobType == "" || len(req.Payload) == 0 {
		h.httpError(w, "job_type and payload are required", http.StatusBadRequest)
		return
	}

	if req.Priority < api.PriorityMin || req.Priority > api.PriorityMax {
		h.httpError(w, "Priority must be between 0 and 100", http.StatusBadRequest)
		return
	}

	payload, err := store.DecodePayloadAs(store.JobType(req.JobType), req.Payload)
	if err != nil {
		h.httpError(w, "Invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.jobs.CreateJob(ctx, jobqueue.NewJob{
		JobType:     store.JobType(req.JobType),
		Payload:     payload,
		UserID:      userID,
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
	})
	if errors.Is(err, jobqueue.ErrInvalidJob) {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log(r).Error("failed to create job", "error", err)
		h.httpError(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	h.log(r).Info("job created", "job_id", job.ID, "job_type", job.JobType, "priority", job.Priority)

	h.respondJson(w, http.StatusCreated, api.CreateJobResponse{
		JobID:  job.ID.String(),
		Status: string(job.Status),
	})
}

// GetJob handles GET /jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}

	resp, err := toJobResponse(job)
	if err != nil {
		h.log(r).Error("failed to encode job", "job_id", job.ID, "error", err)
		h.httpError(w, "Failed to encode job", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ListJobs handles GET /jobs with an optional ?status= filter.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var status *store.JobStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := store.JobStatus(s)
		status = &st
	}

	jobs, err := h.jobs.GetUserJobs(ctx, userID, status)
	if errors.Is(err, jobqueue.ErrInvalidJob) {
		h.httpError(w, "Unknown status filter", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log(r).Error("failed to list jobs", "error", err)
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := api.ListJobsResponse{Jobs: make([]api.JobResponse, 0, len(jobs))}
	for i := range jobs {
		jr, err := toJobResponse(&jobs[i])
		if err != nil {
			h.log(r).Error("failed to encode job", "job_id", jobs[i].ID, "error", err)
			h.httpError(w, "Failed to encode job", http.StatusInternalServerError)
			return
		}
		resp.Jobs = append(resp.Jobs, jr)
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ownedJob loads the job named by the {id} path value. Jobs belonging to other
// users are reported as not found. It writes the error response itself.
func (h *Handlers) ownedJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	ctx := r.Context()

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return nil, false
	}

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	job, err := h.jobs.GetJob(ctx, jobID)
	if err != nil {
		h.log(r).Error("failed to load job", "job_id", jobID, "error", err)
		h.httpError(w, "Failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	if job == nil || job.UserID != userID {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func toJobResponse(job *store.Job) (api.JobResponse, error) {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return api.JobResponse{}, err
	}

	resp := api.JobResponse{
		ID:           job.ID.String(),
		JobType:      string(job.JobType),
		Status:       string(job.Status),
		Priority:     job.Priority,
		Payload:      payload,
		ErrorMessage: job.ErrorMessage,
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
	if job.Result != nil {
		if resp.Result, err = json.Marshal(job.Result); err != nil {
			return api.JobResponse{}, err
		}
	}
	return resp, nil
}
