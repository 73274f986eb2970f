package handlers

import (
	"net/http"

	"productory/pkg/api"
)

// GetJobLogs handles GET /jobs/{id}/logs.
// Called by the User (CLI/UI) to view a job's audit trail.
func (h *Handlers) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	// Verify ownership
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}

	logs, err := h.jobs.GetJobLogs(r.Context(), job.ID)
	if err != nil {
		h.log(r).Error("failed to fetch logs", "job_id", job.ID, "error", err)
		h.httpError(w, "Failed to fetch logs", http.StatusInternalServerError)
		return
	}

	apiLogs := make([]api.LogEntry, len(logs))
	for i, log := range logs {
		apiLogs[i] = api.LogEntry{
			ID:        log.ID,
			Message:   log.Message,
			Level:     string(log.Level),
			CreatedAt: log.CreatedAt,
		}
	}

	h.respondJson(w, http.StatusOK, api.GetLogsResponse{Logs: apiLogs})
}
