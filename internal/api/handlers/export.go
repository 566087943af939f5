package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/jobs"
	"github.com/dvloznov/budget-ledger/internal/suggest"
	"github.com/rs/zerolog"
)

// ExportHandler enqueues ledger snapshot exports.
type ExportHandler struct {
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(publisher jobs.Publisher, bucket string, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{publisher: publisher, bucket: bucket, log: log}
}

// Enqueue handles POST /api/export
func (h *ExportHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Exports are not configured")
		return
	}

	job := &jobs.ExportSnapshotJob{
		UserID: userID(r),
		Bucket: h.bucket,
	}
	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", job.UserID).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler reports export job progress.
type JobsHandler struct {
	store jobs.Store
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != userID(r) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.Filter{
		UserID: userID(r),
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ExportSnapshotJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// CategoriesHandler suggests an allocation category for a description.
type CategoriesHandler struct {
	suggester *suggest.Suggester
	log       zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(suggester *suggest.Suggester, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{suggester: suggester, log: log}
}

// Suggest handles POST /api/categories/suggest
func (h *CategoriesHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	cat, err := h.suggester.SuggestCategory(r.Context(), req.Description)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to suggest category")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to suggest category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"category": string(cat),
	})
}
