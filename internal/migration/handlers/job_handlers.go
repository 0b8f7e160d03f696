package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gartstein/hrmigrate/internal/migration/ingest"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"go.uber.org/zap"
)

// JobController defines the business logic interface that the job endpoints
// invoke.
type JobController interface {
	CreateJob(ctx context.Context, job *models.Job) (*models.Job, error)
	GetJob(ctx context.Context, id int) (*models.Job, error)
	ListJobs(ctx context.Context, skip, limit int) ([]models.Job, error)
	UpdateJob(ctx context.Context, update *models.JobUpdate) (*models.Job, error)
	DeleteJob(ctx context.Context, id int) error
	UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error)
	BatchInsert(ctx context.Context, jobs []models.Job) (int, error)
}

type JobHandler struct {
	service JobController
	logger  *zap.Logger
}

func NewJobHandler(service JobController, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger.Named("job_handler"),
	}
}

type jobCreateRequest struct {
	ID    int    `json:"id"`
	Title string `json:"job"`
}

type jobUpdateRequest struct {
	Title *string `json:"job"`
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := h.service.ListJobs(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error("List jobs failed", zap.Error(err))
		writeServiceError(w, "Job", err)
		return
	}
	resp := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, jobToResponse(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Job", err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDetail(job))
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreateJob(r.Context(), &models.Job{ID: req.ID, Title: req.Title})
	if err != nil {
		h.logger.Error("Create job failed", zap.Error(err))
		writeServiceError(w, "Job", err)
		return
	}
	writeJSON(w, http.StatusCreated, jobToResponse(created))
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req jobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.service.UpdateJob(r.Context(), &models.JobUpdate{ID: id, Title: req.Title})
	if err != nil {
		writeServiceError(w, "Job", err)
		return
	}
	writeJSON(w, http.StatusOK, jobToResponse(updated))
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteJob(r.Context(), id); err != nil {
		writeServiceError(w, "Job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload ingests a headerless id,job CSV file with the same all-or-nothing
// null policy as departments.
func (h *JobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, err := csvFormFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	result, err := h.service.UploadCSV(r.Context(), file)
	if err != nil {
		h.logger.Error("Job upload failed", zap.Error(err))
		status, detail := mapServiceError("Job", err)
		if status == http.StatusInternalServerError {
			detail = "Error processing file"
		}
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, uploadResultToResponse("Jobs uploaded successfully", result))
}

// BatchInsert bulk-inserts a JSON array of 1..1000 jobs.
func (h *JobHandler) BatchInsert(w http.ResponseWriter, r *http.Request) {
	var reqs []jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	jobs := make([]models.Job, 0, len(reqs))
	for _, req := range reqs {
		jobs = append(jobs, models.Job{ID: req.ID, Title: req.Title})
	}
	processed, err := h.service.BatchInsert(r.Context(), jobs)
	if err != nil {
		h.logger.Error("Job batch insert failed", zap.Error(err))
		writeServiceError(w, "Job", err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "Batch insert successful", RecordsProcessed: processed})
}
