// Package handlers provides the REST endpoints of the migration service,
// bridging the transport layer and business logic and translating between
// JSON/CSV payloads and domain models.
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

// DepartmentController defines the business logic interface that the
// department endpoints invoke.
type DepartmentController interface {
	CreateDepartment(ctx context.Context, department *models.Department) (*models.Department, error)
	GetDepartment(ctx context.Context, id int) (*models.Department, error)
	ListDepartments(ctx context.Context, skip, limit int) ([]models.Department, error)
	UpdateDepartment(ctx context.Context, update *models.DepartmentUpdate) (*models.Department, error)
	DeleteDepartment(ctx context.Context, id int) error
	UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error)
	BatchInsert(ctx context.Context, departments []models.Department) (int, error)
}

type DepartmentHandler struct {
	service DepartmentController
	logger  *zap.Logger
}

func NewDepartmentHandler(service DepartmentController, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		service: service,
		logger:  logger.Named("department_handler"),
	}
}

type departmentCreateRequest struct {
	ID   int    `json:"id"`
	Name string `json:"department"`
}

type departmentUpdateRequest struct {
	Name *string `json:"department"`
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	departments, err := h.service.ListDepartments(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error("List departments failed", zap.Error(err))
		writeServiceError(w, "Department", err)
		return
	}
	resp := make([]departmentResponse, 0, len(departments))
	for i := range departments {
		resp = append(resp, departmentToResponse(&departments[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	department, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Department", err)
		return
	}
	writeJSON(w, http.StatusOK, departmentToDetail(department))
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req departmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreateDepartment(r.Context(), &models.Department{ID: req.ID, Name: req.Name})
	if err != nil {
		h.logger.Error("Create department failed", zap.Error(err))
		writeServiceError(w, "Department", err)
		return
	}
	writeJSON(w, http.StatusCreated, departmentToResponse(created))
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req departmentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := h.service.UpdateDepartment(r.Context(), &models.DepartmentUpdate{ID: id, Name: req.Name})
	if err != nil {
		writeServiceError(w, "Department", err)
		return
	}
	writeJSON(w, http.StatusOK, departmentToResponse(updated))
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		writeServiceError(w, "Department", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload ingests a headerless id,department CSV file. Any null value in the
// file rejects it wholesale.
func (h *DepartmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, err := csvFormFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	result, err := h.service.UploadCSV(r.Context(), file)
	if err != nil {
		h.logger.Error("Department upload failed", zap.Error(err))
		status, detail := mapServiceError("Department", err)
		if status == http.StatusInternalServerError {
			detail = "Error processing file"
		}
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, uploadResultToResponse("Departments uploaded successfully", result))
}

// BatchInsert bulk-inserts a JSON array of 1..1000 departments.
func (h *DepartmentHandler) BatchInsert(w http.ResponseWriter, r *http.Request) {
	var reqs []departmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	departments := make([]models.Department, 0, len(reqs))
	for _, req := range reqs {
		departments = append(departments, models.Department{ID: req.ID, Name: req.Name})
	}
	processed, err := h.service.BatchInsert(r.Context(), departments)
	if err != nil {
		h.logger.Error("Department batch insert failed", zap.Error(err))
		writeServiceError(w, "Department", err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "Batch insert successful", RecordsProcessed: processed})
}
