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

// EmployeeController defines the business logic interface that the employee
// endpoints invoke.
type EmployeeController interface {
	CreateEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	GetEmployee(ctx context.Context, id int) (*models.Employee, error)
	ListEmployees(ctx context.Context, skip, limit int) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, id int) error
	UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error)
	BatchInsert(ctx context.Context, employees []models.Employee) (int, error)
}

type EmployeeHandler struct {
	service EmployeeController
	logger  *zap.Logger
}

func NewEmployeeHandler(service EmployeeController, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: service,
		logger:  logger.Named("employee_handler"),
	}
}

// employeeCreateRequest carries the sparse employee record shape. The
// timestamp arrives as an ISO-8601 string and is parsed with the same
// lenient policy as the CSV path.
type employeeCreateRequest struct {
	ID           int     `json:"id"`
	Name         *string `json:"name"`
	HiredAt      *string `json:"datetime"`
	DepartmentID *int    `json:"department_id"`
	JobID        *int    `json:"job_id"`
}

type employeeUpdateRequest struct {
	Name         *string `json:"name"`
	HiredAt      *string `json:"datetime"`
	DepartmentID *int    `json:"department_id"`
	JobID        *int    `json:"job_id"`
}

func (req *employeeCreateRequest) model() models.Employee {
	employee := models.Employee{
		ID:           req.ID,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		JobID:        req.JobID,
	}
	if req.HiredAt != nil {
		employee.HiredAt = ingest.ParseTimestamp(*req.HiredAt)
	}
	return employee
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	employees, err := h.service.ListEmployees(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error("List employees failed", zap.Error(err))
		writeServiceError(w, "Employee", err)
		return
	}
	resp := make([]employeeBasicResponse, 0, len(employees))
	for i := range employees {
		resp = append(resp, employeeToBasic(&employees[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	employee, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		writeServiceError(w, "Employee", err)
		return
	}
	writeJSON(w, http.StatusOK, employeeToResponse(employee))
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	employee := req.model()
	created, err := h.service.CreateEmployee(r.Context(), &employee)
	if err != nil {
		h.logger.Error("Create employee failed", zap.Error(err))
		writeServiceError(w, "Employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, employeeToBasic(created))
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req employeeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	update := &models.EmployeeUpdate{
		ID:           id,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		JobID:        req.JobID,
	}
	if req.HiredAt != nil {
		update.HiredAt = ingest.ParseTimestamp(*req.HiredAt)
	}
	updated, err := h.service.UpdateEmployee(r.Context(), update)
	if err != nil {
		writeServiceError(w, "Employee", err)
		return
	}
	writeJSON(w, http.StatusOK, employeeToBasic(updated))
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), id); err != nil {
		writeServiceError(w, "Employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload ingests a headerless id,name,datetime,department_id,job_id CSV.
// Bad rows are skipped and reported; the upload continues.
func (h *EmployeeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, err := csvFormFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	result, err := h.service.UploadCSV(r.Context(), file)
	if err != nil {
		h.logger.Error("Employee upload failed", zap.Error(err))
		status, detail := mapServiceError("Employee", err)
		if status == http.StatusInternalServerError {
			detail = "Error processing file"
		}
		writeError(w, status, detail)
		return
	}
	message := "Employees uploaded successfully"
	if len(result.Errors) > 0 {
		message = "Employees uploaded with errors"
	}
	writeJSON(w, http.StatusOK, uploadResultToResponse(message, result))
}

// BatchInsert bulk-inserts a JSON array of 1..1000 employees, prevalidating
// every referenced department and job before anything is staged.
func (h *EmployeeHandler) BatchInsert(w http.ResponseWriter, r *http.Request) {
	var reqs []employeeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	employees := make([]models.Employee, 0, len(reqs))
	for _, req := range reqs {
		employees = append(employees, req.model())
	}
	processed, err := h.service.BatchInsert(r.Context(), employees)
	if err != nil {
		h.logger.Error("Employee batch insert failed", zap.Error(err))
		writeServiceError(w, "Employee", err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Message: "Batch insert successful", RecordsProcessed: processed})
}
