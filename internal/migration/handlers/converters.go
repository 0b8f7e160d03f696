package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/ingest"
	"github.com/gartstein/hrmigrate/internal/migration/models"
)

// naiveLayout is the wire format for the naive UTC hire timestamp.
const naiveLayout = "2006-01-02T15:04:05"

// maxReportedErrors caps the row-level errors returned in an upload
// response; counts still cover the whole file.
const maxReportedErrors = 10

// departmentResponse mirrors the departments table row.
type departmentResponse struct {
	ID   int    `json:"id"`
	Name string `json:"department"`
}

type departmentWithEmployeesResponse struct {
	ID        int                     `json:"id"`
	Name      string                  `json:"department"`
	Employees []employeeBasicResponse `json:"employees"`
}

type jobResponse struct {
	ID    int    `json:"id"`
	Title string `json:"job"`
}

type jobWithEmployeesResponse struct {
	ID        int                     `json:"id"`
	Title     string                  `json:"job"`
	Employees []employeeBasicResponse `json:"employees"`
}

type employeeBasicResponse struct {
	ID           int     `json:"id"`
	Name         *string `json:"name"`
	HiredAt      *string `json:"datetime"`
	DepartmentID *int    `json:"department_id"`
	JobID        *int    `json:"job_id"`
}

type employeeResponse struct {
	ID           int                 `json:"id"`
	Name         *string             `json:"name"`
	HiredAt      *string             `json:"datetime"`
	DepartmentID *int                `json:"department_id"`
	JobID        *int                `json:"job_id"`
	Department   *departmentResponse `json:"department,omitempty"`
}

type uploadResponse struct {
	Message         string   `json:"message"`
	RecordsInserted int      `json:"records_inserted"`
	RecordsUpdated  int      `json:"records_updated"`
	Errors          []string `json:"errors,omitempty"`
}

type batchResponse struct {
	Message          string `json:"message"`
	RecordsProcessed int    `json:"records_processed"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func departmentToResponse(d *models.Department) departmentResponse {
	return departmentResponse{ID: d.ID, Name: d.Name}
}

func departmentToDetail(d *models.Department) departmentWithEmployeesResponse {
	resp := departmentWithEmployeesResponse{
		ID:        d.ID,
		Name:      d.Name,
		Employees: make([]employeeBasicResponse, 0, len(d.Employees)),
	}
	for i := range d.Employees {
		resp.Employees = append(resp.Employees, employeeToBasic(&d.Employees[i]))
	}
	return resp
}

func jobToResponse(j *models.Job) jobResponse {
	return jobResponse{ID: j.ID, Title: j.Title}
}

func jobToDetail(j *models.Job) jobWithEmployeesResponse {
	resp := jobWithEmployeesResponse{
		ID:        j.ID,
		Title:     j.Title,
		Employees: make([]employeeBasicResponse, 0, len(j.Employees)),
	}
	for i := range j.Employees {
		resp.Employees = append(resp.Employees, employeeToBasic(&j.Employees[i]))
	}
	return resp
}

func employeeToBasic(emp *models.Employee) employeeBasicResponse {
	return employeeBasicResponse{
		ID:           emp.ID,
		Name:         emp.Name,
		HiredAt:      formatNaive(emp.HiredAt),
		DepartmentID: emp.DepartmentID,
		JobID:        emp.JobID,
	}
}

func employeeToResponse(emp *models.Employee) employeeResponse {
	resp := employeeResponse{
		ID:           emp.ID,
		Name:         emp.Name,
		HiredAt:      formatNaive(emp.HiredAt),
		DepartmentID: emp.DepartmentID,
		JobID:        emp.JobID,
	}
	if emp.Department != nil {
		dept := departmentToResponse(emp.Department)
		resp.Department = &dept
	}
	return resp
}

func formatNaive(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(naiveLayout)
	return &s
}

func uploadResultToResponse(message string, result *ingest.Result) uploadResponse {
	resp := uploadResponse{
		Message:         message,
		RecordsInserted: result.Inserted,
		RecordsUpdated:  result.Updated,
	}
	if len(result.Errors) > 0 {
		resp.Errors = result.Errors[:min(maxReportedErrors, len(result.Errors))]
	}
	return resp
}

// mapServiceError translates domain errors to an HTTP status and detail
// message. entity is the capitalized entity name used in messages.
func mapServiceError(entity string, err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, entity + " not found"
	case errors.Is(err, e.ErrDuplicateName):
		return http.StatusBadRequest, entity + " name already exists"
	case errors.Is(err, e.ErrConflict):
		return http.StatusBadRequest, "Database constraint violation"
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, invalidInputDetail(err)
	default:
		return http.StatusInternalServerError, "Database error occurred"
	}
}

// invalidInputDetail strips the sentinel prefix so the client sees the
// specific reason, e.g. "CSV contains null values".
func invalidInputDetail(err error) string {
	detail := err.Error()
	if idx := strings.Index(detail, e.ErrInvalidInput.Error()+": "); idx >= 0 {
		detail = detail[idx+len(e.ErrInvalidInput.Error())+2:]
	}
	return detail
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeServiceError maps a domain error and writes the error response.
func writeServiceError(w http.ResponseWriter, entity string, err error) {
	status, detail := mapServiceError(entity, err)
	writeError(w, status, detail)
}
