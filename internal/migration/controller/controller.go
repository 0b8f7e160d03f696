// Package controller implements the business logic (service layer) for
// departments, jobs and employees, orchestrating repository operations,
// the bulk-ingestion pipeline and event production.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"

	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/events"
	"github.com/gartstein/hrmigrate/internal/migration/ingest"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"go.uber.org/zap"
)

const (
	maxNameLength = 150
	defaultLimit  = 100
	maxLimit      = 1000
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage interface consumed by the services.
type Repository interface {
	CreateDepartment(ctx context.Context, department *models.Department) error
	GetDepartment(ctx context.Context, id int) (*models.Department, error)
	ListDepartments(ctx context.Context, skip, limit int) ([]models.Department, error)
	UpdateDepartment(ctx context.Context, update *models.DepartmentUpdate) error
	DeleteDepartment(ctx context.Context, id int) error
	DepartmentExistsByName(ctx context.Context, name string) (bool, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id int) (*models.Job, error)
	ListJobs(ctx context.Context, skip, limit int) ([]models.Job, error)
	UpdateJob(ctx context.Context, update *models.JobUpdate) error
	DeleteJob(ctx context.Context, id int) error
	JobExistsByTitle(ctx context.Context, title string) (bool, error)

	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id int) (*models.Employee, error)
	ListEmployees(ctx context.Context, skip, limit int) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) error
	DeleteEmployee(ctx context.Context, id int) error
}

// Ingestor is the bulk-ingestion surface consumed by the services.
// Implemented by *ingest.Pipeline.
type Ingestor interface {
	UploadDepartments(ctx context.Context, r io.Reader) (*ingest.Result, error)
	UploadJobs(ctx context.Context, r io.Reader) (*ingest.Result, error)
	UploadEmployees(ctx context.Context, r io.Reader) (*ingest.Result, error)
	BatchInsertDepartments(ctx context.Context, departments []models.Department) (int, error)
	BatchInsertJobs(ctx context.Context, jobs []models.Job) (int, error)
	BatchInsertEmployees(ctx context.Context, employees []models.Employee) (int, error)
}

// clampPage normalizes pagination arguments: skip is non-negative, limit is
// kept within [1, 1000] and defaults to 100 when unset.
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	}
	return nil
}

// DepartmentService manages department rows and their bulk ingestion.
type DepartmentService struct {
	repo     Repository
	ingestor Ingestor
	producer EventProducer
	logger   *zap.Logger
}

func NewDepartmentService(repo Repository, ingestor Ingestor, producer EventProducer, logger *zap.Logger) *DepartmentService {
	return &DepartmentService{
		repo:     repo,
		ingestor: ingestor,
		producer: producer,
		logger:   logger.Named("department_service"),
	}
}

// CreateDepartment adds a new department after checking name uniqueness.
// The identifier is supplied by the caller; creating an existing id fails
// on the primary key constraint.
func (s *DepartmentService) CreateDepartment(ctx context.Context, department *models.Department) (*models.Department, error) {
	if err := validateName(department.Name); err != nil {
		return nil, err
	}
	exists, err := s.repo.DepartmentExistsByName(ctx, department.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name existence: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateName
	}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.DepartmentCreated, Entity: "department", ID: department.ID})
	}()
	return department, nil
}

func (s *DepartmentService) GetDepartment(ctx context.Context, id int) (*models.Department, error) {
	department, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return department, nil
}

func (s *DepartmentService) ListDepartments(ctx context.Context, skip, limit int) ([]models.Department, error) {
	skip, limit = clampPage(skip, limit)
	return s.repo.ListDepartments(ctx, skip, limit)
}

// UpdateDepartment applies a partial update, enforcing name uniqueness when
// the name changes.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, update *models.DepartmentUpdate) (*models.Department, error) {
	if update.Name != nil {
		if err := validateName(*update.Name); err != nil {
			return nil, err
		}
	}
	current, err := s.repo.GetDepartment(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil && *update.Name != current.Name {
		exists, err := s.repo.DepartmentExistsByName(ctx, *update.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check name existence: %w", err)
		}
		if exists {
			return nil, e.ErrDuplicateName
		}
	}
	if err := s.repo.UpdateDepartment(ctx, update); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetDepartment(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.DepartmentUpdated, Entity: "department", ID: update.ID})
	}()
	return updated, nil
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, id int) error {
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.DepartmentDeleted, Entity: "department", ID: id})
	}()
	return nil
}

// UploadCSV runs the all-or-nothing department CSV ingestion.
func (s *DepartmentService) UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	result, err := s.ingestor.UploadDepartments(ctx, r)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{
			Type:     events.DepartmentUploadCompleted,
			Entity:   "department",
			Inserted: result.Inserted,
			Updated:  result.Updated,
		})
	}()
	return result, nil
}

// BatchInsert bulk-inserts 1..1000 departments as new rows.
func (s *DepartmentService) BatchInsert(ctx context.Context, departments []models.Department) (int, error) {
	return s.ingestor.BatchInsertDepartments(ctx, departments)
}

// JobService manages job rows and their bulk ingestion.
type JobService struct {
	repo     Repository
	ingestor Ingestor
	producer EventProducer
	logger   *zap.Logger
}

func NewJobService(repo Repository, ingestor Ingestor, producer EventProducer, logger *zap.Logger) *JobService {
	return &JobService{
		repo:     repo,
		ingestor: ingestor,
		producer: producer,
		logger:   logger.Named("job_service"),
	}
}

func (s *JobService) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := validateName(job.Title); err != nil {
		return nil, err
	}
	exists, err := s.repo.JobExistsByTitle(ctx, job.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to check title existence: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateName
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.JobCreated, Entity: "job", ID: job.ID})
	}()
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, id int) (*models.Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context, skip, limit int) ([]models.Job, error) {
	skip, limit = clampPage(skip, limit)
	return s.repo.ListJobs(ctx, skip, limit)
}

func (s *JobService) UpdateJob(ctx context.Context, update *models.JobUpdate) (*models.Job, error) {
	if update.Title != nil {
		if err := validateName(*update.Title); err != nil {
			return nil, err
		}
	}
	current, err := s.repo.GetJob(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	if update.Title != nil && *update.Title != current.Title {
		exists, err := s.repo.JobExistsByTitle(ctx, *update.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to check title existence: %w", err)
		}
		if exists {
			return nil, e.ErrDuplicateName
		}
	}
	if err := s.repo.UpdateJob(ctx, update); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetJob(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.JobUpdated, Entity: "job", ID: update.ID})
	}()
	return updated, nil
}

func (s *JobService) DeleteJob(ctx context.Context, id int) error {
	if err := s.repo.DeleteJob(ctx, id); err != nil {
		return err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.JobDeleted, Entity: "job", ID: id})
	}()
	return nil
}

func (s *JobService) UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	result, err := s.ingestor.UploadJobs(ctx, r)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{
			Type:     events.JobUploadCompleted,
			Entity:   "job",
			Inserted: result.Inserted,
			Updated:  result.Updated,
		})
	}()
	return result, nil
}

func (s *JobService) BatchInsert(ctx context.Context, jobs []models.Job) (int, error) {
	return s.ingestor.BatchInsertJobs(ctx, jobs)
}

// EmployeeService manages employee rows and their bulk ingestion.
type EmployeeService struct {
	repo     Repository
	ingestor Ingestor
	producer EventProducer
	logger   *zap.Logger
}

func NewEmployeeService(repo Repository, ingestor Ingestor, producer EventProducer, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		repo:     repo,
		ingestor: ingestor,
		producer: producer,
		logger:   logger.Named("employee_service"),
	}
}

// CreateEmployee adds a single employee row. Referential integrity of the
// optional department and job ids is enforced by the storage constraints.
func (s *EmployeeService) CreateEmployee(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	if employee.Name != nil && len(*employee.Name) > maxNameLength {
		return nil, fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	}
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.EmployeeCreated, Entity: "employee", ID: employee.ID})
	}()
	return employee, nil
}

func (s *EmployeeService) GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	employee, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return employee, nil
}

func (s *EmployeeService) ListEmployees(ctx context.Context, skip, limit int) ([]models.Employee, error) {
	skip, limit = clampPage(skip, limit)
	return s.repo.ListEmployees(ctx, skip, limit)
}

func (s *EmployeeService) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) (*models.Employee, error) {
	if update.Name != nil && len(*update.Name) > maxNameLength {
		return nil, fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	}
	if _, err := s.repo.GetEmployee(ctx, update.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEmployee(ctx, update); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetEmployee(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.EmployeeUpdated, Entity: "employee", ID: update.ID})
	}()
	return updated, nil
}

func (s *EmployeeService) DeleteEmployee(ctx context.Context, id int) error {
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	go func() {
		s.producer.Produce(events.Event{Type: events.EmployeeDeleted, Entity: "employee", ID: id})
	}()
	return nil
}

// UploadCSV runs the lenient per-row employee CSV ingestion.
func (s *EmployeeService) UploadCSV(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	result, err := s.ingestor.UploadEmployees(ctx, r)
	if err != nil {
		return nil, err
	}
	go func() {
		s.producer.Produce(events.Event{
			Type:     events.EmployeeUploadCompleted,
			Entity:   "employee",
			Inserted: result.Inserted,
			Updated:  result.Updated,
		})
	}()
	return result, nil
}

// BatchInsert bulk-inserts 1..1000 employees after prevalidating every
// referenced department and job.
func (s *EmployeeService) BatchInsert(ctx context.Context, employees []models.Employee) (int, error) {
	return s.ingestor.BatchInsertEmployees(ctx, employees)
}
