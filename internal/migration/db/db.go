// Package db implements the relational storage layer for departments, jobs
// and employees on top of GORM.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var repo *Repository
	// The database may still be starting up; retry the initial connect.
	err := backoff.Retry(func() error {
		var err error
		repo, err = Open(postgres.Open(dsn))
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repo, nil
}

// Open connects through the given dialector and migrates the schema. Tests
// use it with an in-memory SQLite dialector.
func Open(dialector gorm.Dialector) (*Repository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Department{},
		&models.Job{},
		&models.Employee{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// translateError maps GORM constraint errors to the domain taxonomy.
func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return e.ErrDuplicateName
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return e.ErrConflict
	default:
		return err
	}
}

// -- Departments --

func (r *Repository) CreateDepartment(ctx context.Context, department *models.Department) error {
	result := r.db.WithContext(ctx).Create(department)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// CreateDepartments stages a bulk insert of new rows. A duplicate
// identifier fails the whole statement.
func (r *Repository) CreateDepartments(ctx context.Context, departments []models.Department) error {
	result := r.db.WithContext(ctx).Create(&departments)
	return result.Error
}

func (r *Repository) GetDepartment(ctx context.Context, id int) (*models.Department, error) {
	var department models.Department
	result := r.db.WithContext(ctx).Preload("Employees").First(&department, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &department, nil
}

func (r *Repository) ListDepartments(ctx context.Context, skip, limit int) ([]models.Department, error) {
	var departments []models.Department
	result := r.db.WithContext(ctx).Order("id").Offset(skip).Limit(limit).Find(&departments)
	return departments, result.Error
}

func (r *Repository) UpdateDepartment(ctx context.Context, update *models.DepartmentUpdate) error {
	values := map[string]interface{}{}
	if update.Name != nil {
		values["department"] = *update.Name
	}
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Department{}).
		Where("id = ?", update.ID).
		Updates(values)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteDepartment(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&models.Department{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DepartmentExists(ctx context.Context, id int) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Department{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) DepartmentExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Department{}).
		Where("department = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// FindDepartment loads a department without its employees. Used by the
// ingestion path where associations are irrelevant.
func (r *Repository) FindDepartment(ctx context.Context, id int) (*models.Department, error) {
	var department models.Department
	result := r.db.WithContext(ctx).First(&department, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &department, nil
}

// -- Jobs --

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	result := r.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// CreateJobs stages a bulk insert of new rows.
func (r *Repository) CreateJobs(ctx context.Context, jobs []models.Job) error {
	result := r.db.WithContext(ctx).Create(&jobs)
	return result.Error
}

func (r *Repository) GetJob(ctx context.Context, id int) (*models.Job, error) {
	var job models.Job
	result := r.db.WithContext(ctx).Preload("Employees").First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

func (r *Repository) ListJobs(ctx context.Context, skip, limit int) ([]models.Job, error) {
	var jobs []models.Job
	result := r.db.WithContext(ctx).Order("id").Offset(skip).Limit(limit).Find(&jobs)
	return jobs, result.Error
}

func (r *Repository) UpdateJob(ctx context.Context, update *models.JobUpdate) error {
	values := map[string]interface{}{}
	if update.Title != nil {
		values["job"] = *update.Title
	}
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", update.ID).
		Updates(values)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteJob(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) JobExists(ctx context.Context, id int) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) JobExistsByTitle(ctx context.Context, title string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("job = ?", title).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) FindJob(ctx context.Context, id int) (*models.Job, error) {
	var job models.Job
	result := r.db.WithContext(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

// -- Employees --

func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	result := r.db.WithContext(ctx).Create(employee)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// CreateEmployees stages a bulk insert of new rows. A duplicate identifier
// fails the whole statement.
func (r *Repository) CreateEmployees(ctx context.Context, employees []models.Employee) error {
	result := r.db.WithContext(ctx).Create(&employees)
	return result.Error
}

func (r *Repository) GetEmployee(ctx context.Context, id int) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.WithContext(ctx).Preload("Department").First(&employee, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

func (r *Repository) ListEmployees(ctx context.Context, skip, limit int) ([]models.Employee, error) {
	var employees []models.Employee
	result := r.db.WithContext(ctx).Order("id").Offset(skip).Limit(limit).Find(&employees)
	return employees, result.Error
}

func (r *Repository) UpdateEmployee(ctx context.Context, update *models.EmployeeUpdate) error {
	values := map[string]interface{}{}
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.HiredAt != nil {
		values["datetime"] = *update.HiredAt
	}
	if update.DepartmentID != nil {
		values["department_id"] = *update.DepartmentID
	}
	if update.JobID != nil {
		values["job_id"] = *update.JobID
	}
	if len(values) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", update.ID).
		Updates(values)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteEmployee(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&models.Employee{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ReplaceEmployee overwrites every mutable field of an existing row with the
// incoming values, including setting absent fields to NULL. This is the
// full-replacement semantics of the ingestion path, distinct from the
// sparse-patch semantics of UpdateEmployee.
func (r *Repository) ReplaceEmployee(ctx context.Context, employee *models.Employee) error {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ?", employee.ID).
		Updates(map[string]interface{}{
			"name":          employee.Name,
			"datetime":      employee.HiredAt,
			"department_id": employee.DepartmentID,
			"job_id":        employee.JobID,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// ReplaceDepartmentName overwrites the single mutable column of an existing
// department row.
func (r *Repository) ReplaceDepartmentName(ctx context.Context, id int, name string) error {
	result := r.db.WithContext(ctx).Model(&models.Department{}).
		Where("id = ?", id).
		Update("department", name)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

// ReplaceJobTitle overwrites the single mutable column of an existing job row.
func (r *Repository) ReplaceJobTitle(ctx context.Context, id int, title string) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ?", id).
		Update("job", title)
	if result.Error != nil {
		return translateError(result.Error)
	}
	return nil
}

func (r *Repository) FindEmployee(ctx context.Context, id int) (*models.Employee, error) {
	var employee models.Employee
	result := r.db.WithContext(ctx).First(&employee, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
