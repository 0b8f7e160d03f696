package ingest

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/models"
)

// RecordStore is the read/write surface the reconciler stages rows through.
// Implemented by *db.Repository, both directly and inside a transaction.
type RecordStore interface {
	FindDepartment(ctx context.Context, id int) (*models.Department, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	ReplaceDepartmentName(ctx context.Context, id int, name string) error

	FindJob(ctx context.Context, id int) (*models.Job, error)
	CreateJob(ctx context.Context, job *models.Job) error
	ReplaceJobTitle(ctx context.Context, id int, title string) error

	FindEmployee(ctx context.Context, id int) (*models.Employee, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	ReplaceEmployee(ctx context.Context, employee *models.Employee) error
}

// Reconciler implements insert-or-update keyed by the caller-supplied
// identifier. Updates overwrite every mutable field with the incoming value;
// fields absent from the incoming row become NULL, not preserved.
type Reconciler struct {
	store RecordStore
}

func NewReconciler(store RecordStore) *Reconciler {
	return &Reconciler{store: store}
}

// UpsertDepartment stages one department row, reporting whether it was
// inserted (true) or an existing row was updated (false).
func (r *Reconciler) UpsertDepartment(ctx context.Context, row *DepartmentRow) (bool, error) {
	_, err := r.store.FindDepartment(ctx, row.ID)
	switch {
	case errors.Is(err, e.ErrNotFound):
		if err := r.store.CreateDepartment(ctx, &models.Department{ID: row.ID, Name: row.Name}); err != nil {
			return false, fmt.Errorf("failed to insert department %d: %w", row.ID, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up department %d: %w", row.ID, err)
	}
	if err := r.store.ReplaceDepartmentName(ctx, row.ID, row.Name); err != nil {
		return false, fmt.Errorf("failed to update department %d: %w", row.ID, err)
	}
	return false, nil
}

// UpsertJob stages one job row.
func (r *Reconciler) UpsertJob(ctx context.Context, row *JobRow) (bool, error) {
	_, err := r.store.FindJob(ctx, row.ID)
	switch {
	case errors.Is(err, e.ErrNotFound):
		if err := r.store.CreateJob(ctx, &models.Job{ID: row.ID, Title: row.Title}); err != nil {
			return false, fmt.Errorf("failed to insert job %d: %w", row.ID, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up job %d: %w", row.ID, err)
	}
	if err := r.store.ReplaceJobTitle(ctx, row.ID, row.Title); err != nil {
		return false, fmt.Errorf("failed to update job %d: %w", row.ID, err)
	}
	return false, nil
}

// UpsertEmployee stages one employee row, replacing all four mutable fields
// when the row already exists.
func (r *Reconciler) UpsertEmployee(ctx context.Context, row *EmployeeRow) (bool, error) {
	_, err := r.store.FindEmployee(ctx, row.ID)
	switch {
	case errors.Is(err, e.ErrNotFound):
		employee := row.Employee()
		if err := r.store.CreateEmployee(ctx, &employee); err != nil {
			return false, fmt.Errorf("failed to insert employee %d: %w", row.ID, err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up employee %d: %w", row.ID, err)
	}
	employee := row.Employee()
	if err := r.store.ReplaceEmployee(ctx, &employee); err != nil {
		return false, fmt.Errorf("failed to update employee %d: %w", row.ID, err)
	}
	return false, nil
}
