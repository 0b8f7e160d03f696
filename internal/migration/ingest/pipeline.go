package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gartstein/hrmigrate/internal/migration/db"
	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"go.uber.org/zap"
)

const (
	// ChunkSize is the number of rows processed and committed per
	// transaction during a CSV upload.
	ChunkSize = 1000
	// MaxBatchSize bounds the number of records accepted in one JSON batch.
	MaxBatchSize = 1000
)

// Result aggregates the outcome of one CSV upload. Errors holds the
// stringified row-level failures in file order.
type Result struct {
	Inserted int
	Updated  int
	Errors   []string
}

// Store is the storage dependency of the pipeline. Implemented by
// *db.Repository.
type Store interface {
	ParentReader
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	CreateDepartments(ctx context.Context, departments []models.Department) error
	CreateJobs(ctx context.Context, jobs []models.Job) error
	CreateEmployees(ctx context.Context, employees []models.Employee) error
}

// Pipeline orchestrates decode, validation, referential checks and
// reconciliation for bulk uploads, committing per chunk.
type Pipeline struct {
	store     Store
	logger    *zap.Logger
	chunkSize int
}

func NewPipeline(store Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		logger:    logger.Named("ingest"),
		chunkSize: ChunkSize,
	}
}

// UploadDepartments ingests a headerless two-column department CSV. The
// whole file is validated before any row is staged; rows are then upserted
// in chunks, each chunk committed in its own transaction.
func (p *Pipeline) UploadDepartments(ctx context.Context, r io.Reader) (*Result, error) {
	records, err := decodeCSV(r)
	if err != nil {
		return nil, err
	}
	rows, err := ValidateDepartmentRows(records)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for start := 0; start < len(rows); start += p.chunkSize {
		chunk := rows[start:min(start+p.chunkSize, len(rows))]
		err := p.store.WithTransaction(ctx, func(tx *db.Repository) error {
			reconciler := NewReconciler(tx)
			for i := range chunk {
				inserted, err := reconciler.UpsertDepartment(ctx, &chunk[i])
				if err != nil {
					return err
				}
				result.count(inserted)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit department chunk at row %d: %w", start, err)
		}
	}
	p.logger.Info("department upload complete",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// UploadJobs ingests a headerless two-column job CSV with the same
// all-or-nothing validation as departments.
func (p *Pipeline) UploadJobs(ctx context.Context, r io.Reader) (*Result, error) {
	records, err := decodeCSV(r)
	if err != nil {
		return nil, err
	}
	rows, err := ValidateJobRows(records)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for start := 0; start < len(rows); start += p.chunkSize {
		chunk := rows[start:min(start+p.chunkSize, len(rows))]
		err := p.store.WithTransaction(ctx, func(tx *db.Repository) error {
			reconciler := NewReconciler(tx)
			for i := range chunk {
				inserted, err := reconciler.UpsertJob(ctx, &chunk[i])
				if err != nil {
					return err
				}
				result.count(inserted)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit job chunk at row %d: %w", start, err)
		}
	}
	p.logger.Info("job upload complete",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// UploadEmployees ingests a headerless five-column employee CSV. Unlike the
// department and job paths, a bad row is skipped and recorded rather than
// rejecting the file; only a decode or commit failure aborts the upload.
// Chunks already committed stay committed when a later chunk fails.
func (p *Pipeline) UploadEmployees(ctx context.Context, r io.Reader) (*Result, error) {
	records, err := decodeCSV(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for start := 0; start < len(records); start += p.chunkSize {
		chunk := records[start:min(start+p.chunkSize, len(records))]
		err := p.store.WithTransaction(ctx, func(tx *db.Repository) error {
			checker := NewReferenceChecker(tx)
			reconciler := NewReconciler(tx)
			for i, record := range chunk {
				index := start + i
				row, rowErr := ParseEmployeeRow(index, record)
				if rowErr != nil {
					result.Errors = append(result.Errors, rowErr.Error())
					continue
				}
				if err := checker.Check(ctx, index, row); err != nil {
					var rowErr *RowError
					if errors.As(err, &rowErr) {
						result.Errors = append(result.Errors, rowErr.Error())
						continue
					}
					return err
				}
				inserted, err := reconciler.UpsertEmployee(ctx, row)
				if err != nil {
					return err
				}
				result.count(inserted)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit employee chunk at row %d: %w", start, err)
		}
	}
	p.logger.Info("employee upload complete",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("row_errors", len(result.Errors)),
	)
	return result, nil
}

// BatchInsertDepartments inserts 1..1000 department records as new rows in
// one bulk write. No upsert: a duplicate identifier fails the whole batch.
func (p *Pipeline) BatchInsertDepartments(ctx context.Context, departments []models.Department) (int, error) {
	if err := checkBatchSize(len(departments)); err != nil {
		return 0, err
	}
	for i := range departments {
		if err := validateRecordName(departments[i].Name); err != nil {
			return 0, err
		}
	}
	if err := p.store.CreateDepartments(ctx, departments); err != nil {
		return 0, fmt.Errorf("failed to bulk insert departments: %w", err)
	}
	return len(departments), nil
}

// BatchInsertJobs inserts 1..1000 job records as new rows in one bulk write.
func (p *Pipeline) BatchInsertJobs(ctx context.Context, jobs []models.Job) (int, error) {
	if err := checkBatchSize(len(jobs)); err != nil {
		return 0, err
	}
	for i := range jobs {
		if err := validateRecordName(jobs[i].Title); err != nil {
			return 0, err
		}
	}
	if err := p.store.CreateJobs(ctx, jobs); err != nil {
		return 0, fmt.Errorf("failed to bulk insert jobs: %w", err)
	}
	return len(jobs), nil
}

// BatchInsertEmployees validates every referenced department and job before
// staging anything, then inserts all records in one bulk write. One missing
// reference rejects the whole batch.
func (p *Pipeline) BatchInsertEmployees(ctx context.Context, employees []models.Employee) (int, error) {
	if err := checkBatchSize(len(employees)); err != nil {
		return 0, err
	}
	for _, employee := range employees {
		if employee.DepartmentID != nil {
			exists, err := p.store.DepartmentExists(ctx, *employee.DepartmentID)
			if err != nil {
				return 0, fmt.Errorf("failed to check department reference: %w", err)
			}
			if !exists {
				return 0, fmt.Errorf("%w: Department ID %d not found", e.ErrInvalidInput, *employee.DepartmentID)
			}
		}
		if employee.JobID != nil {
			exists, err := p.store.JobExists(ctx, *employee.JobID)
			if err != nil {
				return 0, fmt.Errorf("failed to check job reference: %w", err)
			}
			if !exists {
				return 0, fmt.Errorf("%w: Job ID %d not found", e.ErrInvalidInput, *employee.JobID)
			}
		}
	}
	if err := p.store.CreateEmployees(ctx, employees); err != nil {
		return 0, fmt.Errorf("failed to bulk insert employees: %w", err)
	}
	return len(employees), nil
}

func (r *Result) count(inserted bool) {
	if inserted {
		r.Inserted++
	} else {
		r.Updated++
	}
}

// decodeCSV reads the entire upload into raw rows. Row lengths are
// validated per mode, not here, so one short row cannot abort a lenient
// employee upload.
func decodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed CSV: %v", e.ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV file is empty", e.ErrInvalidInput)
	}
	return records, nil
}

func checkBatchSize(n int) error {
	if n < 1 || n > MaxBatchSize {
		return fmt.Errorf("%w: Batch size must be between 1 and 1000 records", e.ErrInvalidInput)
	}
	return nil
}

