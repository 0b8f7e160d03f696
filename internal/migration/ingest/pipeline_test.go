package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/hrmigrate/internal/migration/db"
	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"github.com/gartstein/hrmigrate/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
)

func setupPipeline(t *testing.T) (*Pipeline, *db.Repository) {
	repo, err := db.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	require.NoError(t, err, "failed to open test database")
	return NewPipeline(repo, zaptest.NewLogger(t)), repo
}

func TestUploadDepartmentsInsertsNewRows(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadDepartments(ctx, strings.NewReader("1,Sales\n2,Engineering"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, result.Errors)

	departments, err := repo.ListDepartments(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, 1, departments[0].ID)
	assert.Equal(t, "Sales", departments[0].Name)
	assert.Equal(t, 2, departments[1].ID)
	assert.Equal(t, "Engineering", departments[1].Name)
}

func TestUploadDepartmentsUpsertsExistingRows(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDepartment(ctx, &models.Department{ID: 1, Name: "Old Sales"}))

	result, err := pipeline.UploadDepartments(ctx, strings.NewReader("1,Sales\n2,Engineering"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	department, err := repo.FindDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sales", department.Name, "stored name should be fully replaced")
}

func TestUploadDepartmentsIdempotent(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	const payload = "1,Sales\n2,Engineering\n3,Support"

	first, err := pipeline.UploadDepartments(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	second, err := pipeline.UploadDepartments(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Updated)

	departments, err := repo.ListDepartments(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, departments, 3)
	assert.Equal(t, "Sales", departments[0].Name)
}

func TestUploadDepartmentsRejectsNullsWholesale(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	_, err := pipeline.UploadDepartments(ctx, strings.NewReader("1,Sales\n2,"))
	require.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Contains(t, err.Error(), "CSV contains null values")

	departments, listErr := repo.ListDepartments(ctx, 0, 10)
	require.NoError(t, listErr)
	assert.Empty(t, departments, "storage must be unchanged after a rejected file")
}

func TestUploadDepartmentsEmptyFile(t *testing.T) {
	pipeline, _ := setupPipeline(t)

	_, err := pipeline.UploadDepartments(context.Background(), strings.NewReader(""))
	require.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Contains(t, err.Error(), "CSV file is empty")
}

func TestUploadJobs(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadJobs(ctx, strings.NewReader("1,Engineer\n2,Manager"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	job, err := repo.FindJob(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Manager", job.Title)

	_, err = pipeline.UploadJobs(ctx, strings.NewReader(",Engineer"))
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestUploadEmployeesSkipsMissingDepartment(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadEmployees(ctx, strings.NewReader("1,Alice,,99,"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 0: Department ID 99 not found", result.Errors[0])

	_, findErr := repo.FindEmployee(ctx, 1)
	assert.ErrorIs(t, findErr, e.ErrNotFound, "skipped row must not create a partial row")
}

func TestUploadEmployeesSkipsMissingJob(t *testing.T) {
	pipeline, _ := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadEmployees(ctx, strings.NewReader("1,Alice,,,7"))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 0: Job ID 7 not found", result.Errors[0])
}

func TestUploadEmployeesContinuesAfterBadRow(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	payload := "1,Alice,,99,\n2,Bob,,,\nnot-a-number,Carol,,,\n4,Dave,,,"
	result, err := pipeline.UploadEmployees(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Row 0: Department ID 99 not found", result.Errors[0])
	assert.Contains(t, result.Errors[1], "Row 2:")

	employees, err := repo.ListEmployees(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, employees, 2)
}

func TestUploadEmployeesNaiveTimestamp(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadEmployees(ctx, strings.NewReader("5,Alice,2021-11-07T02:48:42Z,,"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Empty(t, result.Errors)

	employee, err := repo.FindEmployee(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, employee.HiredAt)
	assert.Equal(t, time.Date(2021, 11, 7, 2, 48, 42, 0, time.UTC), employee.HiredAt.UTC())
	assert.Nil(t, employee.DepartmentID)
	assert.Nil(t, employee.JobID)
}

// A broken timestamp is stored as NULL rather than failing the row. This is
// deliberate source behavior; see TestParseTimestamp.
func TestUploadEmployeesLenientTimestamp(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	result, err := pipeline.UploadEmployees(ctx, strings.NewReader("5,Alice,garbage,,"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Empty(t, result.Errors, "a broken timestamp is not a row error")

	employee, err := repo.FindEmployee(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, employee.HiredAt)
}

func TestUploadEmployeesReplacesAllFields(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDepartment(ctx, &models.Department{ID: 1, Name: "Sales"}))
	hired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{
		ID:           5,
		Name:         utils.Ptr("Alice"),
		HiredAt:      &hired,
		DepartmentID: utils.Ptr(1),
	}))

	result, err := pipeline.UploadEmployees(ctx, strings.NewReader("5,,,,"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	employee, err := repo.FindEmployee(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, employee.Name, "absent name should be nulled, not preserved")
	assert.Nil(t, employee.HiredAt)
	assert.Nil(t, employee.DepartmentID)
}

func TestUploadEmployeesIdempotent(t *testing.T) {
	pipeline, _ := setupPipeline(t)
	ctx := context.Background()

	const payload = "1,Alice,2021-11-07T02:48:42Z,,\n2,Bob,,,"

	first, err := pipeline.UploadEmployees(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	second, err := pipeline.UploadEmployees(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)
}

func TestUploadEmployeesChunked(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	pipeline.chunkSize = 2
	ctx := context.Background()

	payload := "1,Alice,,,\n2,Bob,,,\n3,Carol,,,\n4,Dave,,,\n5,Eve,,,"
	result, err := pipeline.UploadEmployees(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Inserted)

	// Error indexes stay file-relative across chunk boundaries.
	payload = "1,Alice,,,\n2,Bob,,,\n3,Carol,,99,"
	result, err = pipeline.UploadEmployees(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 2: Department ID 99 not found", result.Errors[0])

	employees, err := repo.ListEmployees(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, employees, 5)
}

func TestBatchInsertDepartments(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	processed, err := pipeline.BatchInsertDepartments(ctx, []models.Department{
		{ID: 1, Name: "Sales"},
		{ID: 2, Name: "Engineering"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	departments, err := repo.ListDepartments(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, departments, 2)
}

func TestBatchSizeBounds(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	_, err := pipeline.BatchInsertEmployees(ctx, nil)
	assert.ErrorIs(t, err, e.ErrInvalidInput, "empty batch must be rejected")

	oversized := make([]models.Employee, MaxBatchSize+1)
	for i := range oversized {
		oversized[i].ID = i + 1
	}
	_, err = pipeline.BatchInsertEmployees(ctx, oversized)
	assert.ErrorIs(t, err, e.ErrInvalidInput, "oversized batch must be rejected")

	employees, listErr := repo.ListEmployees(ctx, 0, 10)
	require.NoError(t, listErr)
	assert.Empty(t, employees, "rejected batches must not touch storage")
}

func TestBatchInsertRejectsInvalidNames(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	_, err := pipeline.BatchInsertDepartments(ctx, []models.Department{
		{ID: 1, Name: "Sales"},
		{ID: 2, Name: ""},
	})
	require.ErrorIs(t, err, e.ErrInvalidInput, "empty name must reject the batch")

	_, err = pipeline.BatchInsertDepartments(ctx, []models.Department{
		{ID: 1, Name: strings.Repeat("x", 200)},
	})
	require.ErrorIs(t, err, e.ErrInvalidInput, "over-long name must reject the batch")

	_, err = pipeline.BatchInsertJobs(ctx, []models.Job{{ID: 1, Title: ""}})
	require.ErrorIs(t, err, e.ErrInvalidInput)

	departments, listErr := repo.ListDepartments(ctx, 0, 10)
	require.NoError(t, listErr)
	assert.Empty(t, departments, "rejected batches must not touch storage")
}

func TestBatchInsertEmployeesRejectsMissingReference(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDepartment(ctx, &models.Department{ID: 1, Name: "Sales"}))

	_, err := pipeline.BatchInsertEmployees(ctx, []models.Employee{
		{ID: 1, DepartmentID: utils.Ptr(1)},
		{ID: 2, DepartmentID: utils.Ptr(99)},
	})
	require.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Department ID 99 not found")

	employees, listErr := repo.ListEmployees(ctx, 0, 10)
	require.NoError(t, listErr)
	assert.Empty(t, employees, "one missing reference rejects the whole batch")
}

func TestBatchInsertEmployees(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDepartment(ctx, &models.Department{ID: 1, Name: "Sales"}))
	require.NoError(t, repo.CreateJob(ctx, &models.Job{ID: 2, Title: "Engineer"}))

	processed, err := pipeline.BatchInsertEmployees(ctx, []models.Employee{
		{ID: 1, Name: utils.Ptr("Alice"), DepartmentID: utils.Ptr(1), JobID: utils.Ptr(2)},
		{ID: 2, Name: utils.Ptr("Bob")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestBatchInsertEmployeesDuplicateIDFails(t *testing.T) {
	pipeline, repo := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateEmployee(ctx, &models.Employee{ID: 1}))

	_, err := pipeline.BatchInsertEmployees(ctx, []models.Employee{{ID: 1}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, e.ErrInvalidInput, "a duplicate id is a storage failure, not a client error")
}
