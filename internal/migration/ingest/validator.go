// Package ingest implements the bulk-ingestion pipeline: decoding uploaded
// CSV files and JSON batches into typed rows, validating them, checking
// referential integrity and reconciling them against existing rows.
//
// Three distinct ingestion modes exist and are deliberately not unified:
//
//   - department/job CSV uploads validate the whole file up front and reject
//     it entirely on any null value (all-or-nothing);
//   - employee CSV uploads are lenient, skipping bad rows and recording a
//     per-row error while the batch continues;
//   - JSON batches prevalidate every reference and then insert all records
//     in a single bulk write, with no upsert.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/hrmigrate/internal/migration/errors"
	"github.com/gartstein/hrmigrate/internal/migration/models"
	"github.com/gartstein/hrmigrate/internal/pkg/utils"
)

const maxNameLength = 150

// validateRecordName enforces the 1..150 character bound shared by
// department names and job titles, on every write path.
func validateRecordName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be between 1 and 150 characters", e.ErrInvalidInput)
	}
	return nil
}

// RowError is a failure isolated to one input row. It carries the 0-based
// position of the row in the uploaded file.
type RowError struct {
	Index  int
	Reason string
}

func (r *RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", r.Index, r.Reason)
}

// DepartmentRow is a typed, validated department record decoded from one
// CSV line.
type DepartmentRow struct {
	ID   int
	Name string
}

// JobRow is a typed, validated job record decoded from one CSV line.
type JobRow struct {
	ID    int
	Title string
}

// EmployeeRow is a typed, validated employee record decoded from one CSV
// line. Empty cells decode to nil.
type EmployeeRow struct {
	ID           int
	Name         *string
	HiredAt      *time.Time
	DepartmentID *int
	JobID        *int
}

// ValidateDepartmentRows applies the all-or-nothing policy of the
// department CSV path: any null cell, malformed identifier or over-long
// name rejects the entire file before anything is staged.
func ValidateDepartmentRows(records [][]string) ([]DepartmentRow, error) {
	rows := make([]DepartmentRow, 0, len(records))
	for i, record := range records {
		if hasNullCell(record, 2) {
			return nil, fmt.Errorf("%w: CSV contains null values", e.ErrInvalidInput)
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid department id %q", e.ErrInvalidInput, i, record[0])
		}
		name := strings.TrimSpace(record[1])
		if len(name) > maxNameLength {
			return nil, fmt.Errorf("%w: row %d: department name too long", e.ErrInvalidInput, i)
		}
		rows = append(rows, DepartmentRow{ID: id, Name: name})
	}
	return rows, nil
}

// ValidateJobRows applies the all-or-nothing policy of the job CSV path.
func ValidateJobRows(records [][]string) ([]JobRow, error) {
	rows := make([]JobRow, 0, len(records))
	for i, record := range records {
		if hasNullCell(record, 2) {
			return nil, fmt.Errorf("%w: CSV contains null values", e.ErrInvalidInput)
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid job id %q", e.ErrInvalidInput, i, record[0])
		}
		title := strings.TrimSpace(record[1])
		if len(title) > maxNameLength {
			return nil, fmt.Errorf("%w: row %d: job title too long", e.ErrInvalidInput, i)
		}
		rows = append(rows, JobRow{ID: id, Title: title})
	}
	return rows, nil
}

// ParseEmployeeRow decodes one employee CSV line into a typed row. A
// malformed identifier fails the row; an unparseable timestamp does not
// (see ParseTimestamp).
func ParseEmployeeRow(index int, record []string) (*EmployeeRow, *RowError) {
	if len(record) != 5 {
		return nil, &RowError{Index: index, Reason: fmt.Sprintf("expected 5 columns, got %d", len(record))}
	}
	id, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return nil, &RowError{Index: index, Reason: fmt.Sprintf("invalid employee id %q", record[0])}
	}

	row := &EmployeeRow{ID: id}
	if name := strings.TrimSpace(record[1]); name != "" {
		row.Name = utils.Ptr(name)
	}
	row.HiredAt = ParseTimestamp(record[2])
	row.DepartmentID, err = parseOptionalID(record[3])
	if err != nil {
		return nil, &RowError{Index: index, Reason: fmt.Sprintf("invalid department id %q", record[3])}
	}
	row.JobID, err = parseOptionalID(record[4])
	if err != nil {
		return nil, &RowError{Index: index, Reason: fmt.Sprintf("invalid job id %q", record[4])}
	}
	return row, nil
}

// ParseTimestamp parses an ISO-8601 timestamp into a naive time. A zone
// designator (trailing Z or an offset) is dropped, not converted: the
// wall-clock fields are stored as written. An unparseable value yields nil
// rather than an error; the source data treats broken timestamps as absent.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			naive := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
			return &naive
		}
	}
	return nil
}

func parseOptionalID(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func hasNullCell(record []string, columns int) bool {
	if len(record) != columns {
		return true
	}
	for _, cell := range record {
		if strings.TrimSpace(cell) == "" {
			return true
		}
	}
	return false
}

// Employee converts a validated row into the persisted model.
func (r *EmployeeRow) Employee() models.Employee {
	return models.Employee{
		ID:           r.ID,
		Name:         r.Name,
		HiredAt:      r.HiredAt,
		DepartmentID: r.DepartmentID,
		JobID:        r.JobID,
	}
}
