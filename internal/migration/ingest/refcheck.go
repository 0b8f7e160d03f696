package ingest

import (
	"context"
	"fmt"
)

// ParentReader is the storage read surface needed to confirm that foreign
// keys name existing parent rows.
type ParentReader interface {
	DepartmentExists(ctx context.Context, id int) (bool, error)
	JobExists(ctx context.Context, id int) (bool, error)
}

// ReferenceChecker confirms that the optional department and job references
// of an employee row resolve to existing rows. Checks are live per-row
// queries, so a parent deleted mid-batch surfaces as a later row failure.
type ReferenceChecker struct {
	store ParentReader
}

func NewReferenceChecker(store ParentReader) *ReferenceChecker {
	return &ReferenceChecker{store: store}
}

// Check returns a *RowError when a referenced parent is missing. Any other
// error is a storage failure and aborts the batch.
func (c *ReferenceChecker) Check(ctx context.Context, index int, row *EmployeeRow) error {
	if row.DepartmentID != nil {
		exists, err := c.store.DepartmentExists(ctx, *row.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to check department reference: %w", err)
		}
		if !exists {
			return &RowError{Index: index, Reason: fmt.Sprintf("Department ID %d not found", *row.DepartmentID)}
		}
	}
	if row.JobID != nil {
		exists, err := c.store.JobExists(ctx, *row.JobID)
		if err != nil {
			return fmt.Errorf("failed to check job reference: %w", err)
		}
		if !exists {
			return &RowError{Index: index, Reason: fmt.Sprintf("Job ID %d not found", *row.JobID)}
		}
	}
	return nil
}
