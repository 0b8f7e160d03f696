// Package models defines the persisted domain models for departments, jobs
// and employees, configured to work using GORM as the ORM.
//
// Primary identifiers are supplied by the caller (they come from the source
// system being migrated), never generated by the database.
package models

import (
	"time"
)

// Department is an organizational unit that employees belong to.
type Department struct {
	// ID is the caller-supplied unique identifier.
	ID int `gorm:"primaryKey"`
	// Name is the department's name, unique across all departments.
	Name string `gorm:"column:department;size:150;not null;uniqueIndex"`
	// Employees are the employees assigned to this department.
	Employees []Employee `gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT"`
}

// DepartmentUpdate represents the fields that can be updated for a
// Department. Pointer types are used to allow partial updates.
type DepartmentUpdate struct {
	ID   int
	Name *string
}

// Job is a position title that employees can hold.
type Job struct {
	// ID is the caller-supplied unique identifier.
	ID int `gorm:"primaryKey"`
	// Title is the job's title, unique across all jobs.
	Title string `gorm:"column:job;size:150;not null;uniqueIndex"`
	// Employees are the employees holding this job.
	Employees []Employee `gorm:"foreignKey:JobID;constraint:OnDelete:RESTRICT"`
}

// JobUpdate represents the fields that can be updated for a Job.
type JobUpdate struct {
	ID    int
	Title *string
}

// Employee is a historical employee record. Every field besides the
// identifier is optional; the source data is sparse.
type Employee struct {
	// ID is the caller-supplied unique identifier.
	ID int `gorm:"primaryKey"`
	// Name is the employee's full name.
	Name *string `gorm:"size:150"`
	// HiredAt is the hire timestamp, stored naive in UTC.
	HiredAt *time.Time `gorm:"column:datetime"`
	// DepartmentID references the employee's department, if any.
	DepartmentID *int
	// JobID references the employee's job, if any.
	JobID *int

	Department *Department `gorm:"foreignKey:DepartmentID"`
	Job        *Job        `gorm:"foreignKey:JobID"`
}

// EmployeeUpdate represents the fields that can be updated for an Employee.
type EmployeeUpdate struct {
	ID           int
	Name         *string
	HiredAt      *time.Time
	DepartmentID *int
	JobID        *int
}
