package enrollment

import (
	"context"
)

// Directory resolves users. Implemented by the identity collaborator.
type Directory interface {
	// FindUser returns shared.ErrUserNotFound if no such user exists.
	FindUser(ctx context.Context, id int64) (*User, error)
}

// Catalog reads courses and their modules.
type Catalog interface {
	// FindCourse returns shared.ErrCourseNotFound if no such course exists.
	FindCourse(ctx context.Context, id int64) (*Course, error)

	// ListModules returns the modules of a course ordered by id.
	ListModules(ctx context.Context, courseID int64) ([]Module, error)
}

// Store opens units of work over enrollment and progress records.
type Store interface {
	// InTx runs fn in a single transaction. It commits when fn returns nil
	// and rolls back on error, panic or context cancellation.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of record operations available inside a unit of work.
type Tx interface {
	// ExistsEnrollment reports whether the student is enrolled in the course.
	ExistsEnrollment(ctx context.Context, studentID, courseID int64) (bool, error)

	// CountEnrollments returns the number of enrollments in the course.
	CountEnrollments(ctx context.Context, courseID int64) (int, error)

	// InsertEnrollment stores e and its seeded progress rows, filling in
	// the generated IDs. A uniqueness violation on either table is
	// reported as shared.ErrConstraintConflict.
	InsertEnrollment(ctx context.Context, e *Enrollment) error

	// FindEnrollment returns shared.ErrEnrollmentNotFound when absent.
	FindEnrollment(ctx context.Context, studentID, courseID int64) (*Enrollment, error)

	// DeleteEnrollment removes the enrollment and all of its progress rows.
	DeleteEnrollment(ctx context.Context, enrollmentID int64) error

	// FindProgress returns the progress row of the module for the student
	// through the student's enrollment, or shared.ErrProgressNotFound.
	FindProgress(ctx context.Context, studentID, moduleID int64) (*ModuleProgress, error)

	// UpdateProgressStatus writes the status of a single progress row.
	UpdateProgressStatus(ctx context.Context, progressID int64, status Status) error

	// ListProgress returns the progress rows of an enrollment ordered by module id.
	ListProgress(ctx context.Context, enrollmentID int64) ([]ModuleProgress, error)

	// LockCourse takes a row lock on the course until the unit of work ends.
	LockCourse(ctx context.Context, courseID int64) error
}
