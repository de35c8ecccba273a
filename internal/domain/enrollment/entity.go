package enrollment

import (
	"errors"
	"time"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// Course is the catalog view of a course. Read-only for this package.
type Course struct {
	ID           int64
	Title        string
	Capacity     int
	Published    bool
	InstructorID int64
}

// Validate checks the invariants a catalog must uphold.
func (c *Course) Validate() error {
	if c.ID <= 0 {
		return errors.New("course: id must be positive")
	}
	if c.Title == "" {
		return errors.New("course: title is required")
	}
	if c.Capacity <= 0 {
		return errors.New("course: capacity must be positive")
	}
	return nil
}

// Module is a unit of course content.
type Module struct {
	ID          int64
	CourseID    int64
	Name        string
	MaterialURL string
}

// User is what the identity collaborator knows about a person.
type User struct {
	ID    int64
	Name  string
	Email string
	Role  shared.Role
}

// IsStudent reports whether the user holds the STUDENT role.
func (u *User) IsStudent() bool {
	return u.Role == shared.RoleStudent
}

// Enrollment records that a student has been admitted into a course.
type Enrollment struct {
	ID          int64
	StudentID   int64
	CourseID    int64
	CourseTitle string
	EnrolledAt  time.Time

	// Progress holds the rows seeded at admission. Stores fill in the IDs
	// on insert; reads leave it empty unless stated otherwise.
	Progress []ModuleProgress
}

// ModuleProgress is the status of one module within one enrollment.
type ModuleProgress struct {
	ID           int64
	EnrollmentID int64
	ModuleID     int64
	Status       Status
}

// NewEnrollment builds an unsaved enrollment with one NOT_STARTED progress
// row per module of the course.
func NewEnrollment(studentID int64, course *Course, modules []Module, now time.Time) *Enrollment {
	e := &Enrollment{
		StudentID:   studentID,
		CourseID:    course.ID,
		CourseTitle: course.Title,
		EnrolledAt:  now.UTC(),
		Progress:    make([]ModuleProgress, 0, len(modules)),
	}
	for _, m := range modules {
		e.Progress = append(e.Progress, ModuleProgress{
			ModuleID: m.ID,
			Status:   StatusNotStarted,
		})
	}
	return e
}

// ProgressView joins a module with the student's status for it.
type ProgressView struct {
	ModuleID    int64
	Name        string
	MaterialURL string
	Status      Status
}
