package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL STUDENT COMMAND
// Admits the acting student into a course and seeds one progress row per module.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand contains the data to admit a student.
type EnrollStudentCommand struct {
	// Actor is the authenticated caller.
	Actor shared.Actor

	// CourseID is the course to enroll into.
	CourseID int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollStudentCommand) Validate() error {
	if err := validateActor("Enroll", c.Actor); err != nil {
		return err
	}
	if c.CourseID <= 0 {
		return shared.NewDomainError("enrollment", "Enroll", shared.ErrInvalidInput, "course id must be positive")
	}
	return nil
}

// EnrollStudentResult contains the persisted enrollment.
type EnrollStudentResult struct {
	EnrollmentID int64
	CourseID     int64
	CourseTitle  string
	EnrolledAt   time.Time
	ModuleCount  int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentHandler handles the EnrollStudentCommand.
type EnrollStudentHandler struct {
	users          enrollment.Directory
	catalog        enrollment.Catalog
	store          enrollment.Store
	guard          *enrollment.CapacityGuard
	eventPublisher shared.EventPublisher
	metrics        *Metrics
	now            func() time.Time
}

// NewEnrollStudentHandler creates a new EnrollStudentHandler.
// eventPublisher and metrics may be nil.
func NewEnrollStudentHandler(
	users enrollment.Directory,
	catalog enrollment.Catalog,
	store enrollment.Store,
	guard *enrollment.CapacityGuard,
	eventPublisher shared.EventPublisher,
	metrics *Metrics,
) *EnrollStudentHandler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &EnrollStudentHandler{
		users:          users,
		catalog:        catalog,
		store:          store,
		guard:          guard,
		eventPublisher: eventPublisher,
		metrics:        metrics,
		now:            time.Now,
	}
}

// Handle executes the enroll command.
func (h *EnrollStudentHandler) Handle(ctx context.Context, cmd EnrollStudentCommand) (*EnrollStudentResult, error) {
	h.metrics.recordAttempt()

	log := logger.FromContext(ctx).With(
		logger.Operation("enroll"),
		logger.StudentID(cmd.Actor.ID),
		logger.CourseID(cmd.CourseID),
	)
	log.Info("student attempting to enroll")

	result, err := h.enroll(ctx, cmd)
	if err != nil {
		h.metrics.recordRejection(err)
		if shared.IsRuleViolation(err) || shared.IsForbidden(err) || shared.IsNotFound(err) {
			log.Warn("enrollment rejected", logger.Reason(shared.ReasonOf(err)), logger.Err(err))
		} else {
			log.Error("enrollment failed", logger.Err(err))
		}
		return nil, err
	}

	h.metrics.recordAdmitted()
	log.Info("student enrolled",
		logger.EnrollmentID(result.EnrollmentID),
		logger.Int("module_count", result.ModuleCount),
	)

	event := shared.NewStudentEnrolledEvent(result.EnrollmentID, cmd.Actor.ID, result.CourseID, result.ModuleCount)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	publishAll(ctx, h.eventPublisher, cmd.CorrelationID, event)
	return result, nil
}

func (h *EnrollStudentHandler) enroll(ctx context.Context, cmd EnrollStudentCommand) (*EnrollStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	student, err := resolveStudent(ctx, h.users, cmd.Actor, "enrollment", "Enroll", "Only students are allowed to enroll")
	if err != nil {
		return nil, err
	}

	course, err := h.catalog.FindCourse(ctx, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("enroll: failed to get course: %w", err)
	}
	if !course.Published {
		return nil, shared.NewRuleViolation("enrollment", "Enroll", shared.ReasonNotPublished, "Course is not published")
	}

	modules, err := h.catalog.ListModules(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("enroll: failed to list modules: %w", err)
	}

	var record *enrollment.Enrollment
	err = h.guard.Serialize(ctx, course.ID, func(ctx context.Context) error {
		return h.store.InTx(ctx, func(tx enrollment.Tx) error {
			exists, err := tx.ExistsEnrollment(ctx, student.ID, course.ID)
			if err != nil {
				return fmt.Errorf("enroll: failed to check enrollment: %w", err)
			}
			if exists {
				return alreadyEnrolled()
			}

			if err := h.guard.Check(ctx, tx, course); err != nil {
				return err
			}

			record = enrollment.NewEnrollment(student.ID, course, modules, h.now())
			if err := tx.InsertEnrollment(ctx, record); err != nil {
				if shared.IsConstraintConflict(err) {
					return alreadyEnrolled()
				}
				return fmt.Errorf("enroll: failed to save enrollment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &EnrollStudentResult{
		EnrollmentID: record.ID,
		CourseID:     course.ID,
		CourseTitle:  course.Title,
		EnrolledAt:   record.EnrolledAt,
		ModuleCount:  len(record.Progress),
	}, nil
}

func alreadyEnrolled() error {
	return shared.NewRuleViolation("enrollment", "Enroll", shared.ReasonAlreadyEnrolled,
		"You are already enrolled in this course")
}
