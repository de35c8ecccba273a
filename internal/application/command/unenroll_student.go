package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// UnenrollStudentCommand removes the acting student from a course.
type UnenrollStudentCommand struct {
	Actor         shared.Actor
	CourseID      int64
	CorrelationID string
}

// Validate validates the command.
func (c UnenrollStudentCommand) Validate() error {
	if err := validateActor("Unenroll", c.Actor); err != nil {
		return err
	}
	if c.CourseID <= 0 {
		return shared.NewDomainError("enrollment", "Unenroll", shared.ErrInvalidInput, "course id must be positive")
	}
	return nil
}

// UnenrollStudentHandler handles the UnenrollStudentCommand.
type UnenrollStudentHandler struct {
	users          enrollment.Directory
	store          enrollment.Store
	eventPublisher shared.EventPublisher
	metrics        *Metrics
}

// NewUnenrollStudentHandler creates a new UnenrollStudentHandler.
func NewUnenrollStudentHandler(
	users enrollment.Directory,
	store enrollment.Store,
	eventPublisher shared.EventPublisher,
	metrics *Metrics,
) *UnenrollStudentHandler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &UnenrollStudentHandler{
		users:          users,
		store:          store,
		eventPublisher: eventPublisher,
		metrics:        metrics,
	}
}

// Handle deletes the enrollment and all of its progress rows.
func (h *UnenrollStudentHandler) Handle(ctx context.Context, cmd UnenrollStudentCommand) error {
	log := logger.FromContext(ctx).With(
		logger.Operation("unenroll"),
		logger.StudentID(cmd.Actor.ID),
		logger.CourseID(cmd.CourseID),
	)
	log.Info("student attempting to unenroll")

	if err := cmd.Validate(); err != nil {
		return err
	}

	student, err := resolveStudent(ctx, h.users, cmd.Actor, "enrollment", "Unenroll", "Only students can unenroll")
	if err != nil {
		log.Warn("unenroll rejected", logger.Err(err))
		return err
	}

	var removed *enrollment.Enrollment
	err = h.store.InTx(ctx, func(tx enrollment.Tx) error {
		e, err := tx.FindEnrollment(ctx, student.ID, cmd.CourseID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.NewRuleViolation("enrollment", "Unenroll", shared.ReasonNotEnrolled,
					"You are not enrolled in this course")
			}
			return fmt.Errorf("unenroll: failed to get enrollment: %w", err)
		}

		if err := tx.DeleteEnrollment(ctx, e.ID); err != nil {
			return fmt.Errorf("unenroll: failed to delete enrollment: %w", err)
		}
		removed = e
		return nil
	})
	if err != nil {
		log.Warn("unenroll rejected", logger.Reason(shared.ReasonOf(err)), logger.Err(err))
		return err
	}

	h.metrics.unenrolled.Add(1)
	log.Info("student unenrolled", logger.EnrollmentID(removed.ID))

	event := shared.NewStudentUnenrolledEvent(removed.ID, student.ID, cmd.CourseID)
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	publishAll(ctx, h.eventPublisher, cmd.CorrelationID, event)
	return nil
}
