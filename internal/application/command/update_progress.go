package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROGRESS COMMAND
// Moves one module of the acting student's enrollment forward in its lifecycle.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateProgressCommand contains the requested transition.
type UpdateProgressCommand struct {
	Actor         shared.Actor
	ModuleID      int64
	Status        enrollment.Status
	CorrelationID string
}

// Validate validates the command.
func (c UpdateProgressCommand) Validate() error {
	if err := validateActor("UpdateProgress", c.Actor); err != nil {
		return err
	}
	if c.ModuleID <= 0 {
		return shared.NewDomainError("progress", "UpdateProgress", shared.ErrInvalidInput, "module id must be positive")
	}
	if !c.Status.IsValid() {
		return shared.NewDomainError("progress", "UpdateProgress", shared.ErrInvalidInput,
			fmt.Sprintf("unknown status %q", c.Status))
	}
	return nil
}

// UpdateProgressHandler handles the UpdateProgressCommand.
type UpdateProgressHandler struct {
	users          enrollment.Directory
	store          enrollment.Store
	eventPublisher shared.EventPublisher
	metrics        *Metrics
}

// NewUpdateProgressHandler creates a new UpdateProgressHandler.
func NewUpdateProgressHandler(
	users enrollment.Directory,
	store enrollment.Store,
	eventPublisher shared.EventPublisher,
	metrics *Metrics,
) *UpdateProgressHandler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &UpdateProgressHandler{
		users:          users,
		store:          store,
		eventPublisher: eventPublisher,
		metrics:        metrics,
	}
}

// Handle validates the transition and writes it by progress id.
func (h *UpdateProgressHandler) Handle(ctx context.Context, cmd UpdateProgressCommand) error {
	log := logger.FromContext(ctx).With(
		logger.Operation("update_progress"),
		logger.StudentID(cmd.Actor.ID),
		logger.ModuleID(cmd.ModuleID),
	)

	if err := cmd.Validate(); err != nil {
		return err
	}

	student, err := resolveStudent(ctx, h.users, cmd.Actor, "progress", "UpdateProgress", "Only students can update module progress")
	if err != nil {
		log.Warn("progress update rejected", logger.Err(err))
		return err
	}

	var (
		progressID int64
		previous   enrollment.Status
	)
	err = h.store.InTx(ctx, func(tx enrollment.Tx) error {
		p, err := tx.FindProgress(ctx, student.ID, cmd.ModuleID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.NewRuleViolation("progress", "UpdateProgress", shared.ReasonNotEnrolledInModule,
					"You are not enrolled in this module")
			}
			return fmt.Errorf("update_progress: failed to get progress: %w", err)
		}

		if !enrollment.CanTransition(p.Status, cmd.Status) {
			return shared.NewRuleViolation("progress", "UpdateProgress", shared.ReasonInvalidTransition,
				fmt.Sprintf("Invalid status transition from %s to %s", p.Status, cmd.Status))
		}

		if err := tx.UpdateProgressStatus(ctx, p.ID, cmd.Status); err != nil {
			return fmt.Errorf("update_progress: failed to update status: %w", err)
		}
		progressID, previous = p.ID, p.Status
		return nil
	})
	if err != nil {
		log.Warn("progress update rejected", logger.Reason(shared.ReasonOf(err)), logger.Err(err))
		return err
	}

	h.metrics.progressUpdates.Add(1)
	log.Info("module progress updated", logger.StatusChange(previous.String(), cmd.Status.String()))

	event := shared.NewModuleStatusChangedEvent(progressID, student.ID, cmd.ModuleID, previous.String(), cmd.Status.String())
	event.BaseEvent = event.WithCorrelationID(cmd.CorrelationID)
	publishAll(ctx, h.eventPublisher, cmd.CorrelationID, event)
	return nil
}
