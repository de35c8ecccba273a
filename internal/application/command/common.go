// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// resolveStudent loads the acting user and checks that both the claimed
// role and the stored role are STUDENT. NotFound is reported before Forbidden.
func resolveStudent(ctx context.Context, users enrollment.Directory, actor shared.Actor, domain, op, denied string) (*enrollment.User, error) {
	user, err := users.FindUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get student: %w", op, err)
	}
	if !actor.IsStudent() || !user.IsStudent() {
		return nil, shared.NewDomainError(domain, op, shared.ErrForbidden, denied)
	}
	return user, nil
}

// publishAll sends events after the unit of work has committed. Failures are
// logged and never change the outcome of the command.
func publishAll(ctx context.Context, publisher shared.EventPublisher, correlationID string, events ...shared.Event) {
	if publisher == nil {
		return
	}
	log := logger.FromContext(ctx)
	for _, event := range events {
		if err := publisher.Publish(event); err != nil {
			log.Warn("failed to publish event",
				logger.String("event_type", string(event.EventType())),
				logger.CorrelationID(correlationID),
				logger.Err(err),
			)
		}
	}
}

func validateActor(op string, actor shared.Actor) error {
	if actor.ID <= 0 {
		return shared.NewDomainError("identity", op, shared.ErrUnauthorized, "actor is required")
	}
	return nil
}
