// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST MODULE PROGRESS QUERY
// Returns every module of a course the acting student is enrolled in, together
// with the student's status for it.
// ══════════════════════════════════════════════════════════════════════════════

// ListModuleProgressQuery contains the query parameters.
type ListModuleProgressQuery struct {
	Actor    shared.Actor
	CourseID int64
}

// Validate checks the query parameters.
func (q ListModuleProgressQuery) Validate() error {
	if q.Actor.ID <= 0 {
		return shared.NewDomainError("identity", "ListModuleProgress", shared.ErrUnauthorized, "actor is required")
	}
	if q.CourseID <= 0 {
		return shared.NewDomainError("progress", "ListModuleProgress", shared.ErrInvalidInput, "course id must be positive")
	}
	return nil
}

// ModuleProgressDTO is one row of the student's course view.
type ModuleProgressDTO struct {
	ModuleID    int64  `json:"moduleId"`
	Name        string `json:"name"`
	MaterialURL string `json:"materialUrl"`
	Status      string `json:"status"`
}

// ListModuleProgressHandler handles ListModuleProgressQuery.
type ListModuleProgressHandler struct {
	users   enrollment.Directory
	catalog enrollment.Catalog
	store   enrollment.Store
}

// NewListModuleProgressHandler creates a new handler.
func NewListModuleProgressHandler(users enrollment.Directory, catalog enrollment.Catalog, store enrollment.Store) *ListModuleProgressHandler {
	return &ListModuleProgressHandler{
		users:   users,
		catalog: catalog,
		store:   store,
	}
}

// Handle executes the query. Rows are ordered by module id; a module added
// to the course after admission has no progress row and is not listed.
func (h *ListModuleProgressHandler) Handle(ctx context.Context, q ListModuleProgressQuery) ([]ModuleProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	user, err := h.users.FindUser(ctx, q.Actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list_module_progress: failed to get student: %w", err)
	}
	if !q.Actor.IsStudent() || !user.IsStudent() {
		return nil, shared.NewDomainError("progress", "ListModuleProgress", shared.ErrForbidden,
			"Only students can view module progress")
	}

	course, err := h.catalog.FindCourse(ctx, q.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list_module_progress: failed to get course: %w", err)
	}

	var rows []enrollment.ModuleProgress
	err = h.store.InTx(ctx, func(tx enrollment.Tx) error {
		e, err := tx.FindEnrollment(ctx, user.ID, course.ID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.NewRuleViolation("progress", "ListModuleProgress", shared.ReasonNotEnrolled,
					"You are not enrolled in this course")
			}
			return fmt.Errorf("list_module_progress: failed to get enrollment: %w", err)
		}
		rows, err = tx.ListProgress(ctx, e.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	modules, err := h.catalog.ListModules(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list_module_progress: failed to list modules: %w", err)
	}
	byID := make(map[int64]enrollment.Module, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
	}

	out := make([]ModuleProgressDTO, 0, len(rows))
	for _, r := range rows {
		m, ok := byID[r.ModuleID]
		if !ok {
			continue
		}
		out = append(out, ModuleProgressDTO{
			ModuleID:    m.ID,
			Name:        m.Name,
			MaterialURL: m.MaterialURL,
			Status:      r.Status.String(),
		})
	}
	return out, nil
}
