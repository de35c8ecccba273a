package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/persistence/memory"
)

func fixture(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddUser(enrollment.User{ID: 1, Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: 2, Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: 3, Role: shared.RoleAdmin})
	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: 10, Title: "Go", Capacity: 10, Published: true},
		enrollment.Module{ID: 102, Name: "Channels", MaterialURL: "https://cdn.example.com/102"},
		enrollment.Module{ID: 101, Name: "Basics", MaterialURL: "https://cdn.example.com/101"},
	))

	ctx := context.Background()
	course, _ := s.FindCourse(ctx, 10)
	modules, _ := s.ListModules(ctx, 10)
	e := enrollment.NewEnrollment(1, course, modules, time.Now())
	require.NoError(t, s.InTx(ctx, func(tx enrollment.Tx) error {
		if err := tx.InsertEnrollment(ctx, e); err != nil {
			return err
		}
		return tx.UpdateProgressStatus(ctx, e.Progress[1].ID, enrollment.StatusCompleted)
	}))
	return s
}

func TestListModuleProgress(t *testing.T) {
	s := fixture(t)
	h := NewListModuleProgressHandler(s, s, s)

	rows, err := h.Handle(context.Background(), ListModuleProgressQuery{
		Actor:    shared.Actor{ID: 1, Role: shared.RoleStudent},
		CourseID: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []ModuleProgressDTO{
		{ModuleID: 101, Name: "Basics", MaterialURL: "https://cdn.example.com/101", Status: "NOT_STARTED"},
		{ModuleID: 102, Name: "Channels", MaterialURL: "https://cdn.example.com/102", Status: "COMPLETED"},
	}, rows)
}

func TestListModuleProgress_Rejections(t *testing.T) {
	s := fixture(t)
	h := NewListModuleProgressHandler(s, s, s)
	ctx := context.Background()

	_, err := h.Handle(ctx, ListModuleProgressQuery{Actor: shared.Actor{ID: 2, Role: shared.RoleStudent}, CourseID: 10})
	assert.True(t, shared.IsRuleViolation(err))
	assert.Equal(t, shared.ReasonNotEnrolled, shared.ReasonOf(err))

	_, err = h.Handle(ctx, ListModuleProgressQuery{Actor: shared.Actor{ID: 3, Role: shared.RoleAdmin}, CourseID: 10})
	assert.True(t, shared.IsForbidden(err))

	_, err = h.Handle(ctx, ListModuleProgressQuery{Actor: shared.Actor{ID: 1, Role: shared.RoleStudent}, CourseID: 99})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, ListModuleProgressQuery{Actor: shared.Actor{ID: 42, Role: shared.RoleStudent}, CourseID: 10})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.Handle(ctx, ListModuleProgressQuery{Actor: shared.Actor{ID: 1, Role: shared.RoleStudent}})
	assert.True(t, shared.IsInvalidInput(err))
}
