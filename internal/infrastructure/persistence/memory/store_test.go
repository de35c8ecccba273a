package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.AddUser(enrollment.User{ID: 1, Name: "Aru", Role: shared.RoleStudent})
	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: 10, Title: "Go", Capacity: 5, Published: true},
		enrollment.Module{ID: 102, Name: "Channels"},
		enrollment.Module{ID: 101, Name: "Basics"},
	))
	return s
}

func enroll(t *testing.T, s *Store, studentID int64) *enrollment.Enrollment {
	t.Helper()
	ctx := context.Background()
	course, err := s.FindCourse(ctx, 10)
	require.NoError(t, err)
	modules, err := s.ListModules(ctx, 10)
	require.NoError(t, err)

	e := enrollment.NewEnrollment(studentID, course, modules, time.Now())
	require.NoError(t, s.InTx(ctx, func(tx enrollment.Tx) error {
		return tx.InsertEnrollment(ctx, e)
	}))
	return e
}

func TestStore_InsertAssignsIDs(t *testing.T) {
	s := seeded(t)
	e := enroll(t, s, 1)

	assert.Equal(t, int64(1), e.ID)
	require.Len(t, e.Progress, 2)
	assert.Equal(t, int64(101), e.Progress[0].ModuleID)
	for _, p := range e.Progress {
		assert.NotZero(t, p.ID)
		assert.Equal(t, e.ID, p.EnrollmentID)
	}
	assert.Equal(t, 1, s.EnrollmentCount(10))
	assert.Equal(t, 2, s.ProgressCount())
}

func TestStore_DuplicateIsConstraintConflict(t *testing.T) {
	s := seeded(t)
	enroll(t, s, 1)

	ctx := context.Background()
	err := s.InTx(ctx, func(tx enrollment.Tx) error {
		return tx.InsertEnrollment(ctx, &enrollment.Enrollment{StudentID: 1, CourseID: 10})
	})
	assert.True(t, shared.IsConstraintConflict(err))
	assert.Equal(t, 1, s.EnrollmentCount(10))
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	boom := errors.New("later step failed")

	err := s.InTx(ctx, func(tx enrollment.Tx) error {
		if err := tx.InsertEnrollment(ctx, &enrollment.Enrollment{StudentID: 1, CourseID: 10,
			Progress: []enrollment.ModuleProgress{{ModuleID: 101, Status: enrollment.StatusNotStarted}}}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.EnrollmentCount(10))
	assert.Equal(t, 0, s.ProgressCount())
}

func TestStore_RollbackOnPanic(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(tx enrollment.Tx) error {
			_ = tx.InsertEnrollment(ctx, &enrollment.Enrollment{StudentID: 1, CourseID: 10})
			panic("boom")
		})
	})
	assert.Equal(t, 0, s.EnrollmentCount(10))

	// The store stays usable after a panic.
	enroll(t, s, 1)
	assert.Equal(t, 1, s.EnrollmentCount(10))
}

func TestStore_DeleteCascadesProgress(t *testing.T) {
	s := seeded(t)
	e := enroll(t, s, 1)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx enrollment.Tx) error {
		return tx.DeleteEnrollment(ctx, e.ID)
	}))
	assert.Equal(t, 0, s.EnrollmentCount(10))
	assert.Equal(t, 0, s.ProgressCount())
}

func TestStore_FindAndUpdateProgress(t *testing.T) {
	s := seeded(t)
	enroll(t, s, 1)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx enrollment.Tx) error {
		p, err := tx.FindProgress(ctx, 1, 102)
		if err != nil {
			return err
		}
		return tx.UpdateProgressStatus(ctx, p.ID, enrollment.StatusInProgress)
	}))

	err := s.InTx(ctx, func(tx enrollment.Tx) error {
		p, err := tx.FindProgress(ctx, 1, 102)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusInProgress, p.Status)

		_, err = tx.FindProgress(ctx, 2, 102)
		assert.ErrorIs(t, err, shared.ErrProgressNotFound)

		e, err := tx.FindEnrollment(ctx, 1, 10)
		require.NoError(t, err)
		rows, err := tx.ListProgress(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(101), rows[0].ModuleID)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_CancelledContextRollsBack(t *testing.T) {
	s := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.InTx(ctx, func(tx enrollment.Tx) error {
		err := tx.InsertEnrollment(ctx, &enrollment.Enrollment{StudentID: 1, CourseID: 10})
		cancel()
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.EnrollmentCount(10))
}

func TestStore_Catalog(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.FindUser(ctx, 99)
	assert.True(t, shared.IsNotFound(err))
	_, err = s.FindCourse(ctx, 99)
	assert.True(t, shared.IsNotFound(err))

	err = s.AddCourse(enrollment.Course{ID: 11, Title: "Go", Capacity: 1})
	assert.Error(t, err, "titles are unique")

	err = s.AddCourse(enrollment.Course{ID: 12, Title: "Rust", Capacity: 0})
	assert.Error(t, err)
}

func TestSeedDemo(t *testing.T) {
	s := NewStore()
	require.NoError(t, SeedDemo(s))
	ctx := context.Background()

	c, err := s.FindCourse(ctx, 100)
	require.NoError(t, err)
	assert.True(t, c.Published)

	mods, err := s.ListModules(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, mods, 3)

	u, err := s.FindUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, shared.RoleInstructor, u.Role)
}
