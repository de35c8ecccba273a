package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

type mockTx struct {
	mock.Mock
}

func (m *mockTx) ExistsEnrollment(ctx context.Context, studentID, courseID int64) (bool, error) {
	args := m.Called(ctx, studentID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTx) CountEnrollments(ctx context.Context, courseID int64) (int, error) {
	args := m.Called(ctx, courseID)
	return args.Int(0), args.Error(1)
}

func (m *mockTx) InsertEnrollment(ctx context.Context, e *Enrollment) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockTx) FindEnrollment(ctx context.Context, studentID, courseID int64) (*Enrollment, error) {
	args := m.Called(ctx, studentID, courseID)
	e, _ := args.Get(0).(*Enrollment)
	return e, args.Error(1)
}

func (m *mockTx) DeleteEnrollment(ctx context.Context, enrollmentID int64) error {
	return m.Called(ctx, enrollmentID).Error(0)
}

func (m *mockTx) FindProgress(ctx context.Context, studentID, moduleID int64) (*ModuleProgress, error) {
	args := m.Called(ctx, studentID, moduleID)
	p, _ := args.Get(0).(*ModuleProgress)
	return p, args.Error(1)
}

func (m *mockTx) UpdateProgressStatus(ctx context.Context, progressID int64, status Status) error {
	return m.Called(ctx, progressID, status).Error(0)
}

func (m *mockTx) ListProgress(ctx context.Context, enrollmentID int64) ([]ModuleProgress, error) {
	args := m.Called(ctx, enrollmentID)
	p, _ := args.Get(0).([]ModuleProgress)
	return p, args.Error(1)
}

func (m *mockTx) LockCourse(ctx context.Context, courseID int64) error {
	return m.Called(ctx, courseID).Error(0)
}

type fakeLocker struct {
	acquired int
	released int
	err      error
}

func (l *fakeLocker) Acquire(ctx context.Context, courseID int64) (ReleaseFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

func TestCapacityGuard_Check(t *testing.T) {
	ctx := context.Background()
	course := &Course{ID: 7, Title: "Go", Capacity: 2, Published: true}

	t.Run("free seat", func(t *testing.T) {
		tx := new(mockTx)
		tx.On("CountEnrollments", ctx, int64(7)).Return(1, nil)

		guard, err := NewCapacityGuard(PolicyOptimistic, nil)
		require.NoError(t, err)

		assert.NoError(t, guard.Check(ctx, tx, course))
		tx.AssertNotCalled(t, "LockCourse", mock.Anything, mock.Anything)
	})

	t.Run("full course", func(t *testing.T) {
		tx := new(mockTx)
		tx.On("CountEnrollments", ctx, int64(7)).Return(2, nil)

		guard, err := NewCapacityGuard(PolicyOptimistic, nil)
		require.NoError(t, err)

		err = guard.Check(ctx, tx, course)
		require.Error(t, err)
		assert.True(t, shared.IsRuleViolation(err))
		assert.Equal(t, shared.ReasonCapacityReached, shared.ReasonOf(err))
	})

	t.Run("lock_course locks before counting", func(t *testing.T) {
		tx := new(mockTx)
		var order []string
		tx.On("LockCourse", ctx, int64(7)).Return(nil).Run(func(mock.Arguments) { order = append(order, "lock") })
		tx.On("CountEnrollments", ctx, int64(7)).Return(0, nil).Run(func(mock.Arguments) { order = append(order, "count") })

		guard, err := NewCapacityGuard(PolicyLockCourse, nil)
		require.NoError(t, err)

		assert.NoError(t, guard.Check(ctx, tx, course))
		assert.Equal(t, []string{"lock", "count"}, order)
	})

	t.Run("count failure propagates", func(t *testing.T) {
		boom := errors.New("connection reset")
		tx := new(mockTx)
		tx.On("CountEnrollments", ctx, int64(7)).Return(0, boom)

		guard, err := NewCapacityGuard(PolicyOptimistic, nil)
		require.NoError(t, err)

		err = guard.Check(ctx, tx, course)
		assert.ErrorIs(t, err, boom)
		assert.False(t, shared.IsRuleViolation(err))
	})
}

func TestCapacityGuard_Serialize(t *testing.T) {
	ctx := context.Background()

	t.Run("optimistic runs directly", func(t *testing.T) {
		guard, err := NewCapacityGuard(PolicyOptimistic, nil)
		require.NoError(t, err)

		called := false
		require.NoError(t, guard.Serialize(ctx, 1, func(context.Context) error {
			called = true
			return nil
		}))
		assert.True(t, called)
	})

	t.Run("distributed holds the lock around fn", func(t *testing.T) {
		locker := &fakeLocker{}
		guard, err := NewCapacityGuard(PolicyDistributedLock, locker)
		require.NoError(t, err)

		fnErr := errors.New("rolled back")
		err = guard.Serialize(ctx, 1, func(context.Context) error {
			assert.Equal(t, 1, locker.acquired)
			assert.Equal(t, 0, locker.released)
			return fnErr
		})
		assert.ErrorIs(t, err, fnErr)
		assert.Equal(t, 1, locker.released)
	})

	t.Run("acquire timeout", func(t *testing.T) {
		locker := &fakeLocker{err: shared.ErrTimeout}
		guard, err := NewCapacityGuard(PolicyDistributedLock, locker)
		require.NoError(t, err)

		err = guard.Serialize(ctx, 1, func(context.Context) error {
			t.Fatal("fn must not run without the lock")
			return nil
		})
		assert.ErrorIs(t, err, shared.ErrTimeout)
	})
}

func TestNewCapacityGuard(t *testing.T) {
	_, err := NewCapacityGuard(PolicyDistributedLock, nil)
	assert.ErrorIs(t, err, ErrLockerRequired)

	_, err = NewCapacityGuard(AdmissionPolicy("strict"), nil)
	assert.Error(t, err)

	guard, err := NewCapacityGuard("", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyOptimistic, guard.Policy())
}

func TestParseAdmissionPolicy(t *testing.T) {
	p, err := ParseAdmissionPolicy("LOCK_COURSE")
	require.NoError(t, err)
	assert.Equal(t, PolicyLockCourse, p)

	p, err = ParseAdmissionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyOptimistic, p)

	_, err = ParseAdmissionPolicy("pessimistic")
	assert.Error(t, err)
}

func TestHasSeat(t *testing.T) {
	assert.True(t, HasSeat(0, 1))
	assert.False(t, HasSeat(1, 1))
	assert.False(t, HasSeat(3, 2))
}

func TestNewEnrollment_SeedsNotStarted(t *testing.T) {
	course := &Course{ID: 3, Title: "Databases", Capacity: 10, Published: true}
	modules := []Module{{ID: 11, CourseID: 3}, {ID: 12, CourseID: 3}}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))

	e := NewEnrollment(42, course, modules, now)

	assert.Equal(t, int64(42), e.StudentID)
	assert.Equal(t, int64(3), e.CourseID)
	assert.Equal(t, "Databases", e.CourseTitle)
	assert.Equal(t, time.UTC, e.EnrolledAt.Location())
	require.Len(t, e.Progress, 2)
	for i, p := range e.Progress {
		assert.Equal(t, modules[i].ID, p.ModuleID)
		assert.Equal(t, StatusNotStarted, p.Status)
	}

	empty := NewEnrollment(42, course, nil, now)
	assert.Empty(t, empty.Progress)
}

func TestCourse_Validate(t *testing.T) {
	assert.NoError(t, (&Course{ID: 1, Title: "Go", Capacity: 1}).Validate())
	assert.Error(t, (&Course{ID: 1, Title: "Go", Capacity: 0}).Validate())
	assert.Error(t, (&Course{ID: 1, Capacity: 5}).Validate())
	assert.Error(t, (&Course{Title: "Go", Capacity: 5}).Validate())
}
