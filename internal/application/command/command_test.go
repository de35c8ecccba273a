package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/persistence/memory"
)

const (
	studentID    int64 = 1
	otherStudent int64 = 2
	instructorID int64 = 3

	goCourse     int64 = 10
	draftCourse  int64 = 11
	tinyCourse   int64 = 12
	emptyCourse  int64 = 13
	missingThing int64 = 999
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(event shared.Event) error {
	return m.Called(event).Error(0)
}

func newFixture(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()

	s.AddUser(enrollment.User{ID: studentID, Name: "Aru", Email: "aru@example.com", Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: otherStudent, Name: "Dana", Email: "dana@example.com", Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: instructorID, Name: "Marat", Email: "marat@example.com", Role: shared.RoleInstructor})

	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: goCourse, Title: "Go in Practice", Capacity: 30, Published: true, InstructorID: instructorID},
		enrollment.Module{ID: 101, Name: "Basics", MaterialURL: "https://cdn.example.com/101.pdf"},
		enrollment.Module{ID: 102, Name: "Concurrency", MaterialURL: "https://cdn.example.com/102.pdf"},
		enrollment.Module{ID: 103, Name: "Testing", MaterialURL: "https://cdn.example.com/103.pdf"},
	))
	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: draftCourse, Title: "Draft", Capacity: 30, Published: false},
	))
	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: tinyCourse, Title: "Seminar", Capacity: 1, Published: true},
		enrollment.Module{ID: 121, Name: "Only module"},
	))
	require.NoError(t, s.AddCourse(
		enrollment.Course{ID: emptyCourse, Title: "Reading list", Capacity: 5, Published: true},
	))
	return s
}

func asStudent(id int64) shared.Actor {
	return shared.Actor{ID: id, Role: shared.RoleStudent}
}

func newGuard(t *testing.T) *enrollment.CapacityGuard {
	t.Helper()
	g, err := enrollment.NewCapacityGuard(enrollment.PolicyOptimistic, nil)
	require.NoError(t, err)
	return g
}

func mustEnroll(t *testing.T, s *memory.Store, actor shared.Actor, courseID int64) *EnrollStudentResult {
	t.Helper()
	h := NewEnrollStudentHandler(s, s, s, newGuard(t), nil, nil)
	res, err := h.Handle(context.Background(), EnrollStudentCommand{Actor: actor, CourseID: courseID})
	require.NoError(t, err)
	return res
}

// blindStore hides existing enrollments from the pre-insert check so the
// insert itself hits the uniqueness constraint, as a concurrent duplicate would.
type blindStore struct {
	inner enrollment.Store
}

func (b blindStore) InTx(ctx context.Context, fn func(tx enrollment.Tx) error) error {
	return b.inner.InTx(ctx, func(tx enrollment.Tx) error {
		return fn(blindTx{Tx: tx})
	})
}

type blindTx struct {
	enrollment.Tx
}

func (blindTx) ExistsEnrollment(context.Context, int64, int64) (bool, error) { return false, nil }
func (blindTx) CountEnrollments(context.Context, int64) (int, error)        { return 0, nil }
