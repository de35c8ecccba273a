package memory

import (
	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// SeedDemo loads a small catalog for local runs: three students, one
// instructor, a published course, a draft, and a single-seat seminar.
func SeedDemo(s *Store) error {
	s.AddUser(enrollment.User{ID: 1, Name: "Aru Student", Email: "aru@example.com", Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: 2, Name: "Dana Student", Email: "dana@example.com", Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: 3, Name: "Timur Student", Email: "timur@example.com", Role: shared.RoleStudent})
	s.AddUser(enrollment.User{ID: 10, Name: "Marat Instructor", Email: "marat@example.com", Role: shared.RoleInstructor})
	s.AddUser(enrollment.User{ID: 20, Name: "Admin", Email: "admin@example.com", Role: shared.RoleAdmin})

	if err := s.AddCourse(
		enrollment.Course{ID: 100, Title: "Backend Engineering with Go", Capacity: 30, Published: true, InstructorID: 10},
		enrollment.Module{ID: 1001, Name: "Language basics", MaterialURL: "https://cdn.example.com/go/1001.pdf"},
		enrollment.Module{ID: 1002, Name: "Concurrency", MaterialURL: "https://cdn.example.com/go/1002.pdf"},
		enrollment.Module{ID: 1003, Name: "Databases", MaterialURL: "https://cdn.example.com/go/1003.pdf"},
	); err != nil {
		return err
	}

	if err := s.AddCourse(
		enrollment.Course{ID: 101, Title: "Distributed Systems (draft)", Capacity: 20, InstructorID: 10},
		enrollment.Module{ID: 1011, Name: "Consensus"},
	); err != nil {
		return err
	}

	return s.AddCourse(
		enrollment.Course{ID: 102, Title: "Code Review Seminar", Capacity: 1, Published: true, InstructorID: 10},
		enrollment.Module{ID: 1021, Name: "Reading diffs", MaterialURL: "https://cdn.example.com/review/1021.pdf"},
	)
}
