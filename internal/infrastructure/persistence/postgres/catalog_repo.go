package postgres

import (
	"context"
	"fmt"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// CatalogRepository reads users, courses and modules. It implements both
// enrollment.Catalog and enrollment.Directory.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

var (
	_ enrollment.Catalog   = (*CatalogRepository)(nil)
	_ enrollment.Directory = (*CatalogRepository)(nil)
)

// FindUser returns a user by id.
func (r *CatalogRepository) FindUser(ctx context.Context, id int64) (*enrollment.User, error) {
	var (
		u    enrollment.User
		role string
	)
	err := r.conn.QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &role)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Role = shared.ParseRole(role)
	return &u, nil
}

// FindCourse returns a course by id.
func (r *CatalogRepository) FindCourse(ctx context.Context, id int64) (*enrollment.Course, error) {
	var (
		c            enrollment.Course
		instructorID *int64
	)
	err := r.conn.QueryRow(ctx,
		`SELECT id, title, capacity, published, instructor_id FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Capacity, &c.Published, &instructorID)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if instructorID != nil {
		c.InstructorID = *instructorID
	}
	return &c, nil
}

// ListModules returns the modules of a course ordered by id.
func (r *CatalogRepository) ListModules(ctx context.Context, courseID int64) ([]enrollment.Module, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, course_id, name, material_url
		FROM modules
		WHERE course_id = $1
		ORDER BY id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var out []enrollment.Module
	for rows.Next() {
		var m enrollment.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Name, &m.MaterialURL); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
