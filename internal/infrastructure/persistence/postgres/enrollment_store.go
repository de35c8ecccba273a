package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentStore implements enrollment.Store for PostgreSQL.
type EnrollmentStore struct {
	conn *Connection
	opts TxOptions
}

// NewEnrollmentStore creates a new EnrollmentStore.
func NewEnrollmentStore(conn *Connection) *EnrollmentStore {
	return &EnrollmentStore{conn: conn, opts: DefaultTxOptions()}
}

var _ enrollment.Store = (*EnrollmentStore)(nil)

// InTx implements enrollment.Store.
func (s *EnrollmentStore) InTx(ctx context.Context, fn func(tx enrollment.Tx) error) error {
	return s.conn.WithTx(ctx, s.opts, func(tx pgx.Tx) error {
		return fn(&pgTx{q: tx})
	})
}

// pgTx runs every record operation on one pgx transaction.
type pgTx struct {
	q pgx.Tx
}

func (t *pgTx) ExistsEnrollment(ctx context.Context, studentID, courseID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`,
		studentID, courseID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

func (t *pgTx) CountEnrollments(ctx context.Context, courseID int64) (int, error) {
	var count int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`,
		courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func (t *pgTx) InsertEnrollment(ctx context.Context, e *enrollment.Enrollment) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO enrollments (user_id, course_id, enrolled_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.StudentID, e.CourseID, e.EnrolledAt).Scan(&e.ID)
	if err != nil {
		return translateInsertError("failed to insert enrollment", err)
	}

	if len(e.Progress) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range e.Progress {
		batch.Queue(`
			INSERT INTO module_progress (enrollment_id, module_id, status)
			VALUES ($1, $2, $3)
			RETURNING id
		`, e.ID, p.ModuleID, string(p.Status))
	}

	br := t.q.SendBatch(ctx, batch)
	for i := range e.Progress {
		if err := br.QueryRow().Scan(&e.Progress[i].ID); err != nil {
			_ = br.Close()
			return translateInsertError("failed to insert module progress", err)
		}
		e.Progress[i].EnrollmentID = e.ID
	}
	if err := br.Close(); err != nil {
		return translateInsertError("failed to insert module progress", err)
	}
	return nil
}

func (t *pgTx) FindEnrollment(ctx context.Context, studentID, courseID int64) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := t.q.QueryRow(ctx, `
		SELECT e.id, e.user_id, e.course_id, c.title, e.enrolled_at
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1 AND e.course_id = $2
	`, studentID, courseID).Scan(&e.ID, &e.StudentID, &e.CourseID, &e.CourseTitle, &e.EnrolledAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &e, nil
}

func (t *pgTx) DeleteEnrollment(ctx context.Context, enrollmentID int64) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM module_progress WHERE enrollment_id = $1`, enrollmentID); err != nil {
		return fmt.Errorf("failed to delete module progress: %w", err)
	}

	tag, err := t.q.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, enrollmentID)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

// FindProgress locks the row so that two concurrent transitions of the same
// module are applied one after the other.
func (t *pgTx) FindProgress(ctx context.Context, studentID, moduleID int64) (*enrollment.ModuleProgress, error) {
	var (
		p      enrollment.ModuleProgress
		status string
	)
	err := t.q.QueryRow(ctx, `
		SELECT mp.id, mp.enrollment_id, mp.module_id, mp.status
		FROM module_progress mp
		JOIN enrollments e ON e.id = mp.enrollment_id
		WHERE mp.module_id = $1 AND e.user_id = $2
		FOR UPDATE OF mp
	`, moduleID, studentID).Scan(&p.ID, &p.EnrollmentID, &p.ModuleID, &status)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get module progress: %w", err)
	}
	p.Status = enrollment.Status(status)
	return &p, nil
}

func (t *pgTx) UpdateProgressStatus(ctx context.Context, progressID int64, status enrollment.Status) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE module_progress SET status = $2 WHERE id = $1`,
		progressID, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update module progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProgressNotFound
	}
	return nil
}

func (t *pgTx) ListProgress(ctx context.Context, enrollmentID int64) ([]enrollment.ModuleProgress, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, enrollment_id, module_id, status
		FROM module_progress
		WHERE enrollment_id = $1
		ORDER BY module_id
	`, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module progress: %w", err)
	}
	defer rows.Close()

	var out []enrollment.ModuleProgress
	for rows.Next() {
		var (
			p      enrollment.ModuleProgress
			status string
		)
		if err := rows.Scan(&p.ID, &p.EnrollmentID, &p.ModuleID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan module progress: %w", err)
		}
		p.Status = enrollment.Status(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) LockCourse(ctx context.Context, courseID int64) error {
	var id int64
	err := t.q.QueryRow(ctx, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&id)
	if err != nil {
		if IsNoRows(err) {
			return shared.ErrCourseNotFound
		}
		return fmt.Errorf("failed to lock course: %w", err)
	}
	return nil
}

// translateInsertError maps unique violations onto the domain's constraint
// conflict and wraps everything else.
func translateInsertError(msg string, err error) error {
	if IsUniqueViolation(err) {
		return shared.WrapError("enrollment", "Insert", shared.ErrConstraintConflict, "enrollment already exists", err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
