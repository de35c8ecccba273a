// Package memory implements the enrollment ports in process memory.
// It backs the "memory" store driver and the application tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// records is the mutable part of the store. Every unit of work runs on a
// copy which replaces the original only on commit.
type records struct {
	enrollments      map[int64]enrollment.Enrollment
	progress         map[int64]enrollment.ModuleProgress
	nextEnrollmentID int64
	nextProgressID   int64
}

func newRecords() *records {
	return &records{
		enrollments: make(map[int64]enrollment.Enrollment),
		progress:    make(map[int64]enrollment.ModuleProgress),
	}
}

func (r *records) clone() *records {
	c := &records{
		enrollments:      make(map[int64]enrollment.Enrollment, len(r.enrollments)),
		progress:         make(map[int64]enrollment.ModuleProgress, len(r.progress)),
		nextEnrollmentID: r.nextEnrollmentID,
		nextProgressID:   r.nextProgressID,
	}
	for k, v := range r.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range r.progress {
		c.progress[k] = v
	}
	return c
}

// Store is an in-memory enrollment.Store, enrollment.Catalog and
// enrollment.Directory. Units of work are fully serialized.
type Store struct {
	catalogMu sync.RWMutex
	users     map[int64]enrollment.User
	courses   map[int64]enrollment.Course
	modules   map[int64][]enrollment.Module

	txMu sync.Mutex
	data *records
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[int64]enrollment.User),
		courses: make(map[int64]enrollment.Course),
		modules: make(map[int64][]enrollment.Module),
		data:    newRecords(),
	}
}

var (
	_ enrollment.Store     = (*Store)(nil)
	_ enrollment.Catalog   = (*Store)(nil)
	_ enrollment.Directory = (*Store)(nil)
)

// ─────────────────────────────────────────────────────────────────────────────
// Seeding
// ─────────────────────────────────────────────────────────────────────────────

// AddUser registers a user. An existing user with the same id is replaced.
func (s *Store) AddUser(u enrollment.User) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.users[u.ID] = u
}

// AddCourse registers a course with its modules. Titles are unique.
func (s *Store) AddCourse(c enrollment.Course, modules ...enrollment.Module) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	for _, existing := range s.courses {
		if existing.Title == c.Title && existing.ID != c.ID {
			return fmt.Errorf("memory: course title %q already exists", c.Title)
		}
	}

	s.courses[c.ID] = c
	list := make([]enrollment.Module, 0, len(modules))
	for _, m := range modules {
		m.CourseID = c.ID
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	s.modules[c.ID] = list
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Directory / Catalog
// ─────────────────────────────────────────────────────────────────────────────

// FindUser implements enrollment.Directory.
func (s *Store) FindUser(ctx context.Context, id int64) (*enrollment.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

// FindCourse implements enrollment.Catalog.
func (s *Store) FindCourse(ctx context.Context, id int64) (*enrollment.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return &c, nil
}

// ListModules implements enrollment.Catalog.
func (s *Store) ListModules(ctx context.Context, courseID int64) ([]enrollment.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	out := make([]enrollment.Module, len(s.modules[courseID]))
	copy(out, s.modules[courseID])
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Units of work
// ─────────────────────────────────────────────────────────────────────────────

// InTx implements enrollment.Store.
func (s *Store) InTx(ctx context.Context, fn func(tx enrollment.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	working := s.data.clone()
	if err := fn(&memTx{store: s, data: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = working
	return nil
}

// EnrollmentCount returns the committed number of enrollments in a course.
func (s *Store) EnrollmentCount(courseID int64) int {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return countFor(s.data, courseID)
}

// ProgressCount returns the committed number of progress rows.
func (s *Store) ProgressCount() int {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return len(s.data.progress)
}

func countFor(r *records, courseID int64) int {
	n := 0
	for _, e := range r.enrollments {
		if e.CourseID == courseID {
			n++
		}
	}
	return n
}

type memTx struct {
	store *Store
	data  *records
}

func (t *memTx) ExistsEnrollment(ctx context.Context, studentID, courseID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := t.find(studentID, courseID)
	return ok, nil
}

func (t *memTx) CountEnrollments(ctx context.Context, courseID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return countFor(t.data, courseID), nil
}

func (t *memTx) InsertEnrollment(ctx context.Context, e *enrollment.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, dup := t.find(e.StudentID, e.CourseID); dup {
		return fmt.Errorf("memory: insert enrollment (%d, %d): %w", e.StudentID, e.CourseID, shared.ErrDuplicateEnrollment)
	}

	seen := make(map[int64]struct{}, len(e.Progress))
	for _, p := range e.Progress {
		if _, dup := seen[p.ModuleID]; dup {
			return fmt.Errorf("memory: insert progress for module %d: %w", p.ModuleID, shared.ErrDuplicateEnrollment)
		}
		seen[p.ModuleID] = struct{}{}
	}

	t.data.nextEnrollmentID++
	e.ID = t.data.nextEnrollmentID

	stored := *e
	stored.Progress = nil
	t.data.enrollments[e.ID] = stored

	for i := range e.Progress {
		t.data.nextProgressID++
		e.Progress[i].ID = t.data.nextProgressID
		e.Progress[i].EnrollmentID = e.ID
		t.data.progress[e.Progress[i].ID] = e.Progress[i]
	}
	return nil
}

func (t *memTx) FindEnrollment(ctx context.Context, studentID, courseID int64) (*enrollment.Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := t.find(studentID, courseID)
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (t *memTx) DeleteEnrollment(ctx context.Context, enrollmentID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.data.enrollments[enrollmentID]; !ok {
		return shared.ErrEnrollmentNotFound
	}
	for id, p := range t.data.progress {
		if p.EnrollmentID == enrollmentID {
			delete(t.data.progress, id)
		}
	}
	delete(t.data.enrollments, enrollmentID)
	return nil
}

func (t *memTx) FindProgress(ctx context.Context, studentID, moduleID int64) (*enrollment.ModuleProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range t.data.progress {
		if p.ModuleID != moduleID {
			continue
		}
		if e, ok := t.data.enrollments[p.EnrollmentID]; ok && e.StudentID == studentID {
			return &p, nil
		}
	}
	return nil, shared.ErrProgressNotFound
}

func (t *memTx) UpdateProgressStatus(ctx context.Context, progressID int64, status enrollment.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := t.data.progress[progressID]
	if !ok {
		return shared.ErrProgressNotFound
	}
	p.Status = status
	t.data.progress[progressID] = p
	return nil
}

func (t *memTx) ListProgress(ctx context.Context, enrollmentID int64) ([]enrollment.ModuleProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []enrollment.ModuleProgress
	for _, p := range t.data.progress {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

// LockCourse is a no-op beyond an existence check: units of work are
// already serialized.
func (t *memTx) LockCourse(ctx context.Context, courseID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.catalogMu.RLock()
	defer t.store.catalogMu.RUnlock()
	if _, ok := t.store.courses[courseID]; !ok {
		return shared.ErrCourseNotFound
	}
	return nil
}

func (t *memTx) find(studentID, courseID int64) (enrollment.Enrollment, bool) {
	for _, e := range t.data.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, true
		}
	}
	return enrollment.Enrollment{}, false
}
