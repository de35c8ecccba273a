package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// AdmissionPolicy selects how strictly concurrent admissions into the same
// course are serialized around the capacity check.
type AdmissionPolicy string

const (
	// PolicyOptimistic checks the count inside the unit of work and relies
	// on the uniqueness constraint only for duplicates. Two concurrent
	// admissions into the last seat may both succeed.
	PolicyOptimistic AdmissionPolicy = "optimistic"

	// PolicyLockCourse locks the course row before counting, so the check
	// and the insert are serialized per course within one database.
	PolicyLockCourse AdmissionPolicy = "lock_course"

	// PolicyDistributedLock holds an external lock keyed by course id for
	// the whole unit of work.
	PolicyDistributedLock AdmissionPolicy = "distributed_lock"
)

// ParseAdmissionPolicy converts a configuration value into a policy.
// The empty string selects PolicyOptimistic.
func ParseAdmissionPolicy(s string) (AdmissionPolicy, error) {
	p := AdmissionPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PolicyOptimistic, nil
	case PolicyOptimistic, PolicyLockCourse, PolicyDistributedLock:
		return p, nil
	}
	return "", fmt.Errorf("enrollment: unknown admission policy %q", s)
}

// ReleaseFunc gives back a lock obtained from an AdmissionLocker.
type ReleaseFunc func(ctx context.Context) error

// AdmissionLocker serializes admissions into one course across processes.
type AdmissionLocker interface {
	// Acquire blocks until the lock for courseID is held, the context ends
	// or the locker gives up with shared.ErrTimeout.
	Acquire(ctx context.Context, courseID int64) (ReleaseFunc, error)
}

// ErrLockerRequired is returned by NewCapacityGuard when the distributed
// policy is selected without a locker.
var ErrLockerRequired = errors.New("enrollment: distributed_lock policy requires an admission locker")

// CapacityGuard rejects an admission when the course has no free seat.
type CapacityGuard struct {
	policy AdmissionPolicy
	locker AdmissionLocker
}

// NewCapacityGuard creates a guard for the given policy. locker may be nil
// unless policy is PolicyDistributedLock.
func NewCapacityGuard(policy AdmissionPolicy, locker AdmissionLocker) (*CapacityGuard, error) {
	if policy == "" {
		policy = PolicyOptimistic
	}
	if _, err := ParseAdmissionPolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == PolicyDistributedLock && locker == nil {
		return nil, ErrLockerRequired
	}
	return &CapacityGuard{policy: policy, locker: locker}, nil
}

// Policy returns the configured policy.
func (g *CapacityGuard) Policy() AdmissionPolicy {
	return g.policy
}

// Serialize runs fn while holding the distributed lock for the course when
// the policy calls for it, and runs it directly otherwise.
func (g *CapacityGuard) Serialize(ctx context.Context, courseID int64, fn func(ctx context.Context) error) error {
	if g.policy != PolicyDistributedLock {
		return fn(ctx)
	}

	release, err := g.locker.Acquire(ctx, courseID)
	if err != nil {
		return fmt.Errorf("enrollment: acquire admission lock for course %d: %w", courseID, err)
	}
	// The unit of work has already committed or rolled back by now, so a
	// failed release only shortens the lock's lifetime to its TTL.
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	return fn(ctx)
}

// Check verifies inside tx that the course has a free seat. It must run
// before any write of the admission.
func (g *CapacityGuard) Check(ctx context.Context, tx Tx, course *Course) error {
	if g.policy == PolicyLockCourse {
		if err := tx.LockCourse(ctx, course.ID); err != nil {
			return fmt.Errorf("enrollment: lock course %d: %w", course.ID, err)
		}
	}

	count, err := tx.CountEnrollments(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("enrollment: count enrollments of course %d: %w", course.ID, err)
	}

	if !HasSeat(count, course.Capacity) {
		return shared.NewRuleViolation("enrollment", "Enroll", shared.ReasonCapacityReached,
			"Course capacity has been reached")
	}
	return nil
}

// HasSeat reports whether one more admission fits.
func HasSeat(count, capacity int) bool {
	return count < capacity
}
