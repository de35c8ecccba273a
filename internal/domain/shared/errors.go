// Package shared contains common domain types, errors, events, and value objects
// used across the enrollment engine.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds, checked with errors.Is().
var (
	// ErrNotFound means a referenced student, user or course does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrForbidden means the actor's role or ownership does not permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrRuleViolation means a named business rule failed. The rule is
	// identified by DomainError.Reason.
	ErrRuleViolation = errors.New("business rule violation")

	// ErrConstraintConflict is a uniqueness violation reported by storage.
	// It is internal: command handlers translate it before returning.
	ErrConstraintConflict = errors.New("constraint conflict")

	// ErrInvalidInput covers malformed commands (zero IDs, unknown status strings).
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means no actor identity accompanied the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout is returned when a blocking acquisition gives up.
	ErrTimeout = errors.New("operation timeout")
)

// Stable rule-violation reasons. Callers switch on these, never on Message.
const (
	ReasonNotPublished        = "not published"
	ReasonAlreadyEnrolled     = "already enrolled"
	ReasonCapacityReached     = "capacity reached"
	ReasonNotEnrolled         = "not enrolled"
	ReasonNotEnrolledInModule = "not enrolled in this module"
	ReasonInvalidTransition   = "invalid status transition"
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "enrollment", "progress"
	Op      string // operation that failed, e.g. "Enroll"
	Kind    error  // base error kind for errors.Is()
	Reason  string // stable reason for ErrRuleViolation kinds
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against the kind and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewRuleViolation creates an ErrRuleViolation with a stable reason.
func NewRuleViolation(domain, op, reason, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    ErrRuleViolation,
		Reason:  reason,
		Message: message,
	}
}

// Lookup errors returned by stores and collaborators.
var (
	ErrUserNotFound       = NewDomainError("identity", "FindUser", ErrNotFound, "user not found")
	ErrCourseNotFound     = NewDomainError("catalog", "FindCourse", ErrNotFound, "course not found")
	ErrEnrollmentNotFound = NewDomainError("enrollment", "FindEnrollment", ErrNotFound, "enrollment not found")
	ErrProgressNotFound   = NewDomainError("progress", "FindProgress", ErrNotFound, "module progress not found")
)

// ErrDuplicateEnrollment is what stores return when the (student, course)
// or (enrollment, module) unique index rejects an insert.
var ErrDuplicateEnrollment = NewDomainError("enrollment", "Insert", ErrConstraintConflict, "enrollment already exists")

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if the error is a "forbidden" error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsRuleViolation checks if the error is a business rule violation.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrRuleViolation)
}

// IsConstraintConflict checks if the error is a storage uniqueness conflict.
func IsConstraintConflict(err error) bool {
	return errors.Is(err, ErrConstraintConflict)
}

// IsInvalidInput checks if the error is a validation error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// ReasonOf returns the rule-violation reason carried by err, or "".
func ReasonOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// MessageOf returns the human-readable message carried by err.
func MessageOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
