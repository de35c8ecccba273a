package enrollment

import (
	"fmt"
	"strings"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

// Status is the completion state of one module for one enrollment.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// transitions lists the legal successors of every known status.
var transitions = map[Status][]Status{
	StatusNotStarted: {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("progress", "ParseStatus", shared.ErrInvalidInput,
			fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition out of s exists.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether a progress row may move from one status to
// another. Unknown statuses on either side are never legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
