package shared

import (
	"fmt"
	"strings"
)

// Role is the authorization role of a user as supplied by the identity service.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole normalizes a role string. Unknown roles are returned as-is and
// fail IsValid.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of an operation. It is always passed
// explicitly; the engine never reads identity from ambient state.
type Actor struct {
	ID   int64
	Role Role
}

// NewActor creates an Actor with validation.
func NewActor(id int64, role Role) (Actor, error) {
	if id <= 0 {
		return Actor{}, NewDomainError("identity", "NewActor", ErrInvalidInput, "actor id must be positive")
	}
	if !role.IsValid() {
		return Actor{}, NewDomainError("identity", "NewActor", ErrInvalidInput, fmt.Sprintf("unknown role %q", role))
	}
	return Actor{ID: id, Role: role}, nil
}

// IsStudent reports whether the actor claims the STUDENT role.
func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}

// String returns a log-friendly representation.
func (a Actor) String() string {
	return fmt.Sprintf("%s#%d", a.Role, a.ID)
}
