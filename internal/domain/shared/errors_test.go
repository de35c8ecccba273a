package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_KindMatching(t *testing.T) {
	err := NewRuleViolation("enrollment", "Enroll", ReasonNotPublished, "Course is not published")

	assert.True(t, IsRuleViolation(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, ReasonNotPublished, ReasonOf(err))
	assert.Equal(t, "Course is not published", MessageOf(err))
	assert.Equal(t, "enrollment.Enroll: Course is not published", err.Error())
}

func TestDomainError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrCourseNotFound)

	assert.True(t, IsNotFound(wrapped))
	assert.True(t, errors.Is(wrapped, ErrCourseNotFound))
	assert.Equal(t, "course not found", MessageOf(wrapped))
	assert.Empty(t, ReasonOf(wrapped))
}

func TestWrapError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("unique_violation")
	err := WrapError("enrollment", "Insert", ErrConstraintConflict, "duplicate", cause)

	assert.True(t, IsConstraintConflict(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unique_violation")
}

func TestMessageOf_PlainError(t *testing.T) {
	assert.Equal(t, "boom", MessageOf(errors.New("boom")))
	assert.Empty(t, MessageOf(nil))
}

func TestNewActor(t *testing.T) {
	a, err := NewActor(5, ParseRole(" student "))
	require.NoError(t, err)
	assert.True(t, a.IsStudent())
	assert.Equal(t, "STUDENT#5", a.String())

	_, err = NewActor(0, RoleStudent)
	assert.True(t, IsInvalidInput(err))

	_, err = NewActor(5, Role("GUEST"))
	assert.True(t, IsInvalidInput(err))
}
