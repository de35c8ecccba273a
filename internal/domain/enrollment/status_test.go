package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusNotStarted, StatusInProgress, true},
		{StatusNotStarted, StatusCompleted, true},
		{StatusInProgress, StatusCompleted, true},

		{StatusNotStarted, StatusNotStarted, false},
		{StatusInProgress, StatusInProgress, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusInProgress, StatusNotStarted, false},
		{StatusCompleted, StatusNotStarted, false},
		{StatusCompleted, StatusInProgress, false},

		{Status("PAUSED"), StatusCompleted, false},
		{StatusNotStarted, Status("PAUSED"), false},
		{Status(""), Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusNotStarted.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, Status("UNKNOWN").IsTerminal())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	_, err = ParseStatus("DONE")
	require.Error(t, err)
	assert.True(t, shared.IsInvalidInput(err))
}
