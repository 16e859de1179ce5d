package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		require.False(t, id.IsEmpty(), "empty ID at iteration %d", i)
		require.False(t, ids[id], "duplicate ID %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, numIDs)
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "test-123", ID("test-123").String())
	assert.True(t, ID("").IsEmpty())
}

func TestParseRunID(t *testing.T) {
	valid := NewRunID()

	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{valid.String(), valid, false},
		{"  " + valid.String() + " ", valid, false},
		{"", "", true},
		{"   ", "", true},
		{"not-a-uuid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRunID(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRunIDFromContext(t *testing.T) {
	id, err := ParseRunID("0190b3c4-6b2e-7c1a-9f00-3d2a1b4c5e6f")
	require.NoError(t, err)

	assert.Equal(t, id, RunIDFrom(WithRunID(context.Background(), id)))

	fresh := RunIDFrom(context.Background())
	assert.False(t, ID(fresh).IsEmpty())
	assert.NotEqual(t, fresh, RunIDFrom(WithRunID(context.Background(), "")))
}
