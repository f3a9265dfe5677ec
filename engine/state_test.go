package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   State
		name    string
		running bool
	}{
		{Uninitialized, "uninitialized", false},
		{Ready, "ready", true},
		{Capturing, "capturing", true},
		{State(9), "unknown", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.name, tc.state.String())
		assert.Equal(t, tc.running, tc.state.Running(), "%v", tc.state)
	}
}
