package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allStates = []PipelineState{
	StateIdle, StateCapturing, StateExtracting, StateDiscovering,
	StateRecommending, StatePurchasing, StatePurchased,
}

func TestResetReachableFromAnyState(t *testing.T) {
	t.Parallel()

	for _, s := range allStates {
		assert.True(t, s.CanTransition(StateIdle), "reset from %s", s)
	}
}

func TestForwardTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to PipelineState
		want     bool
	}{
		{StateIdle, StateCapturing, true},
		{StateCapturing, StateExtracting, true},
		{StateExtracting, StateDiscovering, true},
		{StateDiscovering, StateRecommending, true},
		{StateRecommending, StatePurchasing, true},
		{StatePurchasing, StatePurchased, true},
		{StatePurchasing, StateRecommending, true}, // buy failure resolves back
		{StateRecommending, StateCapturing, true},  // follow-up utterance
		{StatePurchased, StateCapturing, true},     // place another order

		// Illegal states are unrepresentable: no skipping stages, no
		// going backwards except the documented recovery edges.
		{StateIdle, StateRecommending, false},
		{StateIdle, StatePurchased, false},
		{StateCapturing, StateDiscovering, false},
		{StateExtracting, StatePurchasing, false},
		{StateDiscovering, StatePurchased, false},
		{StatePurchased, StatePurchasing, false},
		{StateRecommending, StateExtracting, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	t.Parallel()

	for _, s := range allStates {
		assert.True(t, s.Valid(), "state %s missing from transition table", s)
	}
	assert.False(t, PipelineState("processing").Valid())
}

func TestInFlightAndStableArePartition(t *testing.T) {
	t.Parallel()

	for _, s := range allStates {
		if s == StateCapturing {
			// Capturing is neither: intake may be abandoned freely.
			assert.False(t, s.InFlight())
			assert.False(t, s.Stable())
			continue
		}
		assert.NotEqual(t, s.InFlight(), s.Stable(), "state %s", s)
	}
}
