package model

// PipelineState is the session-scoped stage of the fulfillment pipeline.
// It is owned exclusively by the pipeline coordinator; no other component
// mutates it.
type PipelineState string

const (
	StateIdle         PipelineState = "idle"
	StateCapturing    PipelineState = "capturing"
	StateExtracting   PipelineState = "extracting"
	StateDiscovering  PipelineState = "discovering"
	StateRecommending PipelineState = "recommending"
	StatePurchasing   PipelineState = "purchasing"
	StatePurchased    PipelineState = "purchased"
)

// transitions is the exhaustive table of legal forward transitions. Idle is
// additionally reachable from every state via reset, handled in CanTransition
// so that the reset edge cannot be forgotten for a new state.
var transitions = map[PipelineState][]PipelineState{
	StateIdle:         {StateCapturing},
	StateCapturing:    {StateExtracting},
	StateExtracting:   {StateDiscovering},
	StateDiscovering:  {StateRecommending},
	StateRecommending: {StatePurchasing, StateCapturing},
	StatePurchasing:   {StatePurchased, StateRecommending},
	StatePurchased:    {StateCapturing},
}

// Valid reports whether s is a known pipeline state.
func (s PipelineState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is legal. Reset to
// Idle is allowed from any state.
func (s PipelineState) CanTransition(next PipelineState) bool {
	if next == StateIdle {
		return s.Valid()
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// InFlight reports whether the session is past extraction intake and has not
// yet settled back to a stable stage. A new turn must not start while the
// previous one is in flight.
func (s PipelineState) InFlight() bool {
	switch s {
	case StateExtracting, StateDiscovering, StatePurchasing:
		return true
	default:
		return false
	}
}

// Stable reports whether the state is one the pipeline may rest in between
// turns. Failures always resolve to a stable state.
func (s PipelineState) Stable() bool {
	switch s {
	case StateIdle, StateRecommending, StatePurchased:
		return true
	default:
		return false
	}
}
