// Package session tracks per-caller pipeline state across turns.
package session

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/voxcart/voxcart/internal/model"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = eris.New("session: not found")

// ErrInvalidTransition is returned when a session is asked to move to a
// state the machine does not allow from its current state.
var ErrInvalidTransition = eris.New("session: invalid state transition")

// Session is the conversational state for one caller. It survives across
// turns so a recommendation made in one request can be purchased in the
// next.
type Session struct {
	ID         string                `json:"id"`
	State      model.PipelineState   `json:"state"`
	Utterance  string                `json:"utterance,omitempty"`
	Intent     model.Intent          `json:"intent,omitempty"`
	Candidates model.CandidateSet    `json:"candidates,omitempty"`
	Products   []model.ProductRecord `json:"products,omitempty"`
	Cart       *model.Cart           `json:"cart,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

// New returns a fresh idle session.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		State:     model.StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the session to the given state, enforcing the pipeline
// state machine.
func (s *Session) Advance(to model.PipelineState) error {
	if !s.State.CanTransition(to) {
		return eris.Wrapf(ErrInvalidTransition, "session %s: %s -> %s", s.ID, s.State, to)
	}
	s.State = to
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Reset returns the session to idle and clears all accumulated turn state.
func (s *Session) Reset() {
	s.State = model.StateIdle
	s.Utterance = ""
	s.Intent = model.Intent{}
	s.Candidates = nil
	s.Products = nil
	s.Cart = nil
	s.UpdatedAt = time.Now().UTC()
}
