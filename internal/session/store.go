package session

import "context"

// Store persists sessions between turns.
type Store interface {
	// Get returns the session for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put saves the session, refreshing its TTL.
	Put(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, id string) error
}
