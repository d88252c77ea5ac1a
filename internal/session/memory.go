package session

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// MemoryStore keeps sessions in process memory. It backs single-instance
// deployments and the CLI commands, where Redis would be overkill.
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	entries map[string]memoryEntry
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store. A ttl of zero means
// sessions never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}

	s := entry.session
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[s.ID] = memoryEntry{session: *s, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
