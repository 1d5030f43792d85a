package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

// cleanupInterval bounds how long expired sessions stay in memory.
const cleanupInterval = 5 * time.Minute

// MemoryStore keeps sessions in process memory with a sliding TTL. When a TTL
// is set a background janitor removes expired sessions until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	session Session
	expires time.Time
}

// NewMemoryStore creates a store. A ttl of zero keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	m := &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if ttl > 0 {
		interval := min(ttl, cleanupInterval)
		go m.cleanupExpired(interval)
	}
	return m
}

// Close stops the janitor. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// cleanupExpired periodically removes expired sessions.
func (m *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stop:
			return
		}
	}
}

// removeExpired deletes every expired entry and returns how many it removed.
func (m *MemoryStore) removeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || m.expired(e) {
		delete(m.entries, id)
		return Session{}, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return e.session, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("save session: %w: empty id", models.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s.Updated = m.now().UTC()
	e := memoryEntry{session: s}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[s.ID] = e
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && m.now().After(e.expires)
}
