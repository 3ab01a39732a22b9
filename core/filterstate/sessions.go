package filterstate

import (
	"sync"
	"time"

	"github.com/artpar/erpkit/ports"
)

// Sessions maps session ids to their stores. Stores are created on first
// access and dropped by Sweep once idle longer than the TTL.
type Sessions struct {
	mu      sync.Mutex
	clock   ports.Clock
	ttl     time.Duration
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

// NewSessions creates a session table.
func NewSessions(clock ports.Clock, ttl time.Duration) *Sessions {
	return &Sessions{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]*sessionEntry),
	}
}

// Get returns the store of a session, creating it when missing.
func (s *Sessions) Get(id string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{store: NewStore()}
		s.entries[id] = e
	}
	e.lastSeen = s.clock.Now()
	return e.store
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TTL returns the idle time after which Sweep drops a session.
func (s *Sessions) TTL() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl
}

// SetTTL changes the idle timeout for later sweeps.
func (s *Sessions) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. A zero TTL keeps every session.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.clock.Now().Add(-s.ttl)
	removed := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
