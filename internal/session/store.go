// Package session holds the in-memory checkpoint store: the agent's running
// message log, keyed by channel. Nothing here is durable; state lives only
// for the lifetime of the process.
package session

import (
	"sync"
	"time"
)

// Record is a message in the agent's native representation. Role uses the
// agent runtime's own discriminators ("human", "ai", "system"); the retrieval
// tool normalizes these to the canonical message shape before searching.
type Record struct {
	Role      string
	Content   string
	Timestamp time.Time
}

type entry struct {
	records  []Record
	lastSeen time.Time
}

// Store is a process-wide session map with an explicit idle-expiry policy:
// sessions untouched for longer than ttl are removed by Sweep. A ttl of zero
// disables eviction and entries live for the whole process.
type Store struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*entry
	now      func() time.Time
}

// NewStore creates an empty session store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Exists reports whether the session already has accumulated state. The
// context assembler uses this to decide whether to run the history loader.
func (s *Store) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[key]
	return ok && len(e.records) > 0
}

// Append adds records to a session, creating it if needed.
func (s *Store) Append(key string, recs ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[key]
	if !ok {
		e = &entry{}
		s.sessions[key] = e
	}
	e.records = append(e.records, recs...)
	e.lastSeen = s.now()
}

// Messages returns a copy of the session's records, oldest first.
func (s *Store) Messages(key string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[key]
	if !ok {
		return nil
	}
	out := make([]Record, len(e.records))
	copy(out, e.records)
	return out
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. No-op when eviction is disabled.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
