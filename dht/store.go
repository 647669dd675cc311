package dht

import (
	"sync"
	"time"

	"github.com/nyxmesh/dht/transport"
)

// storedEntry is a local value-store record: the value plus the bookkeeping
// needed for TTL expiry and republish, generalizing the teacher's
// GroupAnnouncement (dht/group_storage.go) from a group-chat-specific
// payload to the key/value pair spec.md's Store/FindValue RPCs carry.
type storedEntry struct {
	value       transport.StoredValue
	publisherID NodeID
}

// ValueStore holds values this node has accepted via Store RPCs, expiring
// them on TTL, grounded on the teacher's GroupStorage TTL-map pattern.
type ValueStore struct {
	mu      sync.RWMutex
	entries map[NodeID]storedEntry
	clock   Clock
}

// NewValueStore creates an empty store using clock for TTL checks; a nil
// clock falls back to the package default.
func NewValueStore(clock Clock) *ValueStore {
	if clock == nil {
		clock = defaultClock
	}
	return &ValueStore{entries: make(map[NodeID]storedEntry), clock: clock}
}

// Put records value under key, overwriting any existing entry — matching
// spec.md's last-write-wins Store semantics.
func (s *ValueStore) Put(key NodeID, value []byte, ttl time.Duration, publisher NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = storedEntry{
		value: transport.StoredValue{
			Data:        value,
			StoredAt:    s.clock.Now(),
			TTL:         ttl,
			PublisherID: [20]byte(publisher),
		},
		publisherID: publisher,
	}
}

// Get returns the value stored under key, if present and unexpired.
func (s *ValueStore) Get(key NodeID) (transport.StoredValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return transport.StoredValue{}, false
	}
	if s.clock.Now().Sub(entry.value.StoredAt) > entry.value.TTL {
		return transport.StoredValue{}, false
	}
	return entry.value, true
}

// CleanExpired removes every entry whose TTL has elapsed, run periodically
// by Maintainer alongside republish, grounded on the teacher's
// GroupStorage.CleanExpired.
func (s *ValueStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if s.clock.Now().Sub(entry.value.StoredAt) > entry.value.TTL {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Keys returns every key currently held, unexpired or not, for the
// republish sweep to iterate (which re-checks TTL itself).
func (s *ValueStore) Keys() []NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeID, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	return out
}

// Len reports the number of entries currently held.
func (s *ValueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
