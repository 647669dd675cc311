package dht

import (
	"sync"
	"time"
)

// KBucket holds up to k Contacts at a given XOR-distance range from the
// local node, plus a bounded replacement cache for contacts seen while the
// bucket was full. Generalizes the teacher's KBucket (dht/routing.go), which
// tracks only a plain node list and replaces bad nodes in place, by adding
// the replacement cache spec.md requires: when the bucket is full of good
// contacts, a newly-seen contact waits in the cache and is promoted the
// moment a bucket slot frees up, rather than being dropped.
//
// contacts/cache store Contact by value, per spec.md's "Contacts are value
// objects — copying is cheap and preferred over sharing" — every accessor
// below hands the caller an independent copy rather than a pointer into this
// bucket's own backing storage, so a caller mutating its copy (e.g. via
// Contact.RecordPingResult) can never race with this bucket's own lock-held
// mutations of the same data.
type KBucket struct {
	mu            sync.Mutex
	contacts      []Contact // front = least recently seen, back = most recently seen
	cache         []Contact // replacement cache, LIFO: newest candidate at the back
	k             int
	lastRefreshed time.Time // zero value: never refreshed, always stale
}

// newKBucket creates an empty bucket with capacity k and a replacement
// cache sized ceil(k/2), per spec.md §4.2.
func newKBucket(k int) *KBucket {
	return &KBucket{
		contacts: make([]Contact, 0, k),
		cache:    make([]Contact, 0, (k+1)/2),
		k:        k,
	}
}

// indexOf returns the position of id in contacts, or -1.
func indexOf(contacts []Contact, id NodeID) int {
	for i, c := range contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Add inserts or refreshes a contact, per spec.md's k-bucket update rule:
//  1. Already present: move to the back (most-recently-seen).
//  2. Room available: append to the back.
//  3. Full but holds a bad contact: evict it, append the new one.
//  4. Full of good contacts: stash in the replacement cache, evicting the
//     oldest cache entry if the cache itself is full, and surface the
//     bucket's least-recently-seen occupant as needsPing — spec.md §4.2 step
//     3's addContact(c) -> {added, needsPing?} contract. The caller is
//     expected to ping needsPing and, only if it fails to respond, evict it
//     and retry Add so the cached candidate gets promoted.
//
// added reports whether contact now occupies a bucket slot (cases 1-3).
// needsPing is non-nil only for case 4.
func (b *KBucket) Add(contact *Contact) (added bool, needsPing *Contact) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := indexOf(b.contacts, contact.ID); i >= 0 {
		b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
		b.contacts = append(b.contacts, *contact)
		return true, nil
	}

	if len(b.contacts) < b.k {
		b.contacts = append(b.contacts, *contact)
		b.removeFromCache(contact.ID)
		return true, nil
	}

	for i, existing := range b.contacts {
		if existing.Status == StatusBad {
			b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
			b.contacts = append(b.contacts, *contact)
			b.removeFromCache(contact.ID)
			return true, nil
		}
	}

	b.addToCache(*contact)
	lru := b.contacts[0]
	return false, &lru
}

// addToCache stashes contact in the replacement cache, evicting the oldest
// entry (front of the LIFO slice) if the cache is already at its ceil(k/2)
// capacity. Re-adding a cached contact moves it to the newest position
// without evicting anything.
func (b *KBucket) addToCache(contact Contact) {
	b.removeFromCache(contact.ID)
	if limit := (b.k + 1) / 2; limit > 0 && len(b.cache) >= limit {
		b.cache = b.cache[1:]
	}
	b.cache = append(b.cache, contact)
}

func (b *KBucket) removeFromCache(id NodeID) {
	if i := indexOf(b.cache, id); i >= 0 {
		b.cache = append(b.cache[:i], b.cache[i+1:]...)
	}
}

// Remove deletes id from the bucket, promoting the most recently seen
// replacement-cache entry into the freed slot, if any.
func (b *KBucket) Remove(id NodeID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := indexOf(b.contacts, id)
	if i < 0 {
		return false
	}
	b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)

	if n := len(b.cache); n > 0 {
		promoted := b.cache[n-1]
		b.cache = b.cache[:n-1]
		b.contacts = append(b.contacts, promoted)
	}
	return true
}

// MarkBad flags id as bad without removing it, so a subsequent Add from a
// fresher contact can evict it per the replacement rule above.
func (b *KBucket) MarkBad(id NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := indexOf(b.contacts, id); i >= 0 {
		b.contacts[i].Status = StatusBad
	}
}

// Contacts returns a snapshot of the bucket's contacts, most recently seen
// last. Each element is an independent copy.
func (b *KBucket) Contacts() []*Contact {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Contact, len(b.contacts))
	for i, c := range b.contacts {
		c := c
		out[i] = &c
	}
	return out
}

// Len returns the number of contacts currently occupying bucket slots.
func (b *KBucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.contacts)
}

// Get returns a copy of the contact with the given id, if present in the
// bucket.
func (b *KBucket) Get(id NodeID) (*Contact, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := indexOf(b.contacts, id); i >= 0 {
		c := b.contacts[i]
		return &c, true
	}
	return nil, false
}

// LeastRecentlySeen returns a copy of the contact at the front of the
// bucket — the candidate a bucket-refresh ping checks before evicting, per
// Kademlia's least-recently-seen eviction policy.
func (b *KBucket) LeastRecentlySeen() (*Contact, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.contacts) == 0 {
		return nil, false
	}
	c := b.contacts[0]
	return &c, true
}

// NeedsRefresh reports whether this bucket hasn't been marked refreshed
// within interval of now, per spec.md §3's lastRefreshed/needsRefresh
// bucket-staleness tracking and §4.3's periodic refresh trigger. A bucket
// that has never been refreshed (the zero time) is always stale.
func (b *KBucket) NeedsRefresh(interval time.Duration, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastRefreshed) >= interval
}

// MarkRefreshed records that a refresh lookup targeting this bucket just
// completed successfully.
func (b *KBucket) MarkRefreshed(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRefreshed = now
}
