package dht

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Table is the bucket manager: 160 k-buckets indexed by distance from
// local, generalizing the teacher's RoutingTable (dht/routing.go) — which
// conflates bucket management with the Kademlia RPC engine — into the
// narrower role spec.md assigns it: owning bucket storage only. The engine
// in engine.go wraps a Table and adds the RPC/lookup behavior the teacher
// folds directly into RoutingTable.
type Table struct {
	local   NodeID
	buckets [NumBuckets]*KBucket
	mu      sync.RWMutex
}

// NewTable creates a bucket manager for local, with NumBuckets empty
// buckets each sized k.
func NewTable(local NodeID, k int) *Table {
	t := &Table{local: local}
	for i := range t.buckets {
		t.buckets[i] = newKBucket(k)
	}
	return t
}

// bucketFor returns the bucket that should hold id, given its distance from
// local. Self is mapped into the highest-indexed bucket, matching
// BucketIndex's fallback for a zero distance.
func (t *Table) bucketFor(id NodeID) *KBucket {
	idx := BucketIndex(t.local.XOR(id))
	return t.buckets[idx]
}

// AddContact inserts or refreshes a contact. Self-contacts are rejected per
// spec.md's self-exclusion invariant. needsPing is non-nil when c's target
// bucket is full of good contacts; the caller must ping it and evict on
// failure per spec.md §4.2 step 3 (see RoutingTable.considerContact).
func (t *Table) AddContact(c *Contact) (added bool, needsPing *Contact) {
	if c.ID == t.local {
		logrus.WithFields(logrus.Fields{
			"function": "Table.AddContact",
			"id":       c.ID,
		}).Debug("rejected self-contact")
		return false, nil
	}
	t.mu.RLock()
	bucket := t.bucketFor(c.ID)
	t.mu.RUnlock()
	return bucket.Add(c)
}

// RemoveContact deletes id from its bucket, promoting a cached replacement
// if one is waiting.
func (t *Table) RemoveContact(id NodeID) bool {
	t.mu.RLock()
	bucket := t.bucketFor(id)
	t.mu.RUnlock()
	return bucket.Remove(id)
}

// MarkBad flags id's contact as bad, making it eligible for eviction on the
// next Add to its bucket.
func (t *Table) MarkBad(id NodeID) {
	t.mu.RLock()
	bucket := t.bucketFor(id)
	t.mu.RUnlock()
	bucket.MarkBad(id)
}

// Get returns the contact for id, if the table knows it.
func (t *Table) Get(id NodeID) (*Contact, bool) {
	t.mu.RLock()
	bucket := t.bucketFor(id)
	t.mu.RUnlock()
	return bucket.Get(id)
}

// ClosestContacts returns the n contacts closest to target (fewer if the
// table holds fewer), sorted by ascending XOR distance, generalizing the
// teacher's RoutingTable.FindClosestNodes. Collects the contacts of every
// bucket, scanning outward from target's own, then sorts and truncates.
func (t *Table) ClosestContacts(target NodeID, n int) []*Contact {
	t.mu.RLock()
	defer t.mu.RUnlock()

	startIdx := BucketIndex(t.local.XOR(target))
	seen := make([]*Contact, 0, n*2)

	for _, c := range t.buckets[startIdx].Contacts() {
		seen = append(seen, c)
	}
	for offset := 1; offset < NumBuckets; offset++ {
		if startIdx-offset >= 0 {
			seen = append(seen, t.buckets[startIdx-offset].Contacts()...)
		}
		if startIdx+offset < NumBuckets {
			seen = append(seen, t.buckets[startIdx+offset].Contacts()...)
		}
	}

	sort.Slice(seen, func(i, j int) bool {
		return CompareDistance(seen[i].ID.XOR(target), seen[j].ID.XOR(target))
	})
	if len(seen) > n {
		seen = seen[:n]
	}
	return seen
}

// AllContacts returns every contact the table currently holds, across all
// buckets, used by the bootstrap coordinator's discovered-node count.
func (t *Table) AllContacts() []*Contact {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Contact
	for _, b := range t.buckets {
		out = append(out, b.Contacts()...)
	}
	return out
}

// BucketLen returns the occupied-slot count of bucket i, for Stats and
// bucket-refresh scheduling.
func (t *Table) BucketLen(i int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buckets[i].Len()
}

// BucketNeedsRefresh reports whether bucket i hasn't been refreshed within
// interval of now, for the maintenance refresh sweep.
func (t *Table) BucketNeedsRefresh(i int, interval time.Duration, now time.Time) bool {
	t.mu.RLock()
	bucket := t.buckets[i]
	t.mu.RUnlock()
	return bucket.NeedsRefresh(interval, now)
}

// MarkBucketRefreshed records that bucket i's refresh lookup just completed
// successfully.
func (t *Table) MarkBucketRefreshed(i int, now time.Time) {
	t.mu.RLock()
	bucket := t.buckets[i]
	t.mu.RUnlock()
	bucket.MarkRefreshed(now)
}
