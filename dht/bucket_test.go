package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContact(id NodeID) *Contact {
	return &Contact{ID: id, PeerID: "peer-" + string(id[:1])}
}

func TestKBucketLRUBump(t *testing.T) {
	// Scenario 2 from spec.md §8: insert C1 then C2, re-add C1, and the
	// bucket should read [C2, C1] (most-recently-seen last).
	b := newKBucket(20)
	c1 := newTestContact(repeatID(0x01))
	c2 := newTestContact(repeatID(0x02))

	added, _ := b.Add(c1)
	require.True(t, added)
	added, _ = b.Add(c2)
	require.True(t, added)
	added, _ = b.Add(c1)
	require.True(t, added)

	contacts := b.Contacts()
	require.Len(t, contacts, 2)
	assert.Equal(t, c2.ID, contacts[0].ID)
	assert.Equal(t, c1.ID, contacts[1].ID)
}

func TestKBucketEvictionTriage(t *testing.T) {
	// Scenario 3 from spec.md §8, with k=2: C1 then C2 fill the bucket
	// ([C1, C2], least-recent first). A third contact is full-bucket: it
	// must land in the replacement cache, not the bucket, and removing the
	// least-recently-seen contact promotes it.
	b := newKBucket(2)
	c1 := newTestContact(repeatID(0x01))
	c2 := newTestContact(repeatID(0x02))
	c3 := newTestContact(repeatID(0x03))

	added, _ := b.Add(c1)
	require.True(t, added)
	added, _ = b.Add(c2)
	require.True(t, added)

	added, needsPing := b.Add(c3)
	assert.False(t, added, "bucket full of good contacts refuses the new contact")
	require.NotNil(t, needsPing, "a full bucket of good contacts surfaces its LRU occupant as a ping candidate")
	assert.Equal(t, c1.ID, needsPing.ID, "c1 is the least-recently-seen, the caller's ping candidate")
	assert.Len(t, b.Contacts(), 2, "bucket membership is unchanged")

	least, ok := b.LeastRecentlySeen()
	require.True(t, ok)
	assert.Equal(t, c1.ID, least.ID, "c1 is the least-recently-seen, the caller's ping candidate")

	require.True(t, b.Remove(c1.ID))
	contacts := b.Contacts()
	require.Len(t, contacts, 2)
	assert.Equal(t, c2.ID, contacts[0].ID)
	assert.Equal(t, c3.ID, contacts[1].ID, "c3 was promoted from the replacement cache")
}

func TestKBucketReplacementCacheBounded(t *testing.T) {
	k := 2
	b := newKBucket(k)
	cap := (k + 1) / 2

	added, _ := b.Add(newTestContact(repeatID(0x01)))
	require.True(t, added)
	added, _ = b.Add(newTestContact(repeatID(0x02)))
	require.True(t, added)

	// Overflow the cache well past its capacity.
	for i := byte(10); i < 10+byte(cap)+5; i++ {
		b.Add(newTestContact(repeatID(i)))
	}

	assert.LessOrEqual(t, len(b.cache), cap, "replacement cache never exceeds ceil(k/2)")
}

func TestKBucketCacheNeverDuplicatesBucketMember(t *testing.T) {
	b := newKBucket(1)
	c1 := newTestContact(repeatID(0x01))
	c2 := newTestContact(repeatID(0x02))

	added, _ := b.Add(c1)
	require.True(t, added)
	added, _ = b.Add(c2) // bucket full, c2 goes to cache
	require.False(t, added)

	for _, cached := range b.cache {
		assert.NotEqual(t, c1.ID, cached.ID, "cache never holds a contact already present in the bucket")
	}
}

func TestKBucketAddIdempotent(t *testing.T) {
	// addContact is idempotent in externally visible membership (spec.md §8).
	b := newKBucket(20)
	c1 := newTestContact(repeatID(0x01))

	added, _ := b.Add(c1)
	require.True(t, added)
	sizeBefore := b.Len()

	added, _ = b.Add(c1)
	require.True(t, added)
	assert.Equal(t, sizeBefore, b.Len())

	got, ok := b.Get(c1.ID)
	require.True(t, ok)
	assert.Equal(t, c1.ID, got.ID)
}

func TestKBucketMarkBadThenReplaced(t *testing.T) {
	b := newKBucket(2)
	c1 := newTestContact(repeatID(0x01))
	c2 := newTestContact(repeatID(0x02))
	c3 := newTestContact(repeatID(0x03))

	added, _ := b.Add(c1)
	require.True(t, added)
	added, _ = b.Add(c2)
	require.True(t, added)

	b.MarkBad(c1.ID)
	added, _ = b.Add(c3)
	require.True(t, added, "a full bucket with a bad contact admits the new one")

	_, stillPresent := b.Get(c1.ID)
	assert.False(t, stillPresent, "the bad contact was evicted")
}
