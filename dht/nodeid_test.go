package dht

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatID(b byte) NodeID {
	var id NodeID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestGenerate(t *testing.T) {
	// Arrange / Act
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	// Assert
	assert.NotEqual(t, a, b, "two generated ids should not collide")
	assert.False(t, a.IsZero())
}

func TestFromPublicKey(t *testing.T) {
	pk := bytes.Repeat([]byte{0x42}, 32)

	id1 := FromPublicKey(pk)
	id2 := FromPublicKey(pk)

	assert.Equal(t, id1, id2, "hashing the same public key twice must be deterministic")
}

func TestXORSelfInverse(t *testing.T) {
	t.Run("xor(xor(a,b),b) == a for all 20-byte a,b", func(t *testing.T) {
		cases := []struct{ a, b byte }{
			{0x00, 0x00}, {0xFF, 0x00}, {0x01, 0x80}, {0x55, 0xAA}, {0xFF, 0xFF},
		}
		for _, c := range cases {
			a := repeatID(c.a)
			b := repeatID(c.b)
			got := a.XOR(b).XOR(b)
			assert.Equal(t, a, got)
		}
	})
}

func TestCompareDistanceTotalOrder(t *testing.T) {
	low := repeatID(0x01)
	mid := repeatID(0x02)
	high := repeatID(0x03)

	assert.True(t, CompareDistance(low, mid))
	assert.False(t, CompareDistance(mid, low))
	assert.False(t, CompareDistance(low, low), "not strictly less than itself")

	// Transitivity.
	assert.True(t, CompareDistance(low, high))
}

func TestBucketIndex(t *testing.T) {
	local := repeatID(0x00)

	t.Run("identical ids fall back to the last bucket", func(t *testing.T) {
		idx := BucketIndex(local.XOR(local))
		assert.Equal(t, NumBuckets-1, idx, "zero distance falls back to the last bucket")
	})

	t.Run("differs in the top bit of the first byte", func(t *testing.T) {
		other := repeatID(0x00)
		other[0] = 0x80
		idx := BucketIndex(local.XOR(other))
		assert.Equal(t, 0, idx)
	})

	t.Run("differs in the low bit of the last byte", func(t *testing.T) {
		other := repeatID(0x00)
		other[IDLen-1] = 0x01
		idx := BucketIndex(local.XOR(other))
		assert.Equal(t, NumBuckets-1, idx)
	})
}

func TestSortByDistance(t *testing.T) {
	target := repeatID(0x00)
	ids := []NodeID{repeatID(0x05), repeatID(0x01), repeatID(0x03)}

	SortByDistance(ids, target)

	assert.Equal(t, []NodeID{repeatID(0x01), repeatID(0x03), repeatID(0x05)}, ids)
}

func TestGenerateIDInBucket(t *testing.T) {
	local := repeatID(0x00)

	for _, bucket := range []int{0, 1, 7, 8, 63, 100, 159} {
		bucket := bucket
		t.Run("", func(t *testing.T) {
			id, err := GenerateIDInBucket(local, bucket)
			require.NoError(t, err)
			assert.Equal(t, bucket, BucketIndex(local.XOR(id)))
		})
	}

	t.Run("out of range bucket is a programmer error", func(t *testing.T) {
		_, err := GenerateIDInBucket(local, NumBuckets)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProgrammer)
	})
}
