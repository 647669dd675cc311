package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmesh/dht/transport"
)

func TestPendingTableResolve(t *testing.T) {
	clock := newFakeClock()
	table := newPendingTable()

	respCh, cancel := table.register("msg-1", repeatID(0x01), clock)
	defer cancel()

	assert.Equal(t, 1, table.Len())

	resp := &transport.Message{MessageID: "msg-1", Type: transport.Pong}
	ok := table.resolve(resp)
	require.True(t, ok)

	got := <-respCh
	assert.Equal(t, resp, got)
	assert.Equal(t, 0, table.Len(), "resolve removes the entry")
}

func TestPendingTableResolveExactlyOnce(t *testing.T) {
	// Invariant from spec.md §3: a response is delivered exactly once,
	// either as a resolved value or as a timeout, never both.
	clock := newFakeClock()
	table := newPendingTable()

	_, cancel := table.register("msg-1", repeatID(0x01), clock)
	defer cancel()

	resp := &transport.Message{MessageID: "msg-1"}
	require.True(t, table.resolve(resp))
	assert.False(t, table.resolve(resp), "a second resolve for the same message is a no-op")
}

func TestPendingTableCancelRemovesEntry(t *testing.T) {
	clock := newFakeClock()
	table := newPendingTable()

	_, cancel := table.register("msg-1", repeatID(0x01), clock)
	cancel()

	assert.Equal(t, 0, table.Len())
	assert.False(t, table.resolve(&transport.Message{MessageID: "msg-1"}), "a late response after cancel is dropped")
}

func TestPendingTableResolveUnknownMessageID(t *testing.T) {
	table := newPendingTable()
	assert.False(t, table.resolve(&transport.Message{MessageID: "never-registered"}))
}
