package dht

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxmesh/dht/transport"
)

func newHandlerTable(local NodeID) *RoutingTable {
	return NewRoutingTable(local, nil, testConfig())
}

func TestHandleFindNodeReturnsClosestContacts(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	for i := byte(1); i <= 5; i++ {
		rt.Table().AddContact(&Contact{ID: repeatID(i), PeerID: "peer"})
	}

	req := &transport.Message{Type: transport.FindNode, MessageID: "m1", Target: [20]byte(repeatID(0x01))}
	resp := rt.HandleFindNode(nil, req)

	require.Equal(t, transport.FindNodeResponse, resp.Type)
	assert.Equal(t, "m1", resp.MessageID)
	assert.NotEmpty(t, resp.Contacts)
}

func TestHandleFindValueHit(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	key := repeatID(0x09)
	rt.ValueStore().Put(key, []byte("payload"), time.Hour, rt.Local())

	req := &transport.Message{Type: transport.FindValue, MessageID: "m2", Key: [20]byte(key)}
	resp := rt.HandleFindValue(nil, req)

	require.Equal(t, transport.FindValueResult, resp.Type)
	assert.Equal(t, []byte("payload"), resp.Value.Data)
}

func TestHandleFindValueMiss(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	rt.Table().AddContact(&Contact{ID: repeatID(0x01), PeerID: "peer"})

	req := &transport.Message{Type: transport.FindValue, MessageID: "m3", Key: [20]byte(repeatID(0x09))}
	resp := rt.HandleFindValue(nil, req)

	require.Equal(t, transport.FindValueNodes, resp.Type)
	assert.NotEmpty(t, resp.Contacts)
}

func TestHandleStoreAcceptsValue(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	key := repeatID(0x09)
	publisher := repeatID(0x02)

	req := &transport.Message{
		Type:      transport.Store,
		MessageID: "m4",
		Key:       [20]byte(key),
		Value: transport.StoredValue{
			Data:        []byte("v"),
			TTL:         time.Hour,
			PublisherID: [20]byte(publisher),
		},
	}
	resp := rt.HandleStore(nil, req)

	require.Equal(t, transport.StoreResponse, resp.Type)
	assert.True(t, resp.Success)

	stored, ok := rt.ValueStore().Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), stored.Data)
}

func TestHandlePingAnswersPong(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	req := &transport.Message{Type: transport.Ping, MessageID: "m5"}

	resp := rt.HandlePing(nil, req)

	require.Equal(t, transport.Pong, resp.Type)
	assert.Equal(t, "m5", resp.MessageID)
}

func TestHandleMessageLearnsContactFromSender(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	sender := &Contact{ID: repeatID(0x05), PeerID: "peer5"}

	req := &transport.Message{Type: transport.Ping, MessageID: "m6"}
	_ = rt.HandleMessage(sender, req)

	_, ok := rt.Table().Get(sender.ID)
	assert.True(t, ok, "HandleMessage should learn the sender as a contact")
}

func TestHandleMessageIgnoresSelfAsContact(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	self := &Contact{ID: rt.Local(), PeerID: "self"}

	req := &transport.Message{Type: transport.Ping, MessageID: "m7"}
	_ = rt.HandleMessage(self, req)

	assert.Empty(t, rt.Table().AllContacts(), "the local node is never added as its own contact")
}

func TestHandleMessageResolvesPendingResponse(t *testing.T) {
	rt := newHandlerTable(repeatID(0x00))
	target := repeatID(0x05)
	respCh, cancel := rt.pending.register("pending1", target, rt.clock)
	defer cancel()

	resp := &transport.Message{Type: transport.Pong, MessageID: "pending1"}
	out := rt.HandleMessage(nil, resp)

	assert.Nil(t, out, "response messages produce no further reply")
	select {
	case r := <-respCh:
		assert.Equal(t, transport.Pong, r.Type)
	default:
		t.Fatal("expected the pending RPC to be resolved")
	}
}
