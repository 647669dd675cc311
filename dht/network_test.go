package dht

import (
	"context"
	"errors"
	"sync"

	"github.com/nyxmesh/dht/transport"
)

// testNetwork wires several RoutingTable instances together in-process,
// addressed by PeerID, so tests can exercise full FindNode/FindValue/Store/
// Ping round-trips without a real WebRTC/Bluetooth/local transport — the
// same role the teacher's MockTransport plays for its packet-level tests,
// adapted to this module's request/response Sender contract.
type testNetwork struct {
	mu       sync.Mutex
	nodes    map[string]*RoutingTable
	contacts map[string]*Contact
}

func newTestNetwork() *testNetwork {
	return &testNetwork{
		nodes:    make(map[string]*RoutingTable),
		contacts: make(map[string]*Contact),
	}
}

// join registers rt under peerID and returns the Sender it should be
// constructed with.
func (n *testNetwork) join(peerID string, rt *RoutingTable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[peerID] = rt
	n.contacts[peerID] = &Contact{ID: rt.Local(), PeerID: peerID}
}

func (n *testNetwork) senderFor(peerID string) *testSender {
	return &testSender{net: n, selfPeerID: peerID}
}

// testSender implements transport.Sender by calling straight into the
// target RoutingTable's HandleMessage, synchronously, matching the "Send
// blocks until a response arrives" contract transport.Sender documents.
type testSender struct {
	net        *testNetwork
	selfPeerID string

	mu      sync.Mutex
	unreach map[string]bool // peerIDs that should fail every Send
}

func (s *testSender) blockPeer(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreach == nil {
		s.unreach = make(map[string]bool)
	}
	s.unreach[peerID] = true
}

func (s *testSender) Send(ctx context.Context, to transport.Contact, msg *transport.Message) (*transport.Message, error) {
	s.mu.Lock()
	blocked := s.unreach[to.PeerID]
	s.mu.Unlock()
	if blocked {
		return nil, errors.New("test sender: peer unreachable")
	}

	s.net.mu.Lock()
	target, ok := s.net.nodes[to.PeerID]
	from := s.net.contacts[s.selfPeerID]
	s.net.mu.Unlock()
	if !ok {
		return nil, errors.New("test sender: unknown peer " + to.PeerID)
	}

	resp := target.HandleMessage(from, msg)
	if resp == nil {
		return nil, errors.New("test sender: no response")
	}
	return resp, nil
}

// newNetworkedNode builds a RoutingTable identified by peerID inside net,
// using cfg (zero value is not valid — pass a DefaultConfig()-derived cfg).
func newNetworkedNode(net *testNetwork, peerID string, id NodeID, cfg Config) (*RoutingTable, *testSender) {
	sender := net.senderFor(peerID)
	rt := NewRoutingTable(id, sender, cfg)
	net.join(peerID, rt)
	return rt, sender
}
