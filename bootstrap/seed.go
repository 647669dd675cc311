package bootstrap

import (
	"github.com/nyxmesh/dht/dht"
	"github.com/nyxmesh/dht/transport"
)

// Seed describes one well-known peer a node can probe in order to join the
// network, per spec.md §4.4's "list of seed descriptors (each: nodeId,
// peerId, endpoints, trusted flag)".
type Seed struct {
	NodeID    dht.NodeID
	PeerID    string
	Endpoints []transport.Endpoint
	Trusted   bool
}

// contact converts a Seed into the dht.Contact the engine's Ping/AddContact
// operations expect.
func (s Seed) contact() *dht.Contact {
	return &dht.Contact{
		ID:        s.NodeID,
		PeerID:    s.PeerID,
		Endpoints: s.Endpoints,
	}
}
