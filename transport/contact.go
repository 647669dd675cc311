package transport

import "time"

// EndpointKind identifies the transport a Contact's endpoint is reachable
// over. The DHT treats endpoints as opaque routing hints; only the Sender
// implementation interprets them.
type EndpointKind uint8

const (
	EndpointWebRTC EndpointKind = iota + 1
	EndpointBluetooth
	EndpointLocal
	EndpointManual
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointWebRTC:
		return "webrtc"
	case EndpointBluetooth:
		return "bluetooth"
	case EndpointLocal:
		return "local"
	case EndpointManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Endpoint is one address a Contact may be reachable at, tagged with the
// transport kind it belongs to. Address is opaque to the DHT — its meaning
// is owned entirely by the Sender for the matching Kind.
type Endpoint struct {
	Kind    EndpointKind
	Address string
}

// Contact is a known remote node as seen from the wire/transport layer. It
// mirrors dht.Contact's shape but without the dht package's LRU/health
// bookkeeping fields, matching what actually crosses the network in a
// FindNodeResponse/FindValueNodes payload.
type Contact struct {
	NodeID       [20]byte
	PeerID       string
	LastSeen     time.Time
	FailureCount int
	RTT          *time.Duration
	Endpoints    []Endpoint
}
