// Package transport defines the wire-level contract between the DHT engine
// and whatever delivers messages to peers — WebRTC data channels, Bluetooth
// LE, a local signaling channel, or a test double. The DHT never touches a
// socket directly; it hands a Message to a Sender and waits for a response
// or a failure.
//
// # Message Types
//
// The message set is a closed, tagged union of nine variants sharing a
// common header (Type, SenderID, MessageID, Timestamp), following the same
// sealed-enum idiom the teacher project uses for its packet types (see
// PacketType in the teacher's transport/packet.go) rather than open
// inheritance or an interface per message kind:
//
//	const (
//	    FindNode MessageType = iota + 1
//	    FindNodeResponse
//	    FindValue
//	    FindValueResult
//	    FindValueNodes
//	    Store
//	    StoreResponse
//	    Ping
//	    Pong
//	)
//
// # Sender
//
// Sender is the single collaborator the DHT requires of its host:
//
//	type Sender interface {
//	    Send(ctx context.Context, to Contact, msg *Message) (*Message, error)
//	}
//
// Implementations own serialization, endpoint selection among a Contact's
// Endpoints, and delivery. The DHT correlates requests to responses purely
// by MessageID; it places no ordering requirement on concurrent Send calls.
//
// # Endpoints
//
// A Contact carries zero or more Endpoints, each tagged with a transport
// kind (WebRTC, Bluetooth, Local, Manual). The DHT treats these as opaque
// routing hints — it never dials them itself.
package transport
