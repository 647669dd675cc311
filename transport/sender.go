package transport

import "context"

// Sender is the single collaborator the DHT requires of its host transport.
// Send delivers msg to the given contact and blocks until a response
// arrives or ctx is done. Implementations choose among the contact's
// Endpoints, serialize msg, and correlate the eventual response by
// MessageID themselves or rely on the caller's ctx deadline — the DHT places
// no ordering requirement on concurrent Send calls.
//
// This generalizes the teacher's Transport interface (Send/Close/LocalAddr/
// RegisterHandler, built around fire-and-forget packet delivery plus a
// separately-registered handler for responses) into a single blocking
// request/response call, which is the shape spec.md's RPC sender contract
// asks for ("send(contact, message) -> eventually success|failure").
type Sender interface {
	Send(ctx context.Context, to Contact, msg *Message) (*Message, error)
}
