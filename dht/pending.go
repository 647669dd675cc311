package dht

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyxmesh/dht/transport"
)

// pendingRPC tracks one in-flight request awaiting a correlated response.
// The table arms no timer of its own: the caller bounds how long it waits
// (sendRPC waits at most Config.PingTimeout) and then calls the cancel
// function from register, which removes the entry; a response arriving
// after that finds no entry and is dropped.
type pendingRPC struct {
	resolve   chan *transport.Message
	sentAt    time.Time
	target    NodeID
	resolved  bool
}

// pendingTable correlates outgoing requests with their eventual responses
// by MessageID, generalizing the request/response bookkeeping the teacher
// leaves implicit in BootstrapManager's per-attempt resultChan
// (dht/bootstrap.go) into an explicit, reusable table the engine shares
// across FindNode/FindValue/Store/Ping.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingRPC
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingRPC)}
}

// newMessageID mints a fresh correlation ID, grounded on the teacher's use
// of github.com/google/uuid elsewhere in the module for unique identifiers.
func newMessageID() string {
	return uuid.NewString()
}

// register arms a new pending entry and returns the channel its eventual
// response will be delivered on; nothing is delivered on timeout. The caller is responsible for
// calling cancel once it stops waiting, to release the table entry.
func (p *pendingTable) register(messageID string, target NodeID, clock Clock) (<-chan *transport.Message, func()) {
	p.mu.Lock()
	entry := &pendingRPC{
		resolve: make(chan *transport.Message, 1),
		sentAt:  clock.Now(),
		target:  target,
	}
	p.entries[messageID] = entry
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.entries, messageID)
		p.mu.Unlock()
	}
	return entry.resolve, cancel
}

// resolve delivers resp to the pending entry matching resp.MessageID, if
// one is still armed. Returns false if no such entry exists (late or
// spurious response).
func (p *pendingTable) resolve(resp *transport.Message) bool {
	p.mu.Lock()
	entry, ok := p.entries[resp.MessageID]
	if ok {
		delete(p.entries, resp.MessageID)
	}
	p.mu.Unlock()
	if !ok || entry.resolved {
		return false
	}
	entry.resolved = true
	entry.resolve <- resp
	return true
}

// Len reports the number of RPCs currently awaiting a response, exposed for
// Stats.
func (p *pendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
