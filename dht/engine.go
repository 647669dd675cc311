package dht

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nyxmesh/dht/transport"
)

// LookupResult is the outcome of a FindNode call: the k closest contacts the
// iterative lookup converged on, plus the query accounting spec.md §4.3 step
// 5 requires — how many RPCs the lookup issued, how long it took, and
// whether target itself was among the returned contacts.
type LookupResult struct {
	Contacts      []*Contact
	QueriesIssued int
	Duration      time.Duration
	Found         bool
}

// ValueLookupResult is the outcome of a FindValue call.
type ValueLookupResult struct {
	Value    []byte
	FoundAt  *Contact // who returned the value, nil if found locally only
	Contacts []*Contact
}

// RoutingTable is the Kademlia engine: it owns a Table of k-buckets, a local
// ValueStore, and a pendingTable of in-flight RPCs, and drives FindNode,
// FindValue, Store and Ping against a transport.Sender. Generalizes the
// teacher's RoutingTable (dht/routing.go), which conflates bucket storage
// with RPC handling, by splitting bucket storage out into Table and keeping
// only the RPC/lookup/maintenance behavior here — matching spec.md's
// separate "Bucket Manager" and "Routing Table (Kademlia engine)"
// components.
type RoutingTable struct {
	local  NodeID
	table  *Table
	store  *ValueStore
	sender transport.Sender
	cfg    Config
	clock  Clock

	pending *pendingTable

	mu           sync.Mutex
	inFlight     int
	stopped      bool
	maintainer   *Maintainer
}

// NewRoutingTable constructs the engine for local, sending RPCs through
// sender. Starts no background goroutines; call StartMaintenance to begin
// periodic refresh/republish.
func NewRoutingTable(local NodeID, sender transport.Sender, cfg Config) *RoutingTable {
	rt := &RoutingTable{
		local:   local,
		table:   NewTable(local, cfg.K),
		store:   NewValueStore(defaultClock),
		sender:  sender,
		cfg:     cfg,
		clock:   defaultClock,
		pending: newPendingTable(),
	}
	rt.maintainer = newMaintainer(rt, cfg)
	return rt
}

// StartMaintenance begins periodic bucket refresh and value republish.
func (rt *RoutingTable) StartMaintenance() {
	rt.maintainer.Start()
}

// Stop halts maintenance and marks the engine shut down; further lookups
// fail with ErrShutdown.
func (rt *RoutingTable) Stop() {
	rt.mu.Lock()
	rt.stopped = true
	rt.mu.Unlock()
	rt.maintainer.Stop()
}

// Table exposes the bucket manager, for the bootstrap package and tests.
func (rt *RoutingTable) Table() *Table { return rt.table }

// ValueStore exposes the local value store, for callers outside the engine
// and for tests. Named apart from the Store RPC operation below, which
// additionally dispatches to the network's k closest contacts.
func (rt *RoutingTable) ValueStore() *ValueStore { return rt.store }

// Local returns the engine's own NodeID.
func (rt *RoutingTable) Local() NodeID { return rt.local }

func (rt *RoutingTable) checkShutdown() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped {
		return newOpError("dht.RoutingTable", ErrShutdown, nil)
	}
	return nil
}

// acquireLookupSlot enforces Config.MaxConcurrentLookups, returning
// ErrOverloaded when the engine already has that many lookups in flight.
func (rt *RoutingTable) acquireLookupSlot(op string) (func(), error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped {
		return nil, newOpError(op, ErrShutdown, nil)
	}
	if rt.inFlight >= rt.cfg.MaxConcurrentLookups {
		return nil, newOpError(op, ErrOverloaded, nil)
	}
	rt.inFlight++
	release := func() {
		rt.mu.Lock()
		rt.inFlight--
		rt.mu.Unlock()
	}
	return release, nil
}

// sendRPC sends msg to contact and waits for the correlated response,
// arming a pendingTable entry for Config.PingTimeout. Generalizes the
// request/response round-trip the teacher performs inline in
// connectToBootstrapNode (dht/bootstrap.go) into a reusable primitive every
// RPC kind shares.
func (rt *RoutingTable) sendRPC(ctx context.Context, contact *Contact, msg *transport.Message) (*transport.Message, error) {
	msg.MessageID = newMessageID()
	msg.SenderID = [20]byte(rt.local)
	msg.Timestamp = rt.clock.Now()

	respCh, cancel := rt.pending.register(msg.MessageID, contact.ID, rt.clock)
	defer cancel()

	sendCtx, stop := context.WithTimeout(ctx, rt.cfg.PingTimeout)
	defer stop()

	wire := contact.toTransportContact()
	resp, err := rt.sender.Send(sendCtx, wire, msg)
	if err != nil {
		rt.table.MarkBad(contact.ID)
		logrus.WithFields(logrus.Fields{
			"function": "RoutingTable.sendRPC",
			"type":     msg.Type.String(),
			"target":   contact.ID,
			"error":    err.Error(),
		}).Debug("rpc send failed")
		if sendCtx.Err() != nil {
			return nil, newOpError("dht.sendRPC", ErrTimeout, err)
		}
		return nil, newOpError("dht.sendRPC", ErrTransport, err)
	}

	// A Sender that already blocks until the response arrives (the common
	// case — see transport.Sender's doc comment) hands it back here
	// directly; only a Sender that dispatches asynchronously and answers
	// later through HandleMessage needs the pending-table wait below.
	if resp != nil {
		return resp, nil
	}

	select {
	case r := <-respCh:
		return r, nil
	case <-sendCtx.Done():
		rt.table.MarkBad(contact.ID)
		return nil, newOpError("dht.sendRPC", ErrTimeout, sendCtx.Err())
	}
}

// AddContact inserts c into the routing table, pinging and evicting the
// bucket's least-recently-seen occupant if it's full of good contacts — see
// considerContact. Exposed for the bootstrap package, which can't reach
// considerContact directly.
func (rt *RoutingTable) AddContact(c *Contact) {
	rt.considerContact(c)
}

// considerContact inserts c into the routing table. When c's target bucket
// is already full of good contacts, Table.AddContact signals back its
// least-recently-seen occupant (needsPing); per spec.md §4.2 step 3's
// addContact(c) -> {added, needsPing?} contract, that occupant is pinged in
// the background and evicted — promoting c in its place — only if it fails
// to respond.
func (rt *RoutingTable) considerContact(c *Contact) {
	if c == nil || c.ID == rt.local {
		return
	}
	added, needsPing := rt.table.AddContact(c)
	if added || needsPing == nil {
		return
	}
	go rt.pingAndEvict(*needsPing, *c)
}

// pingAndEvict implements the ping-then-evict half of the eviction-triage
// contract: lru keeps its bucket slot if it answers, otherwise it's removed
// and candidate (still waiting in the replacement cache) is promoted into
// the freed slot.
func (rt *RoutingTable) pingAndEvict(lru Contact, candidate Contact) {
	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.PingTimeout)
	defer cancel()

	if err := rt.Ping(ctx, &lru); err == nil {
		return
	}

	rt.table.RemoveContact(lru.ID)
	rt.table.AddContact(&candidate)
	logrus.WithFields(logrus.Fields{
		"function": "RoutingTable.pingAndEvict",
		"evicted":  lru.ID,
		"promoted": candidate.ID,
	}).Debug("evicted unresponsive bucket occupant")
}

// Ping checks liveness of contact, updating its PingStats/Status on
// completion either way.
func (rt *RoutingTable) Ping(ctx context.Context, contact *Contact) error {
	if err := rt.checkShutdown(); err != nil {
		return err
	}
	msg := &transport.Message{Type: transport.Ping}
	_, err := rt.sendRPC(ctx, contact, msg)
	contact.RecordPingResult(err == nil, rt.clock)
	if err != nil {
		kind := ErrTransport
		if errors.Is(err, ErrTimeout) {
			kind = ErrTimeout
		}
		return newOpError("dht.Ping", kind, err)
	}
	return nil
}

// Store runs FindNode(key) to learn the k closest peers, sends STORE to
// each, and additionally keeps a local copy iff fewer than k peers were
// found or the local node is strictly closer to key than the farthest of
// the k — spec.md §4.3's exact Store semantics. Returns the number of
// accepted stores, including the local copy if any; this count is never an
// error on its own (a store that no peer accepts still returns a nil error,
// with a count of 1 if the local copy was kept and 0 otherwise).
func (rt *RoutingTable) Store(ctx context.Context, key NodeID, value []byte, ttl time.Duration) (int, error) {
	if err := rt.checkShutdown(); err != nil {
		return 0, err
	}

	lookup, err := rt.FindNode(ctx, key)
	if err != nil {
		return 0, err
	}
	closest := lookup.Contacts

	accepted := 0
	for _, c := range closest {
		msg := &transport.Message{
			Type: transport.Store,
			Key:  [20]byte(key),
			Value: transport.StoredValue{
				Data:        value,
				StoredAt:    rt.clock.Now(),
				TTL:         ttl,
				PublisherID: [20]byte(rt.local),
			},
		}
		if _, err := rt.sendRPC(ctx, c, msg); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "RoutingTable.Store",
				"target":   c.ID,
				"error":    err.Error(),
			}).Debug("store rpc failed")
			continue
		}
		accepted++
	}

	if rt.shouldStoreLocally(closest, key) {
		rt.store.Put(key, value, ttl, rt.local)
		accepted++
	}

	return accepted, nil
}

// shouldStoreLocally implements spec.md §4.3's local-copy rule: keep a copy
// when fewer than k peers were found, or when the local node is strictly
// closer to key than the farthest contact in the k closest found.
func (rt *RoutingTable) shouldStoreLocally(closest []*Contact, key NodeID) bool {
	if len(closest) < rt.cfg.K {
		return true
	}
	farthest := closest[len(closest)-1]
	return CompareDistance(rt.local.XOR(key), farthest.ID.XOR(key))
}
