package dht

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nyxmesh/dht/transport"
)

// lookupState tracks the shortlist an iterative lookup is converging, and
// which contacts have already been queried — shared across rounds of
// alpha-parallel probes.
type lookupState struct {
	mu        sync.Mutex
	target    NodeID
	shortlist []*Contact
	queried   map[NodeID]bool
	closest   *Contact // closest contact seen so far, for convergence check
}

func newLookupState(target NodeID, seed []*Contact) *lookupState {
	s := &lookupState{target: target, queried: make(map[NodeID]bool)}
	s.shortlist = append(s.shortlist, seed...)
	sortContactsByDistance(s.shortlist, target)
	if len(s.shortlist) > 0 {
		s.closest = s.shortlist[0]
	}
	return s
}

// nextBatch returns up to alpha unqueried contacts from the shortlist,
// closest-first, marking them queried.
func (s *lookupState) nextBatch(alpha int) []*Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	sortContactsByDistance(s.shortlist, s.target)

	var batch []*Contact
	for _, c := range s.shortlist {
		if s.queried[c.ID] {
			continue
		}
		batch = append(batch, c)
		s.queried[c.ID] = true
		if len(batch) == alpha {
			break
		}
	}
	return batch
}

// mergeCandidates folds newly-learned contacts into the shortlist,
// deduplicating by ID and tracking whether the round made progress toward
// target (used for the lookup's convergence check).
func (s *lookupState) mergeCandidates(candidates []*Contact) (progressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[NodeID]bool, len(s.shortlist))
	for _, c := range s.shortlist {
		known[c.ID] = true
	}
	for _, c := range candidates {
		if known[c.ID] {
			continue
		}
		known[c.ID] = true
		s.shortlist = append(s.shortlist, c)
		if s.closest == nil || CompareDistance(c.ID.XOR(s.target), s.closest.ID.XOR(s.target)) {
			s.closest = c
			progressed = true
		}
	}
	return progressed
}

func (s *lookupState) snapshot(k int) []*Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	sortContactsByDistance(s.shortlist, s.target)
	if len(s.shortlist) > k {
		return append([]*Contact(nil), s.shortlist[:k]...)
	}
	return append([]*Contact(nil), s.shortlist...)
}

func sortContactsByDistance(contacts []*Contact, target NodeID) {
	for i := 1; i < len(contacts); i++ {
		for j := i; j > 0; j-- {
			if CompareDistance(contacts[j].ID.XOR(target), contacts[j-1].ID.XOR(target)) {
				contacts[j], contacts[j-1] = contacts[j-1], contacts[j]
			} else {
				break
			}
		}
	}
}

// FindNode performs an iterative alpha-parallel lookup for target, per
// spec.md §4.3: each round queries up to Config.Alpha unqueried contacts
// from the current shortlist concurrently, merges their answers in, and
// repeats until a round makes no further progress. Generalizes the
// teacher's bootstrap worker-fanout (launchBootstrapWorkers/
// connectToBootstrapNode in dht/bootstrap.go), which fans a WaitGroup out
// over a fixed node list, into a converging multi-round search using
// golang.org/x/sync/errgroup per round.
func (rt *RoutingTable) FindNode(ctx context.Context, target NodeID) (*LookupResult, error) {
	release, err := rt.acquireLookupSlot("dht.FindNode")
	if err != nil {
		return nil, err
	}
	defer release()

	start := rt.clock.Now()
	var queriesIssued int64

	seed := rt.table.ClosestContacts(target, rt.cfg.K)
	if len(seed) == 0 {
		return &LookupResult{Duration: rt.clock.Since(start)}, nil
	}
	state := newLookupState(target, seed)

	for {
		batch := state.nextBatch(rt.cfg.Alpha)
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		var roundCandidates []*Contact
		var mu sync.Mutex

		for _, c := range batch {
			c := c
			g.Go(func() error {
				atomic.AddInt64(&queriesIssued, 1)
				resp, err := rt.sendRPC(gctx, c, &transport.Message{Type: transport.FindNode, Target: [20]byte(target)})
				if err != nil {
					return nil // a dead contact doesn't abort the lookup
				}
				rt.considerContact(c)
				mu.Lock()
				for _, tc := range resp.Contacts {
					if NodeID(tc.NodeID) == rt.local {
						continue // never a candidate for our own lookup
					}
					roundCandidates = append(roundCandidates, fromTransportContact(tc))
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if !state.mergeCandidates(roundCandidates) {
			break
		}
	}

	contacts := state.snapshot(rt.cfg.K)
	found := false
	for _, c := range contacts {
		if c.ID == target {
			found = true
			break
		}
	}

	return &LookupResult{
		Contacts:      contacts,
		QueriesIssued: int(atomic.LoadInt64(&queriesIssued)),
		Duration:      rt.clock.Since(start),
		Found:         found,
	}, nil
}

func allQueried(s *lookupState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.shortlist {
		if !s.queried[c.ID] {
			return false
		}
	}
	return true
}

// FindValue performs an iterative lookup for key, short-circuiting the
// moment any queried contact (or the local store) returns the value.
func (rt *RoutingTable) FindValue(ctx context.Context, key NodeID) (*ValueLookupResult, error) {
	if value, ok := rt.store.Get(key); ok {
		return &ValueLookupResult{Value: value.Data}, nil
	}

	release, err := rt.acquireLookupSlot("dht.FindValue")
	if err != nil {
		return nil, err
	}
	defer release()

	seed := rt.table.ClosestContacts(key, rt.cfg.K)
	if len(seed) == 0 {
		return nil, newOpError("dht.FindValue", ErrNotFound, nil)
	}
	state := newLookupState(key, seed)

	type found struct {
		value []byte
		from  *Contact
	}
	var result *found
	var resultMu sync.Mutex

	for result == nil {
		batch := state.nextBatch(rt.cfg.Alpha)
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		var roundCandidates []*Contact
		var mu sync.Mutex

		for _, c := range batch {
			c := c
			g.Go(func() error {
				resp, err := rt.sendRPC(gctx, c, &transport.Message{Type: transport.FindValue, Key: [20]byte(key)})
				if err != nil {
					return nil
				}
				rt.considerContact(c)
				if resp.Type == transport.FindValueResult {
					resultMu.Lock()
					if result == nil {
						result = &found{value: resp.Value.Data, from: c}
					}
					resultMu.Unlock()
					return nil
				}
				mu.Lock()
				for _, tc := range resp.Contacts {
					if NodeID(tc.NodeID) == rt.local {
						continue
					}
					roundCandidates = append(roundCandidates, fromTransportContact(tc))
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if result != nil {
			break
		}
		if !state.mergeCandidates(roundCandidates) && allQueried(state) {
			break
		}
	}

	if result == nil {
		return nil, newOpError("dht.FindValue", ErrNotFound, nil)
	}

	out := &ValueLookupResult{Value: result.value, FoundAt: result.from, Contacts: state.snapshot(rt.cfg.K)}
	if rt.cfg.OpportunisticCaching {
		rt.cacheAtClosestNonHolder(ctx, key, result.value, result.from, state)
	}
	return out, nil
}

// cacheAtClosestNonHolder stores the found value at the closest contact in
// the final shortlist that isn't the one the value was found at, per
// SPEC_FULL.md's resolution of the opportunistic-caching Open Question.
func (rt *RoutingTable) cacheAtClosestNonHolder(ctx context.Context, key NodeID, value []byte, foundAt *Contact, state *lookupState) {
	for _, c := range state.snapshot(rt.cfg.K) {
		if c.ID == foundAt.ID {
			continue
		}
		msg := &transport.Message{
			Type: transport.Store,
			Key:  [20]byte(key),
			Value: transport.StoredValue{
				Data:        value,
				StoredAt:    rt.clock.Now(),
				TTL:         rt.cfg.RepublishInterval,
				PublisherID: [20]byte(rt.local),
			},
		}
		if _, err := rt.sendRPC(ctx, c, msg); err == nil {
			return
		}
	}
}
