package dht

import (
	"time"

	"github.com/nyxmesh/dht/transport"
)

// Status is the liveness classification of a Contact, generalizing the
// teacher's NodeStatus (dht/node.go) to this overlay's health-scoring model.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusGood
	StatusQuestionable
	StatusBad
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusQuestionable:
		return "questionable"
	case StatusBad:
		return "bad"
	default:
		return "unknown"
	}
}

// PingStats tracks liveness-probe outcomes for a Contact, carried over
// unchanged from the teacher's dht.PingStats.
type PingStats struct {
	LastPingSent     time.Time
	LastPingReceived time.Time
	PingCount        uint32
	SuccessCount     uint32
	FailureCount     uint32
}

// Contact is a known remote node as tracked by the routing table: the wire
// identity from transport.Contact plus the LRU/health bookkeeping a bucket
// needs. Supplements spec.md's bare Contact{NodeID, PeerID, Endpoints} with
// the teacher's PingStats/GetReliability health-scoring fields, which the
// distillation dropped but which the original dht.Node carries.
type Contact struct {
	ID           NodeID
	PeerID       string
	Endpoints    []transport.Endpoint
	LastSeen     time.Time
	FailureCount int
	RTT          *time.Duration
	Status       Status
	PingStats    PingStats
}

// Reliability returns a 0.0-1.0 liveness score, carried over from the
// teacher's Node.GetReliability.
func (c *Contact) Reliability() float64 {
	if c.PingStats.PingCount == 0 {
		return 0.0
	}
	return float64(c.PingStats.SuccessCount) / float64(c.PingStats.PingCount)
}

// RecordPingResult updates PingStats and Status after a ping attempt,
// generalizing the teacher's Node.UpdateAfterPing.
func (c *Contact) RecordPingResult(success bool, clock Clock) {
	if clock == nil {
		clock = defaultClock
	}
	now := clock.Now()
	c.PingStats.PingCount++
	c.PingStats.LastPingReceived = now
	if success {
		c.PingStats.SuccessCount++
		c.LastSeen = now
		c.FailureCount = 0
		c.Status = StatusGood
	} else {
		c.PingStats.FailureCount++
		c.FailureCount++
		if c.PingStats.FailureCount > c.PingStats.SuccessCount {
			c.Status = StatusBad
		} else {
			c.Status = StatusQuestionable
		}
	}
}

// toTransportContact converts to the wire representation sent in
// FindNodeResponse/FindValueNodes payloads.
func (c *Contact) toTransportContact() transport.Contact {
	return transport.Contact{
		NodeID:       [20]byte(c.ID),
		PeerID:       c.PeerID,
		LastSeen:     c.LastSeen,
		FailureCount: c.FailureCount,
		RTT:          c.RTT,
		Endpoints:    c.Endpoints,
	}
}

// fromTransportContact builds a fresh Contact from a wire Contact learned
// through a lookup response.
func fromTransportContact(tc transport.Contact) *Contact {
	return &Contact{
		ID:           NodeID(tc.NodeID),
		PeerID:       tc.PeerID,
		Endpoints:    tc.Endpoints,
		LastSeen:     tc.LastSeen,
		FailureCount: tc.FailureCount,
		RTT:          tc.RTT,
		Status:       StatusUnknown,
	}
}
