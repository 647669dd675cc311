package dht

import (
	"github.com/sirupsen/logrus"

	"github.com/nyxmesh/dht/transport"
)

// HandleMessage dispatches an inbound message to the matching synchronous
// handler, or resolves it against the pending-RPC table if it's a response
// to a request this engine sent. Safe to call directly from a transport
// dispatcher goroutine — every handler below is non-blocking — matching the
// teacher's handler.go dispatch-by-packet-type idiom.
func (rt *RoutingTable) HandleMessage(from *Contact, msg *transport.Message) *transport.Message {
	rt.learnContact(from)

	switch msg.Type {
	case transport.FindNode:
		return rt.HandleFindNode(from, msg)
	case transport.FindValue:
		return rt.HandleFindValue(from, msg)
	case transport.Store:
		return rt.HandleStore(from, msg)
	case transport.Ping:
		return rt.HandlePing(from, msg)
	case transport.FindNodeResponse, transport.FindValueResult, transport.FindValueNodes,
		transport.StoreResponse, transport.Pong:
		rt.pending.resolve(msg)
		return nil
	default:
		logrus.WithFields(logrus.Fields{
			"function": "RoutingTable.HandleMessage",
			"type":     msg.Type.String(),
		}).Warn("unrecognized message type")
		return nil
	}
}

// learnContact inserts/refreshes the sender's contact info in the table, the
// "every message is a discovery opportunity" behavior spec.md requires of
// the engine. Copies from before touching it — from may be a long-lived
// contact object the caller's transport reuses across concurrent inbound
// messages, and spec.md treats Contacts as value objects precisely so this
// kind of touch never races with a concurrent reader of the caller's copy.
func (rt *RoutingTable) learnContact(from *Contact) {
	if from == nil || from.ID == rt.local {
		return
	}
	c := *from
	c.LastSeen = rt.clock.Now()
	rt.considerContact(&c)
}

// HandleFindNode answers a FIND_NODE request with the k closest contacts to
// msg.Target.
func (rt *RoutingTable) HandleFindNode(from *Contact, msg *transport.Message) *transport.Message {
	closest := rt.table.ClosestContacts(NodeID(msg.Target), rt.cfg.K)
	return &transport.Message{
		Type:      transport.FindNodeResponse,
		MessageID: msg.MessageID,
		Contacts:  toWireContacts(closest),
	}
}

// HandleFindValue answers a FIND_VALUE request: the stored value if this
// node holds it, otherwise the k closest contacts to msg.Key — spec.md's
// short-circuit behavior.
func (rt *RoutingTable) HandleFindValue(from *Contact, msg *transport.Message) *transport.Message {
	if value, ok := rt.store.Get(NodeID(msg.Key)); ok {
		return &transport.Message{
			Type:      transport.FindValueResult,
			MessageID: msg.MessageID,
			Key:       msg.Key,
			Value:     value,
		}
	}
	closest := rt.table.ClosestContacts(NodeID(msg.Key), rt.cfg.K)
	return &transport.Message{
		Type:      transport.FindValueNodes,
		MessageID: msg.MessageID,
		Key:       msg.Key,
		Contacts:  toWireContacts(closest),
	}
}

// HandleStore accepts a STORE request into the local value store.
func (rt *RoutingTable) HandleStore(from *Contact, msg *transport.Message) *transport.Message {
	rt.store.Put(NodeID(msg.Key), msg.Value.Data, msg.Value.TTL, NodeID(msg.Value.PublisherID))
	return &transport.Message{
		Type:      transport.StoreResponse,
		MessageID: msg.MessageID,
		Success:   true,
	}
}

// HandlePing answers a PING with a PONG.
func (rt *RoutingTable) HandlePing(from *Contact, msg *transport.Message) *transport.Message {
	return &transport.Message{Type: transport.Pong, MessageID: msg.MessageID}
}

func toWireContacts(contacts []*Contact) []transport.Contact {
	out := make([]transport.Contact, len(contacts))
	for i, c := range contacts {
		out[i] = c.toTransportContact()
	}
	return out
}
