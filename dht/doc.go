// Package dht implements a Kademlia-style distributed hash table used for
// peer discovery, value storage, and decentralized routing in a
// cross-platform peer-to-peer messaging overlay.
//
// The DHT is a 160-bit XOR-metric overlay: node identifiers are 20 bytes,
// distance between two identifiers is their bitwise XOR, and routing state
// is organized into 160 k-buckets indexed by the position of the first
// differing bit from the local node's identifier.
//
// # Architecture
//
// Four cooperating pieces, leaves-first:
//
//   - NodeID arithmetic (nodeid.go): pure functions, no state.
//   - KBucket (bucket.go) and Table (table.go): per-bucket LRU contact
//     lists with a bounded replacement cache, and the 160-bucket manager
//     that owns them.
//   - RoutingTable (engine.go, lookup.go, handlers.go): the Kademlia engine
//     — owns the Table plus a local value store and a pending-RPC table,
//     serves incoming RPCs synchronously, and drives iterative lookups and
//     periodic maintenance against a pluggable transport.Sender.
//   - Maintainer (maintenance.go): periodic bucket refresh and value
//     republish.
//
// Bootstrap — joining the network by probing a seed list — lives in the
// sibling bootstrap package, since it orchestrates a RoutingTable rather
// than being part of its core state.
//
// # Example
//
//	rt := dht.NewRoutingTable(localID, sender, dht.DefaultConfig())
//	defer rt.Stop()
//
//	result, err := rt.FindNode(context.Background(), targetID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Contacts)
//
// # Concurrency
//
// RoutingTable is safe for concurrent use; its bucket manager, each
// k-bucket, its value store, and its pending-RPC table are each guarded by
// their own mutex, and the engine's own lookup counter and shutdown flag by
// another. The
// synchronous RPC handlers (HandleFindNode, HandleFindValue, HandleStore,
// HandlePing) never block and are safe to call directly from a transport
// dispatcher goroutine.
//
// # Deterministic testing
//
// Like the teacher project's TimeProvider, every component that reads the
// clock accepts a Clock; SetDefaultClock swaps the package-level default for
// tests that need to control node freshness and maintenance timing.
package dht
