// Package bootstrap implements joining a Kademlia overlay from a list of
// seed contacts: probing seeds, looking up the local node's own ID to
// populate nearby buckets, running a handful of coverage lookups against
// random targets to spread routing-table coverage across the address
// space, and reporting progress back to the caller.
//
// Bootstrap is a separate package from dht because it orchestrates a
// dht.RoutingTable from the outside rather than being part of its core
// state, mirroring the teacher project's separation of its
// BootstrapManager (dht/bootstrap.go) into its own concerns — node list,
// attempt/backoff bookkeeping, result aggregation — layered on top of, not
// inside, the routing table it populates.
package bootstrap
