package dht

import "time"

// Config tunes the Kademlia engine. DefaultConfig returns the values spec'd
// for this overlay, matching the teacher's DefaultXConfig constructor
// pattern (see crypto's and the teacher's maintenance package).
type Config struct {
	// K is the bucket capacity and the replication/closest-set width.
	K int
	// Alpha is the lookup concurrency parameter.
	Alpha int
	// PingTimeout bounds how long a pending RPC waits for a response.
	PingTimeout time.Duration
	// RefreshInterval is how often an idle bucket is refreshed with a lookup
	// for a random ID inside its range.
	RefreshInterval time.Duration
	// RepublishInterval is how often expired values are pruned and the
	// values this node published are re-announced to the network.
	RepublishInterval time.Duration
	// MaxConcurrentLookups bounds the number of FindNode/FindValue lookups
	// the engine will run at once; further calls fail with ErrOverloaded.
	MaxConcurrentLookups int
	// BootstrapTimeout is the deadline for each seed ping during bootstrap
	// (used by the bootstrap package; carried here so both packages share one
	// Config).
	BootstrapTimeout time.Duration
	// MinBootstrapNodes is the fewest seeds that must respond in the connect
	// phase for bootstrap to proceed.
	MinBootstrapNodes int
	// ParallelBootstraps bounds concurrent seed probes during bootstrap.
	ParallelBootstraps int
	// OpportunisticCaching enables storing a value at the closest
	// non-holder contact observed during a successful FindValue lookup, per
	// SPEC_FULL.md's resolution of the caching Open Question. Disabled by
	// default: it trades additional Store traffic for faster subsequent
	// lookups, and the spec leaves the tradeoff to the deployer.
	OpportunisticCaching bool
}

// DefaultConfig returns the configuration spec'd for this overlay.
func DefaultConfig() Config {
	return Config{
		K:                    20,
		Alpha:                3,
		PingTimeout:          5000 * time.Millisecond,
		RefreshInterval:      3600000 * time.Millisecond,
		RepublishInterval:    3600000 * time.Millisecond,
		MaxConcurrentLookups: 10,
		BootstrapTimeout:     30000 * time.Millisecond,
		MinBootstrapNodes:    1,
		ParallelBootstraps:   3,
		OpportunisticCaching: false,
	}
}
