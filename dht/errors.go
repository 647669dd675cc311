package dht

import "errors"

// Sentinel error kinds the DHT reports through OpError, mirroring the
// teacher's net.ToxNetError sentinel set in net/errors.go.
var (
	// ErrProgrammer indicates misuse of the API (invalid arguments), never a
	// network condition.
	ErrProgrammer = errors.New("dht: programmer error")
	// ErrTransport wraps a failure reported by the host Sender.
	ErrTransport = errors.New("dht: transport error")
	// ErrTimeout indicates an RPC's pending entry expired before a response
	// arrived.
	ErrTimeout = errors.New("dht: rpc timeout")
	// ErrOverloaded indicates a lookup was rejected because
	// Config.MaxConcurrentLookups was already in flight.
	ErrOverloaded = errors.New("dht: too many concurrent lookups")
	// ErrBootstrapInProgress indicates Coordinator.Run was called while a
	// previous run had not yet finished.
	ErrBootstrapInProgress = errors.New("dht: bootstrap already in progress")
	// ErrBootstrapInsufficientSeeds indicates fewer than Config.MinBootstrapNodes
	// seeds answered during the connect phase.
	ErrBootstrapInsufficientSeeds = errors.New("dht: insufficient responsive seeds")
	// ErrShutdown indicates the RoutingTable was stopped.
	ErrShutdown = errors.New("dht: shut down")
	// ErrNotFound indicates a FindValue lookup completed without locating the
	// key.
	ErrNotFound = errors.New("dht: value not found")
)

// OpError annotates a sentinel error with the operation that failed,
// generalizing the teacher's net.ToxNetError{Op, Addr, Err} to the DHT's
// operations instead of network addresses.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil || e.Err == e.Kind {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	if e.Err != nil && e.Err != e.Kind {
		return e.Err
	}
	return e.Kind
}

// Is reports whether target is e's Kind, so errors.Is matches the sentinel
// kind even when Err carries a distinct underlying cause.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}

// newOpError builds an OpError, defaulting Err to kind when no underlying
// cause is available.
func newOpError(op string, kind error, err error) *OpError {
	if err == nil {
		err = kind
	}
	return &OpError{Op: op, Kind: kind, Err: err}
}
