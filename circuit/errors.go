package circuit

import "errors"

// Sentinel error kinds, returned by Connect, Disconnect and the
// topological queries wrapped with the cell and socket names involved.
var (
	// ErrUnknownSocket is returned by Connect/Disconnect when a named
	// socket doesn't exist on the given cell.
	ErrUnknownSocket = errors.New("circuit: unknown socket")
	// ErrTypeMismatch is returned by Connect when no converter bridges
	// the source and destination socket types.
	ErrTypeMismatch = errors.New("circuit: incompatible socket types")
	// ErrAlreadyConnected is returned by Connect when the destination
	// socket already has an incoming edge.
	ErrAlreadyConnected = errors.New("circuit: destination already connected")
	// ErrNotConnected is returned by Disconnect when no matching edge
	// exists.
	ErrNotConnected = errors.New("circuit: edge not found")
	// ErrCycleDetected is returned by ConfigureAll and topological
	// queries when the circuit's edges form a cycle.
	ErrCycleDetected = errors.New("circuit: cycle detected")
)
