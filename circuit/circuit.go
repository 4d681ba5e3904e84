// Package circuit assembles cells into a directed graph of typed
// edges and drives their configuration in topological order. It does
// not itself run process(); that is the scheduler's job.
package circuit

import (
	"context"
	"fmt"
	"sync"

	"circuitengine/cell"
	"circuitengine/socket"
)

// Edge is one typed connection between an output socket on src and an
// input socket on dst.
type Edge struct {
	Src       *cell.Cell
	SrcSocket string
	Dst       *cell.Cell
	DstSocket string
}

// Circuit owns a set of cells and a set of edges between their
// sockets. Cells may belong to more than one circuit; a Circuit does
// not own them exclusively.
type Circuit struct {
	mu    sync.Mutex
	cells []*cell.Cell
	index map[*cell.Cell]bool
	edges []Edge
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{index: make(map[*cell.Cell]bool)}
}

// Insert adds c to the circuit if it isn't already present. Idempotent.
func (ci *Circuit) Insert(c *cell.Cell) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	if ci.index[c] {
		return
	}
	ci.index[c] = true
	ci.cells = append(ci.cells, c)
}

// Remove drops c from the circuit and disconnects every edge incident
// to it, in either direction.
func (ci *Circuit) Remove(c *cell.Cell) {
	ci.mu.Lock()
	if !ci.index[c] {
		ci.mu.Unlock()
		return
	}
	delete(ci.index, c)
	for i, existing := range ci.cells {
		if existing == c {
			ci.cells = append(ci.cells[:i], ci.cells[i+1:]...)
			break
		}
	}
	var kept []Edge
	var removed []Edge
	for _, e := range ci.edges {
		if e.Src == c || e.Dst == c {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	ci.edges = kept
	ci.mu.Unlock()

	for _, e := range removed {
		if dst, err := e.Dst.Inputs.Get(e.DstSocket); err == nil {
			dst.SetGraphSupplied(false)
			socket.NotifyDisconnected(dst)
		}
	}
}

// Cells returns the circuit's cells in insertion order.
func (ci *Circuit) Cells() []*cell.Cell {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	out := make([]*cell.Cell, len(ci.cells))
	copy(out, ci.cells)
	return out
}

// Edges returns the circuit's edges in connection order.
func (ci *Circuit) Edges() []Edge {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	out := make([]Edge, len(ci.edges))
	copy(out, ci.edges)
	return out
}

// Connect wires src's srcSocket output to dst's dstSocket input. Both
// sockets must exist, their types must be compatible under the
// conversion table, and dst must not already have an incoming edge.
// On success dst is marked graph-supplied, inherits src's current
// token_id, and observes a CONNECTED event.
func (ci *Circuit) Connect(src *cell.Cell, srcSocket string, dst *cell.Cell, dstSocket string) error {
	srcSock, err := src.Outputs.Get(srcSocket)
	if err != nil {
		return fmt.Errorf("circuit: connect %s.%s -> %s.%s: %w", src.Name(), srcSocket, dst.Name(), dstSocket, ErrUnknownSocket)
	}
	dstSock, err := dst.Inputs.Get(dstSocket)
	if err != nil {
		return fmt.Errorf("circuit: connect %s.%s -> %s.%s: %w", src.Name(), srcSocket, dst.Name(), dstSocket, ErrUnknownSocket)
	}
	if !socket.Compatible(dstSock, srcSock) {
		return fmt.Errorf("circuit: connect %s.%s -> %s.%s: %w", src.Name(), srcSocket, dst.Name(), dstSocket, ErrTypeMismatch)
	}

	ci.mu.Lock()
	for _, e := range ci.edges {
		if e.Dst == dst && e.DstSocket == dstSocket {
			ci.mu.Unlock()
			return fmt.Errorf("circuit: connect %s.%s -> %s.%s: %w", src.Name(), srcSocket, dst.Name(), dstSocket, ErrAlreadyConnected)
		}
	}
	ci.edges = append(ci.edges, Edge{Src: src, SrcSocket: srcSocket, Dst: dst, DstSocket: dstSocket})
	ci.mu.Unlock()

	dstSock.SetGraphSupplied(true)
	dstSock.SetTokenID(srcSock.TokenID())
	socket.NotifyConnected(dstSock)
	return nil
}

// Disconnect removes the edge from src's srcSocket to dst's dstSocket,
// clears dst's graph-supplied flag, and fires a DISCONNECTED event.
func (ci *Circuit) Disconnect(src *cell.Cell, srcSocket string, dst *cell.Cell, dstSocket string) error {
	ci.mu.Lock()
	idx := -1
	for i, e := range ci.edges {
		if e.Src == src && e.SrcSocket == srcSocket && e.Dst == dst && e.DstSocket == dstSocket {
			idx = i
			break
		}
	}
	if idx == -1 {
		ci.mu.Unlock()
		return fmt.Errorf("circuit: disconnect %s.%s -> %s.%s: %w", src.Name(), srcSocket, dst.Name(), dstSocket, ErrNotConnected)
	}
	ci.edges = append(ci.edges[:idx], ci.edges[idx+1:]...)
	ci.mu.Unlock()

	dstSock, err := dst.Inputs.Get(dstSocket)
	if err != nil {
		return nil
	}
	dstSock.SetGraphSupplied(false)
	socket.NotifyDisconnected(dstSock)
	return nil
}

// ConfigureAll runs Configure on every cell in topological order.
func (ci *Circuit) ConfigureAll(ctx context.Context) error {
	order, err := ci.TopologicalOrder()
	if err != nil {
		return err
	}
	for _, c := range order {
		if err := c.Configure(ctx); err != nil {
			return fmt.Errorf("circuit: configure %s: %w", c.Name(), err)
		}
	}
	return nil
}
