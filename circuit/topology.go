package circuit

import "circuitengine/cell"

// Predecessors returns the cells with an edge feeding into c, in edge
// order, with duplicates (multiple edges from the same source)
// collapsed.
func (ci *Circuit) Predecessors(c *cell.Cell) []*cell.Cell {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	seen := make(map[*cell.Cell]bool)
	var out []*cell.Cell
	for _, e := range ci.edges {
		if e.Dst == c && !seen[e.Src] {
			seen[e.Src] = true
			out = append(out, e.Src)
		}
	}
	return out
}

// Successors returns the cells fed by an edge from c, in edge order,
// with duplicates collapsed.
func (ci *Circuit) Successors(c *cell.Cell) []*cell.Cell {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	seen := make(map[*cell.Cell]bool)
	var out []*cell.Cell
	for _, e := range ci.edges {
		if e.Src == c && !seen[e.Dst] {
			seen[e.Dst] = true
			out = append(out, e.Dst)
		}
	}
	return out
}

// Roots returns the cells with no predecessors, in insertion order.
func (ci *Circuit) Roots() []*cell.Cell {
	return ci.filterCells(func(c *cell.Cell) bool { return len(ci.Predecessors(c)) == 0 })
}

// Sinks returns the cells with no successors, in insertion order.
func (ci *Circuit) Sinks() []*cell.Cell {
	return ci.filterCells(func(c *cell.Cell) bool { return len(ci.Successors(c)) == 0 })
}

func (ci *Circuit) filterCells(keep func(*cell.Cell) bool) []*cell.Cell {
	var out []*cell.Cell
	for _, c := range ci.Cells() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// TopologicalOrder returns the circuit's cells ordered so every cell
// appears after all of its predecessors. Returns ErrCycleDetected if
// the edges don't form a DAG.
func (ci *Circuit) TopologicalOrder() ([]*cell.Cell, error) {
	cells := ci.Cells()

	const (
		white = iota
		gray
		black
	)
	color := make(map[*cell.Cell]int, len(cells))
	var order []*cell.Cell

	var visit func(c *cell.Cell) error
	visit = func(c *cell.Cell) error {
		switch color[c] {
		case gray:
			return ErrCycleDetected
		case black:
			return nil
		}
		color[c] = gray
		for _, pred := range ci.Predecessors(c) {
			if err := visit(pred); err != nil {
				return err
			}
		}
		color[c] = black
		order = append(order, c)
		return nil
	}

	for _, c := range cells {
		if err := visit(c); err != nil {
			return nil, err
		}
	}
	return order, nil
}
