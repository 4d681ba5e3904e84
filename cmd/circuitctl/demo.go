package main

import (
	"context"
	"fmt"

	"circuitengine/cell"
	"circuitengine/cellregistry"
	"circuitengine/circuit"
	"circuitengine/internal/testcells"
	"circuitengine/socket"
)

// buildDemoCircuit wires the smoke-test circuit circuitctl exercises
// end to end: two chained Operation cells feeding a NeverOutput sink.
// The sink's "a" input is graph-supplied, so it fires only after the
// chain has fed it, within the same pid; it returns its "ret" seed of
// 0, which is OK.
func buildDemoCircuit() (*circuit.Circuit, error) {
	cellregistry.Add("operation", func() cell.User { return &testcells.Operation{} })
	cellregistry.Add("never-output", func() cell.User { return testcells.NeverOutput{} })

	ci := circuit.New()

	sum, err := cellregistry.Instantiate("operation")
	if err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}
	sum.SetModule("arithmetic", "adds two seed values")

	diff, err := cellregistry.Instantiate("operation")
	if err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}
	diff.SetModule("arithmetic", "subtracts the sum from a seed value")
	if err := socket.Insert(diff.Params.MustGet("minus"), true); err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}

	sink, err := cellregistry.Instantiate("never-output")
	if err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}
	sink.SetModule("sink", "blocks until the graph feeds it, then reports OK")

	ci.Insert(sum)
	ci.Insert(diff)
	ci.Insert(sink)

	if err := ci.Connect(sum, "ans", diff, "b"); err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}
	if err := ci.Connect(diff, "ans", sink, "a"); err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}

	ctx := context.Background()
	if err := ci.ConfigureAll(ctx); err != nil {
		return nil, fmt.Errorf("build demo circuit: %w", err)
	}

	if err := socket.Insert(sum.Inputs.MustGet("a"), 5); err != nil {
		return nil, fmt.Errorf("seed demo circuit: %w", err)
	}
	if err := socket.Insert(sum.Inputs.MustGet("b"), 7); err != nil {
		return nil, fmt.Errorf("seed demo circuit: %w", err)
	}
	if err := socket.Insert(diff.Inputs.MustGet("a"), 100); err != nil {
		return nil, fmt.Errorf("seed demo circuit: %w", err)
	}
	if err := socket.Insert(sink.Inputs.MustGet("ret"), 0); err != nil {
		return nil, fmt.Errorf("seed demo circuit: %w", err)
	}

	return ci, nil
}
