package testcells

import (
	"context"
	"testing"

	"circuitengine/circuit"
	"circuitengine/scheduler"
	"circuitengine/socket"
)

func TestOperation_ChainedThroughCircuitResolvesInOnePID(t *testing.T) {
	ci := circuit.New()

	a := New(t, "a", &Operation{})
	b := New(t, "b", &Operation{})
	ci.Insert(a)
	ci.Insert(b)

	if err := ci.Connect(a, "ans", b, "a"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ctx := context.Background()
	Configure(t, ctx, a)
	Configure(t, ctx, b)

	if err := socket.Insert(a.Inputs.MustGet("a"), 3); err != nil {
		t.Fatalf("seed a.a: %v", err)
	}
	if err := socket.Insert(a.Inputs.MustGet("b"), 4); err != nil {
		t.Fatalf("seed a.b: %v", err)
	}
	if err := socket.Insert(b.Inputs.MustGet("b"), 10); err != nil {
		t.Fatalf("seed b.b: %v", err)
	}

	s := scheduler.New(ci)
	if err := s.Execute(ctx, 1); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := socket.Get[int](b.Outputs.MustGet("ans"))
	if err != nil {
		t.Fatalf("read b.ans: %v", err)
	}
	if got != 17 {
		t.Errorf("b.ans = %d, want 17 (3+4 then +10)", got)
	}
}

func TestNeverOutput_BreaksExecuteOnUserReturnCode(t *testing.T) {
	ci := circuit.New()

	source := New(t, "source", &Operation{})
	sink := New(t, "sink", NeverOutput{})
	ci.Insert(source)
	ci.Insert(sink)

	if err := ci.Connect(source, "ans", sink, "a"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ctx := context.Background()
	Configure(t, ctx, source)

	if err := socket.Insert(source.Inputs.MustGet("a"), 1); err != nil {
		t.Fatalf("seed source.a: %v", err)
	}
	if err := socket.Insert(sink.Inputs.MustGet("ret"), int(3)); err != nil {
		t.Fatalf("seed sink.ret: %v", err)
	}

	s := scheduler.New(ci)
	if err := s.Execute(ctx, 5); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !s.Running() {
		t.Error("Running() = false after a BREAK code, want the scheduler to remain runnable")
	}
}

func TestAdd_IndependentCellsResolveInOnePID(t *testing.T) {
	ci := circuit.New()

	a1 := New(t, "a1", &Add{})
	a2 := New(t, "a2", &Add{})
	ci.Insert(a1)
	ci.Insert(a2)

	ctx := context.Background()
	if err := socket.Insert(a1.Inputs.MustGet("left"), 1.0); err != nil {
		t.Fatalf("seed a1.left: %v", err)
	}
	if err := socket.Insert(a1.Inputs.MustGet("right"), 2.0); err != nil {
		t.Fatalf("seed a1.right: %v", err)
	}
	if err := socket.Insert(a2.Inputs.MustGet("left"), 10.0); err != nil {
		t.Fatalf("seed a2.left: %v", err)
	}
	if err := socket.Insert(a2.Inputs.MustGet("right"), 20.0); err != nil {
		t.Fatalf("seed a2.right: %v", err)
	}

	s := scheduler.New(ci)
	if err := s.Execute(ctx, 1); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got1, _ := socket.Get[float64](a1.Outputs.MustGet("out"))
	got2, _ := socket.Get[float64](a2.Outputs.MustGet("out"))
	if got1 != 3.0 {
		t.Errorf("a1.out = %v, want 3", got1)
	}
	if got2 != 30.0 {
		t.Errorf("a2.out = %v, want 30", got2)
	}
}
