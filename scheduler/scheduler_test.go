package scheduler

import (
	"context"
	"testing"

	"circuitengine/cell"
	"circuitengine/circuit"
	"circuitengine/socket"
)

// incrementer reads a required int input and writes it, plus one, to
// a default-valued int output. Used to build linear chains whose
// correct resolution depends on edge propagation between pids.
type incrementer struct{}

func (incrementer) DeclareIO(p, i, o *socket.Map) {
	i.MustDeclare("in").SetRequired(true)
	socket.MustDeclareWithDefault(o, "out", 0)
}

func (incrementer) Process(i, o *socket.Map) (cell.ReturnCode, error) {
	v, err := socket.Get[int](i.MustGet("in"))
	if err != nil {
		return cell.Unknown, err
	}
	if err := socket.Insert(o.MustGet("out"), v+1); err != nil {
		return cell.Unknown, err
	}
	return cell.OK, nil
}

func newIncrementer(t *testing.T, name string) *cell.Cell {
	t.Helper()
	c := cell.New(name, incrementer{})
	if err := c.DeclareIO(); err != nil {
		t.Fatalf("%s.DeclareIO: %v", name, err)
	}
	return c
}

// stubborn always reports DO_OVER, regardless of its input, so it
// never calls finishProcess and its input never stops being touched —
// a cell that can never converge, used to exercise the scheduler's
// deadlock-tolerance budget.
type stubborn struct{}

func (stubborn) DeclareIO(p, i, o *socket.Map) {
	i.MustDeclare("in").SetRequired(true)
}

func (stubborn) Process(i, o *socket.Map) (cell.ReturnCode, error) {
	return cell.DoOver, nil
}

// signaler reports a fixed return code once its required input is
// supplied, for exercising QUIT and BREAK handling.
type signaler struct {
	code cell.ReturnCode
}

func (s *signaler) DeclareIO(p, i, o *socket.Map) {
	i.MustDeclare("in").SetRequired(true)
}

func (s *signaler) Process(i, o *socket.Map) (cell.ReturnCode, error) {
	return s.code, nil
}

func TestScheduler_ResolvesLinearChainInOnePID(t *testing.T) {
	ci := circuit.New()
	a := newIncrementer(t, "a")
	b := newIncrementer(t, "b")
	ci.Insert(a)
	ci.Insert(b)
	if err := ci.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := socket.Insert(a.Inputs.MustGet("in"), 10); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	s := New(ci)
	if err := s.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, err := socket.Get[int](a.Outputs.MustGet("out"))
	if err != nil || got != 11 {
		t.Fatalf("a.out = %d, %v, want 11, nil", got, err)
	}
	got, err = socket.Get[int](b.Outputs.MustGet("out"))
	if err != nil || got != 12 {
		t.Fatalf("b.out = %d, %v, want 12, nil", got, err)
	}
	if s.Running() {
		t.Fatal("a resolved chain should quiesce, not remain running")
	}
}

func TestScheduler_ToleratesDeadlockWithinProgressBudget(t *testing.T) {
	ci := circuit.New()
	c := cell.New("stuck", stubborn{})
	if err := c.DeclareIO(); err != nil {
		t.Fatalf("DeclareIO: %v", err)
	}
	ci.Insert(c)
	if err := socket.Insert(c.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	s := New(ci)
	s.SetProgressBudget(5)
	if err := s.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Execute on a permanently DO_OVER cell should not error: %v", err)
	}
	if !s.Running() {
		t.Fatal("a tolerated deadlock leaves the circuit not yet quiesced")
	}
}

func TestScheduler_QuitStopsExecuteEarlyAndFullyResets(t *testing.T) {
	ci := circuit.New()
	c := cell.New("q", &signaler{code: cell.Quit})
	if err := c.DeclareIO(); err != nil {
		t.Fatalf("DeclareIO: %v", err)
	}
	ci.Insert(c)
	if err := socket.Insert(c.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	s := New(ci)
	if err := s.Execute(context.Background(), 5); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.PID() != 1 {
		t.Fatalf("PID = %d, want 1 (QUIT should stop after the first pid)", s.PID())
	}
	if s.Running() {
		t.Fatal("QUIT should leave the scheduler fully stopped")
	}
}

func TestScheduler_BreakAbortsExecuteButStaysRunnable(t *testing.T) {
	ci := circuit.New()
	c := cell.New("b", &signaler{code: cell.Break})
	if err := c.DeclareIO(); err != nil {
		t.Fatalf("DeclareIO: %v", err)
	}
	ci.Insert(c)
	if err := socket.Insert(c.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	s := New(ci)
	if err := s.Execute(context.Background(), 5); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s.PID() != 1 {
		t.Fatalf("PID = %d, want 1 (BREAK should abort after the first pid)", s.PID())
	}
	if s.Executing() {
		t.Fatal("BREAK should leave Executing false")
	}
	if !s.Running() {
		t.Fatal("BREAK aborts the call but the scheduler should remain runnable")
	}
}

func TestScheduler_PicksUpCircuitEditsOnAFreshScheduler(t *testing.T) {
	ci := circuit.New()
	a := newIncrementer(t, "a")
	b := newIncrementer(t, "b")
	ci.Insert(a)
	ci.Insert(b)
	if err := ci.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("Connect a->b: %v", err)
	}
	if err := socket.Insert(a.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	if err := New(ci).Execute(context.Background(), 1); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	// rewire a into a new cell c instead of b, then drive the circuit
	// with a brand new scheduler instance.
	if err := ci.Disconnect(a, "out", b, "in"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	c := newIncrementer(t, "c")
	ci.Insert(c)
	if err := ci.Connect(a, "out", c, "in"); err != nil {
		t.Fatalf("Connect a->c: %v", err)
	}
	if err := socket.Insert(a.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("reseed insert: %v", err)
	}

	s2 := New(ci)
	if err := s2.Execute(context.Background(), 1); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	got, err := socket.Get[int](c.Outputs.MustGet("out"))
	if err != nil || got != 3 {
		t.Fatalf("c.out = %d, %v, want 3, nil", got, err)
	}
}

func TestPartitionComponents_SplitsIndependentChains(t *testing.T) {
	a1 := newIncrementer(t, "a1")
	a2 := newIncrementer(t, "a2")
	b1 := newIncrementer(t, "b1")
	b2 := newIncrementer(t, "b2")

	edges := []edgeLike{
		{Src: a1, Dst: a2},
		{Src: b1, Dst: b2},
	}
	groups := partitionComponents([]*cell.Cell{a1, a2, b1, b2}, edges)
	if len(groups) != 2 {
		t.Fatalf("partitionComponents produced %d groups, want 2 (independent chains)", len(groups))
	}
	for _, g := range groups {
		if len(g) != 2 {
			t.Fatalf("group %v has %d cells, want 2", g, len(g))
		}
	}
}

func TestPartitionComponents_SingletonsStayIndependent(t *testing.T) {
	a := newIncrementer(t, "solo-a")
	b := newIncrementer(t, "solo-b")
	groups := partitionComponents([]*cell.Cell{a, b}, nil)
	if len(groups) != 2 {
		t.Fatalf("partitionComponents with no edges produced %d groups, want 2", len(groups))
	}
}

func TestScheduler_ProfileSinkRecordsEachProcessedCell(t *testing.T) {
	ci := circuit.New()
	a := newIncrementer(t, "a")
	ci.Insert(a)
	if err := socket.Insert(a.Inputs.MustGet("in"), 1); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	sink := &MemoryProfileSink{}
	s := New(ci)
	s.SetProfileSink(sink)
	if err := s.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sink.Records) != 1 {
		t.Fatalf("got %d profile records, want 1", len(sink.Records))
	}
	if sink.Records[0].Cell != "a" || sink.Records[0].Phase != cell.ProcessPhase || sink.Records[0].PID != 1 {
		t.Fatalf("unexpected profile record: %+v", sink.Records[0])
	}
}

func TestScheduler_DebugStepsOneCellAtATime(t *testing.T) {
	ci := circuit.New()
	a := newIncrementer(t, "a")
	b := newIncrementer(t, "b")
	ci.Insert(a)
	ci.Insert(b)
	if err := ci.Connect(a, "out", b, "in"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := socket.Insert(a.Inputs.MustGet("in"), 5); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	s := New(ci)
	s.Debug(true)

	if err := s.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if got, err := socket.Get[int](a.Outputs.MustGet("out")); err != nil || got != 6 {
		t.Fatalf("after one step, a.out = %d, %v, want 6, nil", got, err)
	}
	if got, err := socket.Get[int](b.Outputs.MustGet("out")); err != nil || got != 0 {
		t.Fatalf("b should not have run yet after a single debug step: b.out = %d, %v, want default 0, nil", got, err)
	}

	if err := s.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if got, err := socket.Get[int](b.Outputs.MustGet("out")); err != nil || got != 7 {
		t.Fatalf("after two steps, b.out = %d, %v, want 7, nil", got, err)
	}
}
