// Package testcells ports cells.hpp's fixture cells into reusable Go
// compute objects for integration-style circuit and scheduler tests
// that live outside the cell/socket/circuit packages' own unit tests.
package testcells

import (
	"context"
	"time"

	"circuitengine/cell"
	"circuitengine/socket"
)

// Operation adds or subtracts two integers, gated by a "minus" param.
// Ports cells.hpp's Operation.
type Operation struct {
	minus bool
}

func (o *Operation) DeclareParams(p *socket.Map) {
	socket.MustDeclareWithDefault(p, "minus", false)
}

func (o *Operation) DeclareIO(p, i, out *socket.Map) {
	i.MustDeclare("a").SetRequired(true)
	socket.MustDeclareWithDefault(i, "b", 0)
	socket.MustDeclareWithDefault(out, "ans", 0)
}

func (o *Operation) Configure(p, i, out *socket.Map) error {
	v, err := socket.Get[bool](p.MustGet("minus"))
	if err != nil {
		return err
	}
	o.minus = v
	return nil
}

func (o *Operation) Process(i, out *socket.Map) (cell.ReturnCode, error) {
	a, err := socket.Get[int](i.MustGet("a"))
	if err != nil {
		return cell.Unknown, err
	}
	b, err := socket.Get[int](i.MustGet("b"))
	if err != nil {
		return cell.Unknown, err
	}
	if o.minus {
		socket.Insert(out.MustGet("ans"), a-b)
	} else {
		socket.Insert(out.MustGet("ans"), a+b)
	}
	return cell.OK, nil
}

// Pause blocks the calling goroutine for the configured number of
// milliseconds, then signals downstream cells through "done". Its
// "link" input is required, forcing upstream cells to fire first.
// Ports cells.hpp's Pause.
type Pause struct{}

func (Pause) DeclareIO(p, i, out *socket.Map) {
	socket.MustDeclareWithDefault(i, "milliseconds", 0)
	socket.MustDeclareWithDefault(i, "link", false).SetRequired(true)
	socket.MustDeclareWithDefault(out, "done", false)
}

func (Pause) Process(i, out *socket.Map) (cell.ReturnCode, error) {
	ms, err := socket.Get[int](i.MustGet("milliseconds"))
	if err != nil {
		return cell.Unknown, err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	socket.Insert(out.MustGet("done"), true)
	return cell.OK, nil
}

// NeverOutput never writes its "done" output, only "link" (to let a
// chain continue) and returns whatever ReturnCode its "ret" input asks
// for. Used to exercise QUIT/BREAK/arbitrary user codes flowing out of
// a cell under scheduler control. Its "a" input is required and
// graph-supplied, so it blocks until an upstream edge feeds it,
// exercising DO_OVER-driven retries. Ports cells.hpp's NeverOutput.
type NeverOutput struct{}

func (NeverOutput) DeclareIO(p, i, out *socket.Map) {
	i.MustDeclare("a").SetRequired(true)
	i.MustGet("a").SetGraphSupplied(true)
	socket.MustDeclareWithDefault(i, "ret", 0)
	socket.MustDeclareWithDefault(out, "done", false)
	socket.MustDeclareWithDefault(out, "link", false)
}

func (NeverOutput) Process(i, out *socket.Map) (cell.ReturnCode, error) {
	socket.Insert(out.MustGet("link"), true)
	ret, err := socket.Get[int](i.MustGet("ret"))
	if err != nil {
		return cell.Unknown, err
	}
	return cell.ReturnCode(ret), nil
}

// Sleeper sleeps for the given number of milliseconds and returns OK,
// with no outputs. Useful as a pure-timing cell in a chain whose
// result isn't otherwise observed. Ports cells.hpp's Sleeper.
type Sleeper struct{}

func (Sleeper) DeclareIO(p, i, out *socket.Map) {
	socket.MustDeclareWithDefault(i, "milliseconds", 0)
}

func (Sleeper) Process(i, out *socket.Map) (cell.ReturnCode, error) {
	ms, err := socket.Get[int](i.MustGet("milliseconds"))
	if err != nil {
		return cell.Unknown, err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return cell.OK, nil
}

// Add sums two float64 inputs into "out". A minimal two-input fixture
// for partition/parallelism tests that don't need Operation's params.
// Ports cells.hpp's Add.
type Add struct{}

func (Add) DeclareIO(p, i, out *socket.Map) {
	i.MustDeclare("left").SetRequired(true)
	i.MustDeclare("right").SetRequired(true)
	socket.MustDeclareWithDefault(out, "out", 0.0)
}

func (Add) Process(i, out *socket.Map) (cell.ReturnCode, error) {
	left, err := socket.Get[float64](i.MustGet("left"))
	if err != nil {
		return cell.Unknown, err
	}
	right, err := socket.Get[float64](i.MustGet("right"))
	if err != nil {
		return cell.Unknown, err
	}
	socket.Insert(out.MustGet("out"), left+right)
	return cell.OK, nil
}

// New builds and declares a *cell.Cell named name around user,
// failing the test immediately if either declare step errors.
func New(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, name string, user cell.User) *cell.Cell {
	t.Helper()
	c := cell.New(name, user)
	if err := c.DeclareParams(); err != nil {
		t.Fatalf("%s: DeclareParams: %v", name, err)
	}
	if err := c.DeclareIO(); err != nil {
		t.Fatalf("%s: DeclareIO: %v", name, err)
	}
	return c
}

// Configure runs c's Configure step (if present) against ctx, failing
// the caller's test helper on error.
func Configure(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, ctx context.Context, c *cell.Cell) {
	t.Helper()
	if err := c.Configure(ctx); err != nil {
		t.Fatalf("%s: Configure: %v", c.Name(), err)
	}
}
