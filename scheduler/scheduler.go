// Package scheduler drives a circuit to steady state. It propagates a
// monotonically increasing pid through the circuit's cells, retrying
// cells that report DO_OVER up to a bounded progress budget, running
// independent weakly-connected subgraphs concurrently, and honoring
// QUIT/BREAK signals from user cells.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"circuitengine/cell"
	"circuitengine/circuit"
	"circuitengine/internal/check"
	"circuitengine/socket"
)

// defaultProgressBudget bounds how many consecutive do-over rounds a
// pid will retry before concluding the stuck cells are permanently
// blocked (a tolerated deadlock) rather than merely slow.
const defaultProgressBudget = 64

// Scheduler is ephemeral over a circuit: constructing one does not
// mutate the circuit, and a circuit may be driven by a fresh
// Scheduler after being edited, as long as no other Scheduler is
// concurrently executing against it.
type Scheduler struct {
	mu sync.Mutex

	c   *circuit.Circuit
	pid int64

	running   bool
	executing bool
	debug     bool

	progressBudget int
	profileSink    ProfileSink

	// debug-mode step cursor: a pending queue of cells still to run for
	// stepPID, plus a count of consecutive structural blocks (DO_OVER or
	// an unsupplied required input) observed since the last cell that
	// actually progressed.
	stepPID     int64
	stepPlan    []*cell.Cell
	stepStalled int
}

// New returns a scheduler over c. The circuit's current edge set is
// read fresh on every Execute call, so edits made between runs (after
// a prior scheduler finished) take effect automatically.
func New(c *circuit.Circuit) *Scheduler {
	return &Scheduler{c: c, progressBudget: defaultProgressBudget}
}

// SetProgressBudget overrides the default retry budget used to tell a
// genuinely deadlocked cell apart from one still waiting on a slow
// upstream neighbor.
func (s *Scheduler) SetProgressBudget(n int) {
	s.mu.Lock()
	s.progressBudget = n
	s.mu.Unlock()
}

// SetProfileSink installs a sink that receives a PROCESS-phase timing
// record after every cell invocation.
func (s *Scheduler) SetProfileSink(sink ProfileSink) {
	s.mu.Lock()
	s.profileSink = sink
	s.mu.Unlock()
}

// Debug toggles stepwise debugging. In debug mode, Execute(n) advances
// exactly n individual cell process calls rather than n full pid
// sweeps, letting a caller single-step through the firing plan.
func (s *Scheduler) Debug(on bool) {
	s.mu.Lock()
	s.debug = on
	s.mu.Unlock()
}

// Running reports whether the scheduler has an unfinished run: either
// mid-pid in debug mode, or between Execute calls in non-debug mode
// before the circuit reached steady state or a QUIT signal. A BREAK
// leaves the run open.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Executing reports whether the most recent Execute call ended
// mid-run (more work remains) as opposed to having driven the circuit
// to a stopping point.
func (s *Scheduler) Executing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executing
}

// PID returns the scheduler's current iteration id.
func (s *Scheduler) PID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

var errUnsupplied *cell.UnsuppliedError

// Execute drives the circuit for up to n units of work — n pid sweeps
// in normal mode, or n individual cell steps in debug mode — stopping
// early only on a QUIT or BREAK signal from any cell. Afterwards the
// run stays open if some cell still needs processing, and is closed
// otherwise. It returns the first genuine error raised by a cell's
// Process method, prefixed with the pid; structural "not ready yet"
// conditions (DO_OVER, an unsupplied required input) are retried
// rather than surfaced.
func (s *Scheduler) Execute(ctx context.Context, n int) error {
	s.mu.Lock()
	if !s.running {
		s.pid = 0
		s.running = true
	}
	s.executing = true
	debug := s.debug
	s.mu.Unlock()

	var finalCode cell.ReturnCode = cell.OK
	var err error
	if debug {
		finalCode, err = s.executeDebug(ctx, n)
	} else {
		finalCode, err = s.executeNormal(ctx, n)
	}
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.executing = false
		s.mu.Unlock()
		return err
	}

	quiesced := finalCode == cell.Quit || !s.hasPendingWork()
	s.mu.Lock()
	if finalCode == cell.Break {
		s.executing = false
	} else if quiesced {
		s.running = false
		s.executing = false
	} else {
		s.executing = true
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) executeNormal(ctx context.Context, n int) (cell.ReturnCode, error) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		prev := s.pid
		s.pid++
		pid := s.pid
		s.mu.Unlock()
		check.Assertf(pid > prev, "scheduler: pid must strictly increase, got %d after %d", pid, prev)

		code, err := s.runPid(ctx, pid)
		if err != nil {
			return cell.Unknown, err
		}
		if code == cell.Quit || code == cell.Break {
			return code, nil
		}
	}
	return cell.OK, nil
}

// runPid drives every cell in the circuit toward readiness for pid,
// retrying cells that report DO_OVER (or a structural unsupplied
// input) until either everything settles, a QUIT/BREAK is observed,
// or the progress budget runs out — at which point remaining cells
// are treated as a tolerated deadlock for this pid.
func (s *Scheduler) runPid(ctx context.Context, pid int64) (cell.ReturnCode, error) {
	remaining := s.c.Cells()
	ciEdges := s.c.Edges()
	edges := toEdgeLike(ciEdges)
	outEdges := make(map[*cell.Cell][]circuit.Edge)
	for _, e := range ciEdges {
		outEdges[e.Src] = append(outEdges[e.Src], e)
	}
	budget := s.progressBudgetValue()

	for len(remaining) > 0 {
		groups := partitionComponents(remaining, edges)
		assertPartitionIsDisjoint(groups)

		var mu sync.Mutex
		progressed := false
		var nextRemaining []*cell.Cell
		var signal cell.ReturnCode = cell.OK

		g, gctx := errgroup.WithContext(ctx)
		for _, group := range groups {
			group := group
			g.Go(func() error {
				for _, c := range group {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					before := c.Generation()
					code, procErr := c.Process(gctx, pid)
					if procErr != nil {
						if errors.As(procErr, &errUnsupplied) {
							mu.Lock()
							nextRemaining = append(nextRemaining, c)
							mu.Unlock()
							continue
						}
						return fmt.Errorf("scheduler: pid %d: %w", pid, procErr)
					}
					s.recordPhase(c, pid)
					switch code {
					case cell.DoOver:
						mu.Lock()
						nextRemaining = append(nextRemaining, c)
						mu.Unlock()
					case cell.Quit, cell.Break:
						mu.Lock()
						signal = code
						mu.Unlock()
					default:
						if c.Generation() != before {
							if err := propagate(c, outEdges[c]); err != nil {
								return err
							}
						}
						mu.Lock()
						progressed = true
						mu.Unlock()
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return cell.Unknown, err
		}
		if signal == cell.Quit || signal == cell.Break {
			return signal, nil
		}

		remaining = nextRemaining
		if progressed {
			budget = s.progressBudgetValue()
			continue
		}
		budget--
		if budget <= 0 {
			break // tolerated deadlock: remaining cells stay unprocessed this pid
		}
	}
	return cell.OK, nil
}

// propagate pushes c's freshly processed output values across every
// outgoing edge, so the downstream input's token_id catches up to the
// pid that just stamped the output — the condition
// checkGraphSuppliedFreshness waits for before letting a cell process.
// It marks each destination dirty itself: socket.InsertFrom leaves
// dirty untouched (insertion alone never dirties a socket), but a
// value that just arrived via a sweep is exactly the dirty signal a
// debugger or downstream observer expects to see.
func propagate(c *cell.Cell, edges []circuit.Edge) error {
	for _, e := range edges {
		src, err := c.Outputs.Get(e.SrcSocket)
		if err != nil {
			return fmt.Errorf("scheduler: propagate %s.%s: %w", c.Name(), e.SrcSocket, err)
		}
		dst, err := e.Dst.Inputs.Get(e.DstSocket)
		if err != nil {
			return fmt.Errorf("scheduler: propagate %s.%s -> %s.%s: %w", c.Name(), e.SrcSocket, e.Dst.Name(), e.DstSocket, err)
		}
		if err := socket.InsertFrom(dst, src); err != nil {
			return fmt.Errorf("scheduler: propagate %s.%s -> %s.%s: %w", c.Name(), e.SrcSocket, e.Dst.Name(), e.DstSocket, err)
		}
		dst.SetDirty(true)
	}
	return nil
}

func (s *Scheduler) progressBudgetValue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressBudget
}

func (s *Scheduler) recordPhase(c *cell.Cell, pid int64) {
	s.mu.Lock()
	sink := s.profileSink
	s.mu.Unlock()
	if sink == nil {
		return
	}
	sink.RecordPhase(c.Name(), cell.ProcessPhase, pid, c.Microseconds(cell.ProcessPhase))
}

// hasPendingWork reports whether any cell in the circuit would still
// need processing if given another pid — used to decide whether a
// finished Execute call should fully reset the scheduler or merely
// pause, ready to continue on the next call.
func (s *Scheduler) hasPendingWork() bool {
	for _, c := range s.c.Cells() {
		if c.NeedsProcess() {
			return true
		}
	}
	return false
}

func (s *Scheduler) executeDebug(ctx context.Context, n int) (cell.ReturnCode, error) {
	last := cell.OK
	for i := 0; i < n; i++ {
		code, _, err := s.Step(ctx)
		if err != nil {
			return cell.Unknown, err
		}
		last = code
		if code == cell.Quit || code == cell.Break {
			return code, nil
		}
	}
	return last, nil
}

// Step advances debug-mode execution by a single cell, returning the
// cell that ran and the code it reported. When the current pid's
// firing plan is exhausted, Step starts a fresh pid with a new plan
// drawn from the circuit's current cells — so edits made to the
// circuit between steps are picked up at the next pid boundary, same
// as between two non-debug Execute calls.
//
// A cell that reports DO_OVER, or fails with an unsupplied required
// input, is moved to the back of the plan to retry later, bounded by
// the scheduler's progress budget: once that many consecutive steps
// have made no progress, the stalled cell is dropped from the plan
// instead of requeued, as is every further DO_OVER cell until some
// cell makes progress again. The rest of the plan still runs.
func (s *Scheduler) Step(ctx context.Context) (cell.ReturnCode, *cell.Cell, error) {
	s.mu.Lock()
	if len(s.stepPlan) == 0 {
		s.pid++
		s.stepPID = s.pid
		s.stepPlan = s.c.Cells()
		s.stepStalled = 0
	}
	if len(s.stepPlan) == 0 {
		s.mu.Unlock()
		return cell.OK, nil, nil
	}
	c := s.stepPlan[0]
	pid := s.stepPID
	budget := s.progressBudget
	s.mu.Unlock()

	before := c.Generation()
	code, err := c.Process(ctx, pid)
	if err != nil {
		if !errors.As(err, &errUnsupplied) {
			return cell.Unknown, c, fmt.Errorf("scheduler: pid %d: %w", pid, err)
		}
		code = cell.DoOver
	} else {
		s.recordPhase(c, pid)
		if code != cell.DoOver && code != cell.Quit && code != cell.Break && c.Generation() != before {
			for _, e := range s.c.Edges() {
				if e.Src != c {
					continue
				}
				if err := propagate(c, []circuit.Edge{e}); err != nil {
					return cell.Unknown, c, err
				}
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepPlan = s.stepPlan[1:]
	if code == cell.DoOver {
		s.stepStalled++
		if s.stepStalled < budget {
			s.stepPlan = append(s.stepPlan, c)
		}
	} else {
		s.stepStalled = 0
	}
	return code, c, nil
}

// assertPartitionIsDisjoint verifies, in debug builds only, that no
// cell fires in more than one component during a single round — the
// "at most one firing per pid round" invariant the concurrent fan-out
// in runPid depends on to stay race-free without locking each cell.
func assertPartitionIsDisjoint(groups [][]*cell.Cell) {
	seen := make(map[*cell.Cell]bool)
	for _, g := range groups {
		for _, c := range g {
			check.Assertf(!seen[c], "scheduler: cell %q scheduled in more than one component this round", c.Name())
			seen[c] = true
		}
	}
}

func toEdgeLike(edges []circuit.Edge) []edgeLike {
	out := make([]edgeLike, len(edges))
	for i, e := range edges {
		out[i] = edgeLike{Src: e.Src, Dst: e.Dst}
	}
	return out
}
