package cell

import (
	"context"
	"fmt"
	"time"

	"circuitengine/observer"
	"circuitengine/socket"
)

// Configure runs the user object's Configure method, if present,
// timing it under ConfigPhase when profiling is enabled for that
// phase.
func (c *Cell) Configure(ctx context.Context) error {
	cfg, ok := c.user.(Configurer)
	if !ok {
		return nil
	}
	return c.runPhase(ctx, ConfigPhase, func() error {
		return cfg.Configure(c.Params, c.Inputs, c.Outputs)
	})
}

// NeedsProcess reports whether the next Process call would actually
// invoke the user's Process method rather than short-circuiting via
// smart re-execution: true iff any input was touched by a direct write
// since the last process call, or an input's token_id is newer than
// the cached last-processed pid (a graph sweep delivered something
// fresher). Touched, not Dirty: Insert/InsertFrom never set Dirty
// themselves, so a directly-supplied input forces reprocessing even
// when the value it was rewritten with happens to be unchanged.
func (c *Cell) NeedsProcess() bool {
	c.mu.Lock()
	lastPID := c.lastProcessedPID
	c.mu.Unlock()

	needs := false
	c.Inputs.Each(func(_ string, s *socket.Socket) {
		if s.Touched() || s.TokenID() > lastPID {
			needs = true
		}
	})
	return needs
}

// Process runs the declared gating rules and, if they pass, the user
// object's Process method, stamping freshly inserted outputs with pid
// and notifying them. pid is the scheduler's current iteration id.
func (c *Cell) Process(ctx context.Context, pid int64) (ReturnCode, error) {
	if err := c.checkRequired(); err != nil {
		return Unknown, err
	}
	if blocked := c.checkGraphSuppliedFreshness(pid); blocked {
		return DoOver, nil
	}
	if !c.NeedsProcess() {
		return OK, nil
	}

	proc, ok := c.user.(Processor)
	if !ok {
		c.finishProcess(pid, OK)
		return OK, nil
	}

	var code ReturnCode
	var procErr error
	err := c.runPhase(ctx, ProcessPhase, func() error {
		code, procErr = proc.Process(c.Inputs, c.Outputs)
		return procErr
	})
	if err != nil {
		return code, fmt.Errorf("cell %q: process: %w", c.name, err)
	}

	if code == OK {
		c.finishProcess(pid, code)
	}
	return code, nil
}

func (c *Cell) checkRequired() error {
	var missing string
	c.Inputs.Each(func(name string, s *socket.Socket) {
		if missing != "" {
			return
		}
		if s.Required() && !s.Supplied() {
			missing = name
		}
	})
	if missing != "" {
		return &UnsuppliedError{Cell: c.name, Input: missing}
	}
	return nil
}

func (c *Cell) checkGraphSuppliedFreshness(pid int64) bool {
	blocked := false
	c.Inputs.Each(func(_ string, s *socket.Socket) {
		if blocked {
			return
		}
		if s.Required() && s.GraphSupplied() && s.TokenID() != pid {
			blocked = true
		}
	})
	return blocked
}

// finishProcess stamps every output socket that was freshly inserted
// during this process call (touched, with no inherited token_id) with
// pid, notifies it, and caches bookkeeping for the next NeedsProcess
// check. Touched is distinct from Dirty: Insert/InsertFrom never set
// Dirty themselves (test_cellsocket.hpp's Dirtiness case), so Touched
// is what finishProcess uses to tell "this output was written during
// this call" from "this output still carries an old or default value
// nobody wrote this round." It also fires ValueChanged on the cell
// itself, once per successful process call, for observers attached to
// the cell rather than to one of its individual output sockets.
func (c *Cell) finishProcess(pid int64, code ReturnCode) {
	c.Outputs.Each(func(_ string, s *socket.Socket) {
		if s.Touched() && s.TokenID() == socket.NoTokenID {
			s.SetTokenID(pid)
		}
		s.ClearTouched()
		s.Notify()
	})
	// Flush input dirty/touched flags too: NeedsProcess is computed from
	// them, so leaving them set would force every cell to reprocess
	// forever.
	c.Inputs.Each(func(_ string, s *socket.Socket) {
		s.ClearTouched()
		s.Notify()
	})

	c.mu.Lock()
	c.lastProcessedPID = pid
	c.lastCode = code
	c.generation++
	c.mu.Unlock()

	c.Observable.Notify(observer.ValueChanged)
}

// Generation returns a counter incremented every time finishProcess
// runs, independent of pid numbering. Unlike LastProcessedPID, it
// never collides across schedulers that each number their own pids
// from 1, so it is the reliable way to detect "this call actually
// produced fresh output" across a fresh Scheduler instance.
func (c *Cell) Generation() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// LastCode returns the return code from the most recently completed
// (OK) process call, or Unknown if the cell has never successfully
// processed.
func (c *Cell) LastCode() ReturnCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCode
}

// LastProcessedPID returns the pid stamped by the most recent call
// that actually ran finishProcess, or 0 if the cell has never
// completed a process call (pids are assigned starting at 1).
// NeedsProcess compares input token_ids against it; the scheduler uses
// Generation, not this pid, to tell fresh output from a skipped call.
func (c *Cell) LastProcessedPID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastProcessedPID
}

// runPhase executes fn. When profiling is enabled for phase, it records
// fn's wall-clock duration into microseconds[phase] and wraps fn in an
// OpenTelemetry span via the cell's tracer (a nil tracer degrades to
// running fn directly, matching telemetry.Operation.RunStep's
// nil-tracer fallback); otherwise it just runs fn.
func (c *Cell) runPhase(ctx context.Context, phase Phase, fn func() error) error {
	start := time.Now()
	var err error
	if c.tracer != nil && c.ProfileEnabled(phase) {
		// fn is context-free (Configurer/Processor take none), so the
		// derived span context only matters for its End/RecordError side.
		_, span := c.tracer.Start(ctx, c.name+"/"+string(phase))
		err = fn()
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	} else {
		err = fn()
	}
	if c.ProfileEnabled(phase) {
		c.mu.Lock()
		c.microseconds[phase] = time.Since(start).Microseconds()
		c.mu.Unlock()
	}
	return err
}
