package cell

// SetProfile enables or disables profiling for phase: wall-time
// recording into Microseconds and, when a tracer is set, the
// OpenTelemetry span.
// Clones do not inherit profile flags: New always starts with
// profiling disabled for every phase.
func (c *Cell) SetProfile(phase Phase, enabled bool) {
	c.mu.Lock()
	c.profile[phase] = enabled
	c.mu.Unlock()
}

// ProfileEnabled reports whether phase is currently profiled.
func (c *Cell) ProfileEnabled(phase Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile[phase]
}

// Microseconds returns the wall-clock duration, in microseconds, of the
// most recent run of phase made while profiling was enabled for it, or
// 0 if there has been none. Runs with profiling disabled do not update
// it.
func (c *Cell) Microseconds(phase Phase) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.microseconds[phase]
}
