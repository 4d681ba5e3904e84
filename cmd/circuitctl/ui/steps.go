package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"circuitengine/cell"
)

// StepResult is one scheduler.Step outcome, enough to render a line.
type StepResult struct {
	PID          int64
	Cell         string
	Code         cell.ReturnCode
	Microseconds int64
	Err          error
}

// PrintStep writes one colorized "[status] pid N cell -> CODE (duration)" line
// to stdout, mirroring the prefix-plus-indent shape of the teacher's
// plain-text step lines but keyed on pid/cell instead of a span tree.
func PrintStep(r StepResult) {
	fmt.Println(formatStep(r))
}

func formatStep(r StepResult) string {
	prefix := "[..]"
	label := r.Cell
	switch {
	case r.Err != nil:
		prefix = Fail("[x]")
	case r.Code == cell.OK:
		prefix = OK("[ok]")
	case r.Code == cell.DoOver:
		prefix = Wait("[..]")
	case r.Code == cell.Quit, r.Code == cell.Break:
		prefix = Accent("[!]")
	default:
		prefix = Muted("[ok]")
	}

	pid := Muted(fmt.Sprintf("pid %d", r.PID))
	if r.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", prefix, pid, label, r.Err)
	}
	dur := Muted(humanize.Comma(r.Microseconds) + "µs")
	return fmt.Sprintf("%s %s %s -> %s (%s)", prefix, pid, label, r.Code, dur)
}
