package scheduler

import "circuitengine/cell"

// ProfileSink receives a timing record for every cell phase run by a
// scheduler. internal/profilestore implements a SQLite-backed sink for
// cmd/circuitctl; tests typically use a plain in-memory one.
type ProfileSink interface {
	RecordPhase(cellName string, phase cell.Phase, pid int64, microseconds int64)
}

// MemoryProfileSink accumulates phase records in memory, in recording
// order. Its zero value is ready to use.
type MemoryProfileSink struct {
	Records []PhaseRecord
}

// PhaseRecord is one timing observation recorded by MemoryProfileSink.
type PhaseRecord struct {
	Cell         string
	Phase        cell.Phase
	PID          int64
	Microseconds int64
}

func (s *MemoryProfileSink) RecordPhase(cellName string, phase cell.Phase, pid int64, microseconds int64) {
	s.Records = append(s.Records, PhaseRecord{Cell: cellName, Phase: phase, PID: pid, Microseconds: microseconds})
}
