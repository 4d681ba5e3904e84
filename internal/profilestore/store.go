// Package profilestore persists per-cell phase timings to a SQLite
// database, grounded on internal/infra/sqlite's open/migrate/query
// shape. It does not persist socket values: only the cell name,
// phase, pid and microsecond duration observed on each process call.
package profilestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"circuitengine/cell"
)

// Store records cell phase timings into a SQLite database. It
// implements scheduler.ProfileSink.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a phase-timing database at path,
// migrating its schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile store directory: %w", err)
		}
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS phase_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cell TEXT NOT NULL,
	phase TEXT NOT NULL,
	pid INTEGER NOT NULL,
	microseconds INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize phase_records schema: %w", err)
	}

	return &Store{db: db}, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordPhase implements scheduler.ProfileSink.
func (s *Store) RecordPhase(cellName string, phase cell.Phase, pid int64, microseconds int64) {
	_, err := s.db.Exec(
		`INSERT INTO phase_records (cell, phase, pid, microseconds, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		cellName, string(phase), pid, microseconds, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		// Telemetry is best-effort: a write failure here must not abort
		// the scheduler sweep that triggered it.
		_ = err
	}
}

// PhaseSummary aggregates one cell/phase's recorded timings.
type PhaseSummary struct {
	Cell         string
	Phase        cell.Phase
	Calls        int64
	TotalMicros  int64
	MaxMicros    int64
}

// Summarize returns per-cell, per-phase aggregate timings across all
// recorded pids, ordered by total time descending.
func (s *Store) Summarize() ([]PhaseSummary, error) {
	rows, err := s.db.Query(`
SELECT cell, phase, COUNT(*), COALESCE(SUM(microseconds), 0), COALESCE(MAX(microseconds), 0)
FROM phase_records
GROUP BY cell, phase
ORDER BY SUM(microseconds) DESC`)
	if err != nil {
		return nil, fmt.Errorf("summarize phase records: %w", err)
	}
	defer rows.Close()

	var out []PhaseSummary
	for rows.Next() {
		var rec PhaseSummary
		var phase string
		if err := rows.Scan(&rec.Cell, &phase, &rec.Calls, &rec.TotalMicros, &rec.MaxMicros); err != nil {
			return nil, fmt.Errorf("scan phase summary: %w", err)
		}
		rec.Phase = cell.Phase(phase)
		out = append(out, rec)
	}
	return out, rows.Err()
}
