package profilestore

import (
	"path/filepath"
	"testing"

	"circuitengine/cell"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "profile.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordPhaseThenSummarize(t *testing.T) {
	store := openTestStore(t)

	store.RecordPhase("adder", cell.ProcessPhase, 1, 100)
	store.RecordPhase("adder", cell.ProcessPhase, 2, 300)
	store.RecordPhase("adder", cell.ConfigPhase, 0, 50)
	store.RecordPhase("logger", cell.ProcessPhase, 1, 10)

	got, err := store.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Summarize returned %d rows, want 3", len(got))
	}

	// Highest total microseconds (adder/PROCESS: 400) sorts first.
	if got[0].Cell != "adder" || got[0].Phase != cell.ProcessPhase {
		t.Fatalf("got[0] = %+v, want adder/PROCESS first", got[0])
	}
	if got[0].Calls != 2 {
		t.Errorf("adder/PROCESS calls = %d, want 2", got[0].Calls)
	}
	if got[0].TotalMicros != 400 {
		t.Errorf("adder/PROCESS total = %d, want 400", got[0].TotalMicros)
	}
	if got[0].MaxMicros != 300 {
		t.Errorf("adder/PROCESS max = %d, want 300", got[0].MaxMicros)
	}
}

func TestStore_SummarizeEmpty(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Summarize on an empty store returned %d rows, want 0", len(got))
	}
}
