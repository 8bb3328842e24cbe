package storage

import (
	"path/filepath"
	"testing"

	"github.com/bibport/bibport/internal/reference"
)

func TestComputeJSONLHash_MissingEqualsEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.jsonl")
	if err := WriteAll(empty, nil); err != nil {
		t.Fatal(err)
	}

	h1, err := ComputeJSONLHash(filepath.Join(dir, "missing.jsonl"))
	if err != nil {
		t.Fatalf("ComputeJSONLHash(missing) error = %v", err)
	}
	h2, err := ComputeJSONLHash(empty)
	if err != nil {
		t.Fatalf("ComputeJSONLHash(empty) error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("missing hash %s != empty hash %s", h1, h2)
	}
}

func TestDB_Sync(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "entries.jsonl")
	if err := WriteAll(jsonlPath, []reference.Entry{testEntry("a", "A", "")}); err != nil {
		t.Fatal(err)
	}

	db, err := OpenDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	// A fresh database has never been synced.
	stale, err := db.NeedsSync(jsonlPath)
	if err != nil {
		t.Fatalf("NeedsSync() error = %v", err)
	}
	if !stale {
		t.Error("NeedsSync() = false for a fresh database")
	}

	rebuilt, err := db.Sync(jsonlPath)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !rebuilt {
		t.Error("Sync() did not rebuild a stale cache")
	}

	rebuilt, err = db.Sync(jsonlPath)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if rebuilt {
		t.Error("Sync() rebuilt an up-to-date cache")
	}

	if err := Append(jsonlPath, testEntry("b", "B", "")); err != nil {
		t.Fatal(err)
	}
	if rebuilt, _ = db.Sync(jsonlPath); !rebuilt {
		t.Error("Sync() did not notice an appended entry")
	}
	if count, _ := db.Count(); count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}
