// Package storage handles data persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// EntryWithAction pairs an entry with an import action.
type EntryWithAction struct {
	Entry       reference.Entry
	Action      string // new, update
	ExistingIdx int    // Index in existing entries (for updates)
}

// ReadAll reads all entries from a JSONL file.
func ReadAll(path string) ([]reference.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file means an empty library
		}
		return nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads JSONL entries from r. Empty lines are skipped.
func Decode(r io.Reader) ([]reference.Entry, error) {
	var entries []reference.Entry
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var e reference.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if e.Fields == nil {
			e.Fields = reference.Fields{}
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	return entries, nil
}

// Append adds an entry to the end of a JSONL file.
func Append(path string, e reference.Entry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening entries file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("writing newline: %w", err)
	}

	return nil
}

// WriteAll writes all entries to a JSONL file, replacing existing content.
func WriteAll(path string, entries []reference.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating entries file: %w", err)
	}
	defer f.Close()

	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding entry %d: %w", i, err)
		}

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	return nil
}

// ApplyActions returns a new entry list with updates applied in place and
// new entries appended. The input slice is not modified.
func ApplyActions(existing []reference.Entry, actions []EntryWithAction) []reference.Entry {
	out := make([]reference.Entry, len(existing))
	copy(out, existing)

	for _, a := range actions {
		if a.Action == "update" {
			out[a.ExistingIdx] = a.Entry
		}
	}
	for _, a := range actions {
		if a.Action == "new" {
			out = append(out, a.Entry)
		}
	}
	return out
}

// FindByDOI searches for an entry by DOI (case-insensitive).
func FindByDOI(entries []reference.Entry, doi string) (int, bool) {
	if doi == "" {
		return -1, false
	}
	for i, e := range entries {
		if strings.EqualFold(e.DOI(), doi) {
			return i, true
		}
	}
	return -1, false
}

// FindByID searches for an entry by ID.
func FindByID(entries []reference.Entry, id string) (int, bool) {
	for i, e := range entries {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}

// FindBySourceID searches for an entry by import source type and ID.
func FindBySourceID(entries []reference.Entry, sourceType, sourceID string) (int, bool) {
	if sourceID == "" {
		return -1, false
	}
	for i, e := range entries {
		if e.Source.Type == sourceType && e.Source.ID == sourceID {
			return i, true
		}
	}
	return -1, false
}

// GenerateUniqueID returns an ID that doesn't conflict with existing entries.
// If the base ID exists, appends -2, -3, etc.
func GenerateUniqueID(entries []reference.Entry, baseID string) string {
	if _, found := FindByID(entries, baseID); !found {
		return baseID
	}

	// Start at 2: baseID is taken, so first duplicate becomes baseID-2
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", baseID, i)
		if _, found := FindByID(entries, candidate); !found {
			return candidate
		}
	}
}
