package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bibport/bibport/internal/conflict"
)

const mergeConflict = `{"id":"ovid1","type":"article","fields":{"title":"Clean"}}
<<<<<<< HEAD
{"id":"ovid2","type":"article","fields":{"title":"Shared","doi":"10.1/a","abstract":"Ours."}}
{"id":"ovid3","type":"article","fields":{"title":"Disputed","year":"2020"}}
=======
{"id":"ovid2","type":"article","fields":{"title":"Shared","doi":"10.1/A","journal":"J"}}
{"id":"ovid3","type":"article","fields":{"title":"Disputed","year":"2021"}}
{"id":"ovid4","type":"book","fields":{"title":"Theirs only"}}
>>>>>>> import-branch
`

func TestResolveConflicts_Unresolved(t *testing.T) {
	parsed, err := conflict.ParseString(mergeConflict)
	if err != nil {
		t.Fatal(err)
	}

	result, resolved := resolveConflicts(parsed, nil)

	if result.Conflicts != 1 || result.Merged != 1 || result.TheirsEntries != 1 {
		t.Errorf("result = %+v, want 1 region, 1 merged, 1 from theirs", result)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0].ID != "ovid3" {
		t.Fatalf("Unresolved = %+v, want ovid3", result.Unresolved)
	}
	if fields := result.Unresolved[0].Fields; len(fields) != 1 || fields[0] != "year" {
		t.Errorf("Unresolved fields = %v, want [year]", fields)
	}
	// ovid2 (merged) and ovid4; ovid3 is held back.
	if len(resolved[0]) != 2 {
		t.Errorf("resolved = %d entries, want 2", len(resolved[0]))
	}
}

func TestResolveConflicts_WithChooser(t *testing.T) {
	parsed, err := conflict.ParseString(mergeConflict)
	if err != nil {
		t.Fatal(err)
	}

	choose := func(id string, fc conflict.FieldConflict, n, total int) conflict.Side {
		if id != "ovid3" || fc.Field != "year" || n != 1 || total != 1 {
			t.Errorf("chooser called with %s %+v %d/%d", id, fc, n, total)
		}
		return conflict.SideTheirs
	}
	result, resolved := resolveConflicts(parsed, choose)

	if len(result.Unresolved) != 0 {
		t.Errorf("Unresolved = %+v, want none", result.Unresolved)
	}
	if result.TotalEntries != 4 {
		t.Errorf("TotalEntries = %d, want 4", result.TotalEntries)
	}

	entries := conflict.Entries(parsed, resolved)
	byID := map[string]int{}
	for i, e := range entries {
		byID[e.ID] = i
	}
	if e := entries[byID["ovid3"]]; e.Year() != "2021" {
		t.Errorf("ovid3 year = %q, want theirs", e.Year())
	}
	if e := entries[byID["ovid2"]]; e.Fields["abstract"] != "Ours." || e.Fields["journal"] != "J" {
		t.Errorf("ovid2 fields = %v, want merged", e.Fields)
	}
}

func TestPromptChooser(t *testing.T) {
	fc := conflict.FieldConflict{Field: "title", Ours: "One", Theirs: "Two"}

	var out bytes.Buffer
	choose := promptChooser(strings.NewReader("x\n2\n"), &out)
	if got := choose("ovid1", fc, 1, 1); got != conflict.SideTheirs {
		t.Errorf("choice = %v, want theirs", got)
	}
	if !strings.Contains(out.String(), "Invalid choice") {
		t.Errorf("output missing retry prompt:\n%s", out.String())
	}

	choose = promptChooser(strings.NewReader(""), &out)
	if got := choose("ovid1", fc, 1, 1); got != conflict.SideOurs {
		t.Errorf("choice on closed input = %v, want ours", got)
	}
}
