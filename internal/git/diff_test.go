package git

import (
	"testing"

	"github.com/bibport/bibport/internal/reference"
)

func entry(id, title string) reference.Entry {
	return reference.Entry{
		ID:     id,
		Type:   reference.TypeArticle,
		Fields: reference.Fields{reference.FieldTitle: title},
	}
}

func ids(entries []reference.Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestDiffEntries(t *testing.T) {
	old := []reference.Entry{
		entry("ovid2", "Kept"),
		entry("ovid1", "Removed"),
		entry("ovid3", "Before"),
	}
	current := []reference.Entry{
		entry("ovid2", "Kept"),
		entry("ovid3", "After"),
		entry("ovid5", "New B"),
		entry("ovid4", "New A"),
	}

	diff := DiffEntries(old, current)

	if got := ids(diff.Added); len(got) != 2 || got[0] != "ovid4" || got[1] != "ovid5" {
		t.Errorf("Added = %v, want [ovid4 ovid5]", got)
	}
	if got := ids(diff.Removed); len(got) != 1 || got[0] != "ovid1" {
		t.Errorf("Removed = %v, want [ovid1]", got)
	}
	if got := ids(diff.Changed); len(got) != 1 || got[0] != "ovid3" {
		t.Errorf("Changed = %v, want [ovid3]", got)
	}
	if diff.Changed[0].Title() != "After" {
		t.Errorf("Changed[0].Title() = %q, want current version", diff.Changed[0].Title())
	}
}

func TestDiffEntries_NoChanges(t *testing.T) {
	entries := []reference.Entry{entry("a", "A"), entry("b", "B")}
	diff := DiffEntries(entries, []reference.Entry{entry("b", "B"), entry("a", "A")})
	if !diff.Empty() {
		t.Errorf("DiffEntries() = %+v, want empty", diff)
	}
}

func TestDiffEntries_FromNothing(t *testing.T) {
	diff := DiffEntries(nil, []reference.Entry{entry("a", "A")})
	if len(diff.Added) != 1 || len(diff.Removed) != 0 || len(diff.Changed) != 0 {
		t.Errorf("DiffEntries(nil, ...) = %+v", diff)
	}
}
