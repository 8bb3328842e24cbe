package git

import (
	"reflect"
	"sort"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
)

// DiffSince compares the working tree entries.jsonl to commitRef.
func DiffSince(libRoot, commitRef string) (*EntryDiff, error) {
	old, err := EntriesAtCommit(libRoot, commitRef)
	if err != nil {
		return nil, err
	}

	current, err := storage.ReadAll(config.EntriesPath(libRoot))
	if err != nil {
		return nil, err
	}

	return DiffEntries(old, current), nil
}

// DiffEntries computes the changes from old to current, keyed by entry ID.
func DiffEntries(old, current []reference.Entry) *EntryDiff {
	oldByID := make(map[string]reference.Entry, len(old))
	for _, e := range old {
		oldByID[e.ID] = e
	}
	currentIDs := make(map[string]bool, len(current))

	diff := &EntryDiff{}
	for _, e := range current {
		currentIDs[e.ID] = true
		prev, existed := oldByID[e.ID]
		switch {
		case !existed:
			diff.Added = append(diff.Added, e)
		case !reflect.DeepEqual(prev, e):
			diff.Changed = append(diff.Changed, e)
		}
	}
	for _, e := range old {
		if !currentIDs[e.ID] {
			diff.Removed = append(diff.Removed, e)
		}
	}

	sortByID(diff.Added)
	sortByID(diff.Removed)
	sortByID(diff.Changed)
	return diff
}

func sortByID(entries []reference.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}
