// Package git compares the library's entries.jsonl against git history.
package git

import "github.com/bibport/bibport/internal/reference"

// EntryDiff represents changes to entries.jsonl between two states.
// Each list is sorted by entry ID.
type EntryDiff struct {
	Added   []reference.Entry
	Removed []reference.Entry
	Changed []reference.Entry // current version of entries whose content differs
}

// Empty reports whether the diff has no changes.
func (d *EntryDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
