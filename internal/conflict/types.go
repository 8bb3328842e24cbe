// Package conflict resolves git merge conflicts in entries.jsonl using what
// it knows about bibliographic entries: DOIs identify works, and one side of
// a conflict often carries fields the other lacks.
package conflict

import (
	"fmt"

	"github.com/bibport/bibport/internal/reference"
)

// Region is one git conflict region in a JSONL file.
type Region struct {
	StartLine int // line of the <<<<<<< marker (1-indexed)
	EndLine   int // line of the >>>>>>> marker

	Ours   []reference.Entry
	Theirs []reference.Entry
}

// CleanLine is a line outside of any conflict region.
type CleanLine struct {
	LineNum int
	Content string
}

// ParseResult is a conflicted file split into clean lines and regions.
type ParseResult struct {
	CleanLines []CleanLine
	Conflicts  []Region
}

// HasConflicts reports whether any conflict region was found.
func (r *ParseResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// ParseError is a malformed marker sequence or an invalid JSON line.
type ParseError struct {
	Line    int
	Message string
	Context string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Match is an entry present on both sides of a region.
type Match struct {
	Ours      reference.Entry
	Theirs    reference.Entry
	MatchedBy string // "doi" or "id"
}

// MatchResult partitions the entries of a region.
type MatchResult struct {
	Matches    []Match
	OursOnly   []reference.Entry
	TheirsOnly []reference.Entry
}

// FieldConflict is a field both sides set to different values.
// Values are kept in full; truncation happens only at display time.
type FieldConflict struct {
	Field  string // a field name, or "type" for the entry type
	Ours   string
	Theirs string
}

// Action is how a matched pair is resolved.
type Action string

const (
	ActionKeepOurs   Action = "keep_ours"
	ActionKeepTheirs Action = "keep_theirs"
	ActionMerge      Action = "merge"
	ActionAddOurs    Action = "add_ours"
	ActionAddTheirs  Action = "add_theirs"
	ActionConflict   Action = "conflict" // needs a choice per field
)

// Plan describes the resolution of one matched pair.
type Plan struct {
	EntryID   string
	DOI       string
	Action    Action
	Reason    string
	Conflicts []FieldConflict
}

// Side picks one version of a conflicting field.
type Side int

const (
	SideOurs Side = iota
	SideTheirs
)
