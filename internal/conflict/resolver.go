package conflict

import (
	"sort"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// typeField names the entry type in a FieldConflict.
const typeField = "type"

// Completeness weights; fields not listed count 1.
var fieldWeights = map[string]int{
	reference.FieldAbstract:  5,
	reference.FieldAuthor:    4,
	reference.FieldJournal:   3,
	reference.FieldBooktitle: 3,
	reference.FieldYear:      2,
}

// Resolve decides how a matched pair is resolved.
func Resolve(m Match) Plan {
	plan := Plan{EntryID: m.Ours.ID, DOI: nonEmpty(m.Ours.DOI(), m.Theirs.DOI())}

	if _, conflicts := Merge(m.Ours, m.Theirs); len(conflicts) > 0 {
		plan.Action = ActionConflict
		plan.Conflicts = conflicts
		plan.Reason = "true conflicts on: " + conflictFields(conflicts)
		return plan
	}

	if isComplementary(m.Ours, m.Theirs) {
		plan.Action = ActionMerge
		plan.Reason = "complementary fields merged"
		return plan
	}
	if m.Ours.Type != m.Theirs.Type {
		plan.Action = ActionMerge
		plan.Reason = "classified type merged"
		return plan
	}

	ours, theirs := Completeness(m.Ours), Completeness(m.Theirs)
	if ours == theirs {
		// Equal scores: a longer author list is more complete.
		ours, theirs = len(m.Ours.Authors()), len(m.Theirs.Authors())
	}
	switch {
	case ours > theirs:
		plan.Action, plan.Reason = ActionKeepOurs, "ours is more complete"
	case theirs > ours:
		plan.Action, plan.Reason = ActionKeepTheirs, "theirs is more complete"
	default:
		plan.Action, plan.Reason = ActionKeepOurs, "identical content, keeping ours"
	}
	return plan
}

// Apply returns the resolved entry for a plan without true conflicts.
// For ActionConflict it returns the merge with ours winning every conflict;
// use ApplyChoices to pick per field.
func Apply(m Match, plan Plan) reference.Entry {
	switch plan.Action {
	case ActionKeepTheirs:
		return m.Theirs.Clone()
	case ActionMerge, ActionConflict:
		merged, _ := Merge(m.Ours, m.Theirs)
		return merged
	default:
		return m.Ours.Clone()
	}
}

// ApplyChoices merges a conflicting pair, taking each conflicting field
// from the side choose picks.
func ApplyChoices(m Match, plan Plan, choose func(FieldConflict) Side) reference.Entry {
	merged, _ := Merge(m.Ours, m.Theirs)
	for _, fc := range plan.Conflicts {
		source := m.Ours
		if choose(fc) == SideTheirs {
			source = m.Theirs
		}
		if fc.Field == typeField {
			merged.Type = source.Type
			continue
		}
		merged.Fields[fc.Field] = source.Fields[fc.Field]
	}
	return merged
}

// Merge combines two versions of an entry. Fields set on only one side are
// kept; for author and editor lists the longer list wins. The ID and import
// source come from ours. Conflicting fields keep the ours value and are
// reported, sorted by field name.
func Merge(ours, theirs reference.Entry) (reference.Entry, []FieldConflict) {
	merged := ours.Clone()
	var conflicts []FieldConflict

	switch {
	case ours.Type == theirs.Type:
	case ours.Type == reference.DefaultType || ours.Type == "":
		merged.Type = theirs.Type
	case theirs.Type == reference.DefaultType || theirs.Type == "":
	default:
		conflicts = append(conflicts, FieldConflict{Field: typeField, Ours: ours.Type, Theirs: theirs.Type})
	}

	for _, name := range unionFieldNames(ours.Fields, theirs.Fields) {
		o, t := ours.Fields[name], theirs.Fields[name]
		var value string
		var ok bool
		switch name {
		case reference.FieldAuthor, reference.FieldEditor:
			value, ok = mergeNameList(o, t)
		case reference.FieldDOI:
			if value, ok = mergeString(o, t); !ok && strings.EqualFold(o, t) {
				value, ok = o, true
			}
		default:
			value, ok = mergeString(o, t)
		}
		if !ok {
			conflicts = append(conflicts, FieldConflict{Field: name, Ours: o, Theirs: t})
			continue
		}
		merged.Fields[name] = value
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Field < conflicts[j].Field })
	return merged, conflicts
}

func mergeString(ours, theirs string) (string, bool) {
	switch {
	case ours == "":
		return theirs, true
	case theirs == "", ours == theirs:
		return ours, true
	}
	return "", false
}

// mergeNameList keeps the longer " and "-separated name list. Lists of
// equal length must agree up to case.
func mergeNameList(ours, theirs string) (string, bool) {
	if v, ok := mergeString(ours, theirs); ok {
		return v, true
	}
	o, t := reference.ParseAuthors(ours), reference.ParseAuthors(theirs)
	switch {
	case len(o) > len(t):
		return ours, true
	case len(t) > len(o):
		return theirs, true
	case strings.EqualFold(ours, theirs):
		return ours, true
	}
	return "", false
}

// isComplementary reports whether each side has a field the other lacks.
func isComplementary(ours, theirs reference.Entry) bool {
	return hasFieldMissingFrom(ours, theirs) && hasFieldMissingFrom(theirs, ours)
}

func hasFieldMissingFrom(a, b reference.Entry) bool {
	for name, v := range a.Fields {
		if v != "" && b.Fields[name] == "" {
			return true
		}
	}
	return false
}

// Completeness scores how much metadata an entry carries.
func Completeness(e reference.Entry) int {
	score := 0
	for name, v := range e.Fields {
		if v == "" {
			continue
		}
		if w, ok := fieldWeights[name]; ok {
			score += w
		} else {
			score++
		}
	}
	return score
}

func unionFieldNames(a, b reference.Fields) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var names []string
	for _, f := range []reference.Fields{a, b} {
		for name := range f {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func conflictFields(conflicts []FieldConflict) string {
	names := make([]string, len(conflicts))
	for i, c := range conflicts {
		names[i] = c.Field
	}
	return strings.Join(names, ", ")
}
