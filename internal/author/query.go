// Package author parses author filters for search queries and matches them
// against the people on an entry.
package author

import (
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// Query is a parsed author filter.
type Query struct {
	First string // may be empty for last-name-only queries
	Last  string
}

// ParseQuery parses an author filter.
//
// Supported formats:
//   - "Smith"         → last="Smith"
//   - "John Smith"    → first="John", last="Smith"
//   - "Smith, John"   → first="John", last="Smith" (canonical form)
//
// Trailing dots are dropped from each part; prefix matching still lets
// "Smith, J" match a stored "Smith, J.".
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}

	if last, first, ok := strings.Cut(input, ","); ok && strings.TrimSpace(last) != "" {
		return Query{First: trimPart(first), Last: trimPart(last)}
	}

	parts := strings.Fields(input)
	if len(parts) == 1 {
		return Query{Last: trimPart(parts[0])}
	}

	// "John Q Smith" → first="John Q", last="Smith"
	return Query{
		First: trimPart(strings.Join(parts[:len(parts)-1], " ")),
		Last:  trimPart(parts[len(parts)-1]),
	}
}

func trimPart(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".")
}

// Matches reports whether the query matches a. Both names are
// case-insensitive prefix matches, so "Smi" matches "Smith" and "J"
// matches "John". The first name is checked only when the query has one.
func (q Query) Matches(a reference.Author) bool {
	if q.Last == "" || !hasFoldPrefix(a.Last, q.Last) {
		return false
	}
	return q.First == "" || hasFoldPrefix(a.First, q.First)
}

// MatchesAny reports whether the query matches any of authors.
func (q Query) MatchesAny(authors []reference.Author) bool {
	for _, a := range authors {
		if q.Matches(a) {
			return true
		}
	}
	return false
}

// AllMatch reports whether every query matches at least one of authors.
func AllMatch(queries []Query, authors []reference.Author) bool {
	for _, q := range queries {
		if !q.MatchesAny(authors) {
			return false
		}
	}
	return true
}

func hasFoldPrefix(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}
