package reference

import (
	"regexp"
	"strings"
	"unicode"
)

// Author represents a single personal name.
type Author struct {
	First string `json:"first"` // First/given name(s) or initials
	Last  string `json:"last"`  // Last/family name, including particles like "van"
}

// String formats the author as "Last, First", or just "Last" when no first
// name is known.
func (a Author) String() string {
	if a.First == "" {
		return a.Last
	}
	return a.Last + ", " + a.First
}

var andSeparator = regexp.MustCompile(`\s+and\s+`)

// ParseAuthors splits a BibTeX-style name list ("A and B and C") into authors.
// Each name may be written "Last, First" or "First Last".
func ParseAuthors(list string) []Author {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}

	var authors []Author
	for _, name := range andSeparator.Split(list, -1) {
		if a, ok := parseName(name); ok {
			authors = append(authors, a)
		}
	}
	return authors
}

// FormatAuthors joins authors as "Last, First and Last, First".
func FormatAuthors(authors []Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.String()
	}
	return strings.Join(names, " and ")
}

// FixLastNameFirst rewrites every name in a name list to "Last, First" form.
func FixLastNameFirst(list string) string {
	return FormatAuthors(ParseAuthors(list))
}

// parseName parses a single personal name. Lowercase particles that precede
// the family name ("van", "de la") are kept with it.
func parseName(name string) (Author, bool) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Author{}, false
	}

	if i := strings.Index(name, ","); i >= 0 {
		last := strings.TrimSpace(name[:i])
		first := strings.TrimSpace(strings.Trim(name[i+1:], ", "))
		if last == "" {
			return parseName(first)
		}
		return Author{First: first, Last: last}, true
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return Author{Last: parts[0]}, true
	}

	split := len(parts) - 1
	for i := 1; i < len(parts)-1; i++ {
		if startsLower(parts[i]) {
			split = i
			break
		}
	}
	return Author{
		First: strings.Join(parts[:split], " "),
		Last:  strings.Join(parts[split:], " "),
	}, true
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}
