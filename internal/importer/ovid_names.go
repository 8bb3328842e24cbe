package importer

import (
	"regexp"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// nameDisallowed matches anything but letters (with their combining marks)
// and the punctuation names use.
var nameDisallowed = regexp.MustCompile(`[^.\p{L}\p{M},;\- ]`)

// fixOvidNames converts an Ovid name list into a BibTeX name list.
//
// Ovid uses two list styles: "Last First; Last First;" and
// "Last F.  Last F." (names separated by two spaces). Anything else is
// passed through. The result is canonicalized to "Last, First" form.
func fixOvidNames(content string) string {
	var names []string

	switch {
	case strings.Contains(content, ";"):
		cleaned := nameDisallowed.ReplaceAllString(content, "")
		for _, seg := range strings.Split(cleaned, ";") {
			if seg = strings.TrimSpace(seg); seg != "" {
				names = append(names, commaAfterFirstToken(seg))
			}
		}
	case strings.Contains(content, "  "):
		for _, seg := range strings.Split(content, "  ") {
			if seg = strings.TrimSpace(seg); seg != "" {
				names = append(names, commaAfterFirstToken(seg))
			}
		}
	default:
		return reference.FixLastNameFirst(content)
	}

	return reference.FixLastNameFirst(strings.Join(names, " and "))
}

// commaAfterFirstToken turns "Smith John" into "Smith, John". Names that
// already contain a comma are returned unchanged.
func commaAfterFirstToken(name string) string {
	if strings.Contains(name, ",") {
		return name
	}
	return strings.Replace(name, " ", ", ", 1)
}
