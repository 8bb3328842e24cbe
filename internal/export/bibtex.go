// Package export provides functions to export entries to various formats.
package export

import (
	"fmt"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// verbatimFields are written without LaTeX escaping.
var verbatimFields = map[string]bool{
	reference.FieldAuthor: true,
	reference.FieldEditor: true,
	reference.FieldDOI:    true,
	reference.FieldPages:  true,
}

// ToBibTeX converts an entry to BibTeX format.
func ToBibTeX(e reference.Entry) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", determineEntryType(e), e.ID))

	for _, name := range e.FieldNames() {
		value := e.Get(name)
		if !verbatimFields[name] {
			value = escapeLatex(value)
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple entries to BibTeX format.
func ToBibTeXList(entries []reference.Entry) string {
	var out []string
	for _, e := range entries {
		out = append(out, ToBibTeX(e))
	}
	return strings.Join(out, "\n")
}

// determineEntryType returns the BibTeX entry type for an entry. Entries
// the importer could not classify are guessed from their venue.
func determineEntryType(e reference.Entry) string {
	if e.Type != "" && e.Type != reference.DefaultType {
		return e.Type
	}

	if e.Has(reference.FieldJournal) {
		return reference.TypeArticle
	}

	venue := strings.ToLower(e.Get(reference.FieldBooktitle))
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return reference.TypeInproceedings
	}

	return reference.DefaultType
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
