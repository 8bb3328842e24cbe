// Package reference defines the core domain types for bibliographic entries.
package reference

import "sort"

// Canonical field names. These match the BibTeX field names they export to.
const (
	FieldAuthor    = "author"
	FieldTitle     = "title"
	FieldJournal   = "journal"
	FieldVolume    = "volume"
	FieldIssue     = "issue"
	FieldPages     = "pages"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldEditor    = "editor"
	FieldBooktitle = "booktitle"
	FieldAddress   = "address"
	FieldPublisher = "publisher"
	FieldAbstract  = "abstract"
	FieldLanguage  = "language"
	FieldKeywords  = "keywords"
	FieldISSN      = "issn"
	FieldDOI       = "doi"
)

// Entry types.
const (
	TypeArticle       = "article"
	TypeBook          = "book"
	TypeIncollection  = "incollection"
	TypeInproceedings = "inproceedings"
	TypeMisc          = "misc"

	// DefaultType is used when an importer cannot classify an entry.
	DefaultType = TypeMisc
)

// FieldOrder is the order fields are written in when exporting.
// Fields not listed here are written afterwards in alphabetical order.
var FieldOrder = []string{
	FieldAuthor, FieldEditor, FieldTitle, FieldBooktitle, FieldJournal,
	FieldYear, FieldMonth, FieldVolume, FieldIssue, FieldPages,
	FieldAddress, FieldPublisher, FieldISSN, FieldDOI, FieldLanguage,
	FieldKeywords, FieldAbstract,
}

// Fields maps canonical field names to values.
type Fields map[string]string

// Entry is a single bibliographic record.
type Entry struct {
	ID     string       `json:"id"`
	Type   string       `json:"type"`
	Fields Fields       `json:"fields"`
	Source ImportSource `json:"source"`
}

// ImportSource tracks where an entry was imported from.
type ImportSource struct {
	Type string `json:"type"`         // ovid, paperpile, pdf, manual
	ID   string `json:"id,omitempty"` // Record number or ID in the source system
}

// Get returns the value of a field, or "" if it is not set.
func (e Entry) Get(name string) string {
	return e.Fields[name]
}

// Has reports whether a non-empty value is set for the field.
func (e Entry) Has(name string) bool {
	return e.Fields[name] != ""
}

// Title is shorthand for Get(FieldTitle).
func (e Entry) Title() string { return e.Fields[FieldTitle] }

// DOI is shorthand for Get(FieldDOI).
func (e Entry) DOI() string { return e.Fields[FieldDOI] }

// Year is shorthand for Get(FieldYear).
func (e Entry) Year() string { return e.Fields[FieldYear] }

// Authors parses the author field into individual names.
func (e Entry) Authors() []Author {
	return ParseAuthors(e.Fields[FieldAuthor])
}

// Editors parses the editor field into individual names.
func (e Entry) Editors() []Author {
	return ParseAuthors(e.Fields[FieldEditor])
}

// With returns a copy of the entry with the field set.
// An empty value removes the field. The receiver is not modified.
func (e Entry) With(name, value string) Entry {
	c := e.Clone()
	if value == "" {
		delete(c.Fields, name)
	} else {
		c.Fields[name] = value
	}
	return c
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	c.Fields = make(Fields, len(e.Fields))
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return c
}

// FieldNames returns the names of all set fields in export order.
func (e Entry) FieldNames() []string {
	seen := make(map[string]bool, len(e.Fields))
	var names []string
	for _, name := range FieldOrder {
		if e.Has(name) {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name, value := range e.Fields {
		if !seen[name] && value != "" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	return append(names, rest...)
}
