package importer

import (
	"regexp"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// Ovid writes the bibliographic source of a record as a free-text citation.
// There is no grammar for it, so a fixed list of patterns is tried in order
// and the first match wins. Citations matching none of them are lost, and a
// citation that fits several patterns is read by whichever comes first.

var (
	// Journal Of Testing. 12(3):45-50, 2020
	journalIssuePattern = regexp.MustCompile(
		`(?:Source )?([ \w&\-,:]+)\.[ ]+([0-9]+)\(([\w\-]+)\):([0-9]+-?[0-9]+?),.*([0-9]{4})`)

	// Journal Of Testing. 12:45-50, 2020
	journalNoIssuePattern = regexp.MustCompile(
		`(?:Source )?([ \w&\-,:]+)\.[ ]+([0-9]+):([0-9]+-?[0-9]+?),.*([0-9]{4})`)

	// Journal Of Testing. Vol 12(3) Mar 2020, 45-50
	journalVolPattern = regexp.MustCompile(
		`([ \w&\-,]+)\. Vol ([0-9]+)\(([\w\-]+)\) ([A-Za-z]+) ([0-9]{4}), ([0-9]+-?[0-9]+)`)

	// Smith J (Ed) (1999). Handbook. (pp. 10-20). xvi, 350 pp. New York: Wiley
	incollectionPattern = regexp.MustCompile(
		`(.+)\(([0-9]{4})\)\. ([ \w&\-,:]+)\.[ ]+\(pp. ([0-9]+-?[0-9]+?)\).[A-Za-z0-9, ]+pp\. ([\w, ]+): ([\w, ]+)`)

	// (2001). Wiley, 350 pp. New York: Wiley
	bookPattern = regexp.MustCompile(
		`\(([0-9]{4})\)\. [A-Za-z, ]+([0-9]+) pp\. ([\w, ]+): ([\w, ]+)`)
)

// sourceParser extracts fields from a source citation, reporting whether it
// recognized the text.
type sourceParser func(text string) (reference.Fields, bool)

// sourceParsers are tried in this order by parseSource.
var sourceParsers = []sourceParser{
	parseJournalIssueSource,
	parseJournalNoIssueSource,
	parseJournalVolSource,
	parseIncollectionSource,
	parseBookSource,
}

// parseSource returns the fields of the first source pattern matching text.
func parseSource(text string) (reference.Fields, bool) {
	for _, parse := range sourceParsers {
		if fields, ok := parse(text); ok {
			return fields, true
		}
	}
	return nil, false
}

func parseJournalIssueSource(text string) (reference.Fields, bool) {
	m := journalIssuePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return reference.Fields{
		reference.FieldJournal: m[1],
		reference.FieldVolume:  m[2],
		reference.FieldIssue:   m[3],
		reference.FieldPages:   m[4],
		reference.FieldYear:    m[5],
	}, true
}

func parseJournalNoIssueSource(text string) (reference.Fields, bool) {
	m := journalNoIssuePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return reference.Fields{
		reference.FieldJournal: m[1],
		reference.FieldVolume:  m[2],
		reference.FieldPages:   m[3],
		reference.FieldYear:    m[4],
	}, true
}

func parseJournalVolSource(text string) (reference.Fields, bool) {
	m := journalVolPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return reference.Fields{
		reference.FieldJournal: m[1],
		reference.FieldVolume:  m[2],
		reference.FieldIssue:   m[3],
		reference.FieldMonth:   m[4],
		reference.FieldYear:    m[5],
		reference.FieldPages:   m[6],
	}, true
}

func parseIncollectionSource(text string) (reference.Fields, bool) {
	m := incollectionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return reference.Fields{
		reference.FieldEditor:    strings.TrimSpace(strings.ReplaceAll(m[1], " (Ed)", "")),
		reference.FieldYear:      m[2],
		reference.FieldBooktitle: m[3],
		reference.FieldPages:     m[4],
		reference.FieldAddress:   m[5],
		reference.FieldPublisher: m[6],
	}, true
}

func parseBookSource(text string) (reference.Fields, bool) {
	m := bookPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return reference.Fields{
		reference.FieldYear:      m[1],
		reference.FieldPages:     m[2],
		reference.FieldAddress:   m[3],
		reference.FieldPublisher: m[4],
	}, true
}
