package export

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

var (
	// @type{key,
	bibEntryStart = regexp.MustCompile(`@\w+\s*\{\s*([^,\s]+)\s*,`)
	// doi = {value} or doi = "value", anywhere inside an entry
	bibDOIField = regexp.MustCompile(`(?i)\bdoi\s*=\s*[{"]([^}"]+)[}"]`)
	// resolver prefixes people paste in front of a DOI
	doiPrefix = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi\.org/|doi:\s*)`)
)

// BibTeXIndex records the citation keys and DOIs of an existing .bib file.
type BibTeXIndex struct {
	keys map[string]bool
	dois map[string]string // normalized DOI -> key
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{keys: map[string]bool{}, dois: map[string]string{}}
}

// Len returns the number of keys in the index.
func (idx *BibTeXIndex) Len() int { return len(idx.keys) }

// HasEntry reports whether an entry is already present, by DOI first and
// then by key.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi = normalizeDOI(doi); doi != "" {
		if _, ok := idx.dois[doi]; ok {
			return true
		}
	}
	return idx.keys[key]
}

// Add records an entry so later HasEntry calls see it.
func (idx *BibTeXIndex) Add(key, doi string) {
	idx.keys[key] = true
	if doi = normalizeDOI(doi); doi != "" {
		idx.dois[doi] = key
	}
}

// ParseBibTeXFile indexes the .bib file at path. A missing file is an
// empty index.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewBibTeXIndex(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseBibTeX(f)
}

// ParseBibTeX indexes BibTeX read from r. Each entry runs from its @type{
// line to the next one, so fields may span lines or share them.
func ParseBibTeX(r io.Reader) (*BibTeXIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading bibtex: %w", err)
	}
	text := string(data)

	idx := NewBibTeXIndex()
	starts := bibEntryStart.FindAllStringSubmatchIndex(text, -1)
	for i, m := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		key := text[m[2]:m[3]]
		var doi string
		if d := bibDOIField.FindStringSubmatch(text[m[1]:end]); d != nil {
			doi = d[1]
		}
		idx.Add(key, doi)
	}
	return idx, nil
}

func normalizeDOI(doi string) string {
	return strings.ToLower(doiPrefix.ReplaceAllString(strings.TrimSpace(doi), ""))
}

// AppendNew appends the entries not already present in the .bib file at
// path (matched by DOI, then key). It returns the IDs written and skipped.
func AppendNew(path string, entries []reference.Entry) (added, skipped []string, err error) {
	idx, err := ParseBibTeXFile(path)
	if err != nil {
		return nil, nil, err
	}

	var fresh []reference.Entry
	for _, e := range entries {
		if idx.HasEntry(e.ID, e.DOI()) {
			skipped = append(skipped, e.ID)
			continue
		}
		idx.Add(e.ID, e.DOI())
		fresh = append(fresh, e)
		added = append(added, e.ID)
	}
	if len(fresh) == 0 {
		return added, skipped, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	// A leading newline keeps the first entry off a previous unterminated line.
	if _, err := f.WriteString("\n" + ToBibTeXList(fresh)); err != nil {
		return nil, nil, err
	}
	return added, skipped, nil
}
