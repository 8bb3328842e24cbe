package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/bibport/bibport/internal/reference"
)

// paperpileSniffBytes is how much of the input Sniff looks at.
const paperpileSniffBytes = 4096

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	// Try int directly
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexibleString(strconv.Itoa(i))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string `json:"_id"`
	Citekey   string `json:"citekey"`
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	Journal   string `json:"journal"`
	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	Pages     string `json:"pages"`
	Publisher string `json:"publisher"`
	Keywords  string `json:"keywords"`
	PubType   string `json:"pubtype"`
}

// Paperpile imports Paperpile JSON exports.
type Paperpile struct{}

func init() {
	Register(Paperpile{})
}

// Name returns the format identifier.
func (Paperpile) Name() string { return "paperpile" }

// Description returns a human-readable format description.
func (Paperpile) Description() string { return "Paperpile JSON export" }

// Extensions returns file extensions associated with this format.
func (Paperpile) Extensions() []string { return []string{".json"} }

// Sniff reports whether the input starts like a Paperpile JSON array.
func (Paperpile) Sniff(r io.Reader) (bool, error) {
	peek := make([]byte, paperpileSniffBytes)
	n, err := io.ReadFull(r, peek)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, fmt.Errorf("reading paperpile export: %w", err)
	}
	peek = bytes.TrimSpace(peek[:n])
	if len(peek) == 0 || peek[0] != '[' {
		return false, nil
	}
	return bytes.Contains(peek, []byte(`"citekey"`)) || bytes.Contains(peek, []byte(`"_id"`)), nil
}

// Parse parses a Paperpile JSON export. Entries that cannot be converted
// are skipped and reported as warnings.
func (p Paperpile) Parse(r io.Reader, opts Options) (*ParseResult, error) {
	opts = opts.withDefaults(p.Name())

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading paperpile export: %w", err)
	}

	var entries []PaperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing Paperpile JSON: %w", err)
	}

	result := &ParseResult{Entries: make([]reference.Entry, 0, len(entries))}
	for i, entry := range entries {
		e, err := paperpileEntryToEntry(entry, opts.IDs)
		if err != nil {
			result.warn(Warning{
				Record:  fmt.Sprintf("%d (%s)", i+1, entry.Citekey),
				Message: err.Error(),
			})
			opts.Logger.Debug("skipping paperpile entry",
				slog.Int("index", i+1),
				slog.String("error", err.Error()))
			continue
		}
		result.Entries = append(result.Entries, e)
	}

	return result, nil
}

// paperpileEntryToEntry converts a Paperpile entry to our Entry type.
func paperpileEntryToEntry(entry PaperpileEntry, ids reference.IDGenerator) (reference.Entry, error) {
	// Validate required fields
	if entry.Title == "" {
		return reference.Entry{}, fmt.Errorf("missing required field 'title'")
	}
	if len(entry.Author) == 0 {
		return reference.Entry{}, fmt.Errorf("missing required field 'author'")
	}
	if entry.Published.Year.String() == "" {
		return reference.Entry{}, fmt.Errorf("missing required field 'published.year'")
	}

	authors := make([]reference.Author, len(entry.Author))
	for i, a := range entry.Author {
		authors[i] = reference.Author{First: a.First, Last: a.Last}
	}

	year, err := strconv.Atoi(entry.Published.Year.String())
	if err != nil {
		return reference.Entry{}, fmt.Errorf("invalid year: %s", entry.Published.Year.String())
	}

	fields := reference.Fields{
		reference.FieldAuthor: reference.FormatAuthors(authors),
		reference.FieldTitle:  entry.Title,
		reference.FieldYear:   strconv.Itoa(year),
	}
	if entry.Published.Month.String() != "" {
		month, err := strconv.Atoi(entry.Published.Month.String())
		if err == nil && month >= 1 && month <= 12 {
			fields[reference.FieldMonth] = strconv.Itoa(month)
		}
	}

	optional := map[string]string{
		reference.FieldDOI:       entry.DOI,
		reference.FieldAbstract:  entry.Abstract,
		reference.FieldJournal:   entry.Journal,
		reference.FieldVolume:    entry.Volume,
		reference.FieldIssue:     entry.Issue,
		reference.FieldPages:     entry.Pages,
		reference.FieldPublisher: entry.Publisher,
		reference.FieldKeywords:  entry.Keywords,
	}
	for name, value := range optional {
		if value != "" {
			fields[name] = value
		}
	}
	if pages, ok := fields[reference.FieldPages]; ok {
		fields[reference.FieldPages] = normalizePages(pages)
	}

	// Use citekey as ID, falling back to Paperpile ID, then a generated one
	id := entry.Citekey
	if id == "" {
		id = entry.ID
	}
	if id == "" {
		id = ids.Next()
	}

	return reference.Entry{
		ID:     id,
		Type:   paperpileEntryType(entry.PubType),
		Fields: fields,
		Source: reference.ImportSource{
			Type: "paperpile",
			ID:   entry.ID,
		},
	}, nil
}

// paperpileEntryType maps Paperpile publication types to entry types.
func paperpileEntryType(pubType string) string {
	switch pubType {
	case "", "JOUR", "journal-article", "article":
		return reference.TypeArticle
	case "BOOK", "book":
		return reference.TypeBook
	case "CHAP", "chapter":
		return reference.TypeIncollection
	case "CONF", "conference":
		return reference.TypeInproceedings
	default:
		return reference.DefaultType
	}
}
