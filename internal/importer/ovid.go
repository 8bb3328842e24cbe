package importer

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bibport/bibport/internal/reference"
)

// Internal field markers. They are consumed while finalizing a record and
// never appear in an exported entry.
const (
	fieldChapterTitle = "chaptertitle"
	fieldEntryType    = "entrytype"
)

const (
	// ovidSniffLines is how many lines Sniff reads before giving up.
	ovidSniffLines = 50

	// fieldSeparator is inserted before every label line during segmentation.
	fieldSeparator = "\x00"
)

// ovidMarker matches the record delimiters Ovid puts before each record, e.g. <12>.
var ovidMarker = regexp.MustCompile(`<([0-9]+)>`)

// Ovid imports the plain-text export format of the Ovid literature database.
type Ovid struct{}

func init() {
	Register(Ovid{})
}

// Name returns the format identifier.
func (Ovid) Name() string { return "ovid" }

// Description returns a human-readable format description.
func (Ovid) Description() string { return "Ovid plain-text export" }

// Extensions returns file extensions associated with this format.
func (Ovid) Extensions() []string { return []string{".txt"} }

// Sniff reports whether any of the first 50 lines contains a record marker.
// Files whose first marker comes later are not recognized. PDF input is
// rejected up front since its hex strings can look like markers.
func (Ovid) Sniff(r io.Reader) (bool, error) {
	lines := newLineReader(r)
	for i := 0; i < ovidSniffLines && lines.Scan(); i++ {
		if i == 0 && strings.HasPrefix(lines.Text(), "%PDF-") {
			return false, nil
		}
		if ovidMarker.MatchString(lines.Text()) {
			return true, nil
		}
	}
	if err := lines.Err(); err != nil {
		return false, fmt.Errorf("reading ovid export: %w", err)
	}
	return false, nil
}

// Parse reads an Ovid export and returns one entry per record marker.
func (o Ovid) Parse(r io.Reader, opts Options) (*ParseResult, error) {
	opts = opts.withDefaults(o.Name())

	blocks, err := segmentOvid(r)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Entries: make([]reference.Entry, 0, len(blocks))}
	for _, block := range blocks {
		rec := parseOvidBlock(block, result, opts.Logger)
		result.Entries = append(result.Entries, rec.finalize(opts.IDs.Next()))
	}

	opts.Logger.Debug("parsed ovid export",
		slog.Int("entries", len(result.Entries)),
		slog.Int("warnings", len(result.Warnings)))

	return result, nil
}

// ovidBlock is the raw text of one record.
type ovidBlock struct {
	number string // digits of the record marker
	text   string
}

// segmentOvid reads the whole export, marks the start of every field with
// fieldSeparator, and splits the text on record markers. Text before the
// first marker is discarded.
func segmentOvid(r io.Reader) ([]ovidBlock, error) {
	var sb strings.Builder
	lines := newLineReader(r)
	for lines.Scan() {
		line := lines.Text()
		if line != "" && line[0] != ' ' && line[0] != '\t' {
			sb.WriteString(fieldSeparator)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("reading ovid export: %w", err)
	}

	text := norm.NFC.String(sb.String())
	markers := ovidMarker.FindAllStringSubmatchIndex(text, -1)

	blocks := make([]ovidBlock, 0, len(markers))
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		blocks = append(blocks, ovidBlock{
			number: text[m[2]:m[3]],
			text:   text[m[1]:end],
		})
	}
	return blocks, nil
}

// ovidFragment is one labeled field of a record.
type ovidFragment struct {
	label string
	body  string
}

// splitFragments splits a block into its labeled fields.
func splitFragments(block string) []ovidFragment {
	var fragments []ovidFragment
	for _, raw := range strings.Split(block, fieldSeparator) {
		label, body, _ := strings.Cut(raw, "\n")
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		fragments = append(fragments, ovidFragment{label: label, body: strings.TrimSpace(body)})
	}
	return fragments
}

// ovidRecord accumulates the fields of one record while it is parsed.
type ovidRecord struct {
	number string
	fields reference.Fields
}

func (rec *ovidRecord) set(name, value string) {
	rec.fields[name] = value
}

func parseOvidBlock(block ovidBlock, result *ParseResult, logger *slog.Logger) *ovidRecord {
	rec := &ovidRecord{number: block.number, fields: reference.Fields{}}
	ctx := &fieldContext{rec: rec, result: result, logger: logger}

	for _, frag := range splitFragments(block.text) {
		rule, ok := matchFieldRule(frag.label)
		if !ok {
			continue
		}
		body := frag.body
		if !rule.keepTrailingDot {
			body = stripTrailingDot(body)
		}
		ctx.label = frag.label
		rule.apply(ctx, body)
	}
	return rec
}

// finalize moves editors out of the author field, canonicalizes names,
// classifies the entry, and returns the finished entry.
func (rec *ovidRecord) finalize(id string) reference.Entry {
	h := rec.fields

	if author, ok := h[reference.FieldAuthor]; ok && strings.Contains(author, " [Ed]") {
		delete(h, reference.FieldAuthor)
		h[reference.FieldEditor] = strings.ReplaceAll(author, " [Ed]", "")
	}

	for _, name := range []string{reference.FieldAuthor, reference.FieldEditor} {
		if v, ok := h[name]; ok {
			h[name] = fixOvidNames(v)
		}
	}

	entryType := reference.DefaultType
	if t, ok := h[fieldEntryType]; ok {
		entryType = t
		delete(h, fieldEntryType)
	}
	if chapter, ok := h[fieldChapterTitle]; ok {
		if entryType == reference.TypeBook {
			entryType = reference.TypeIncollection
			h[reference.FieldTitle] = chapter
		}
		delete(h, fieldChapterTitle)
	}

	return reference.Entry{
		ID:     id,
		Type:   entryType,
		Fields: h,
		Source: reference.ImportSource{Type: "ovid", ID: rec.number},
	}
}

// stripTrailingDot removes trailing dots. Applying it twice is the same as
// applying it once.
func stripTrailingDot(s string) string {
	return strings.TrimRight(s, ".")
}

// lineReader yields the lines of r without their "\n" or "\r\n"
// terminator. Lines have no length limit.
type lineReader struct {
	r    *bufio.Reader
	line string
	err  error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// Scan advances to the next line, reporting false at EOF or on error.
func (l *lineReader) Scan() bool {
	if l.err != nil {
		return false
	}
	line, err := l.r.ReadString('\n')
	if err != nil {
		l.err = err
		if err != io.EOF || line == "" {
			return false
		}
	}
	line = strings.TrimSuffix(line, "\n")
	l.line = strings.TrimSuffix(line, "\r")
	return true
}

// Text returns the line read by the last Scan.
func (l *lineReader) Text() string { return l.line }

// Err returns the first read error other than io.EOF.
func (l *lineReader) Err() error {
	if l.err == io.EOF {
		return nil
	}
	return l.err
}
