package importer

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bibport/bibport/internal/reference"
)

// pdfScanPages is how many leading pages are searched for a DOI.
const pdfScanPages = 3

// minTitleLen skips running heads and page numbers when guessing a title.
const minTitleLen = 20

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// PDF imports a single article PDF. Only the DOI and a best-guess title are
// recovered, so the entry is most useful when it matches an existing one.
type PDF struct{}

func init() {
	Register(PDF{})
}

// Name returns the format identifier.
func (PDF) Name() string { return "pdf" }

// Description returns a human-readable format description.
func (PDF) Description() string { return "Article PDF (DOI and title only)" }

// Extensions returns file extensions associated with this format.
func (PDF) Extensions() []string { return []string{".pdf"} }

// Sniff reports whether the input starts with the PDF header.
func (PDF) Sniff(r io.Reader) (bool, error) {
	head := make([]byte, 5)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("reading pdf header: %w", err)
	}
	return string(head[:n]) == "%PDF-", nil
}

// Parse extracts the text of the first pages and returns one entry.
func (p PDF) Parse(r io.Reader, opts Options) (*ParseResult, error) {
	opts = opts.withDefaults(p.Name())

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading pdf: %w", err)
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	pages := pageTexts(doc, pdfScanPages)
	fields := reference.Fields{}
	if doi := findDOI(strings.Join(pages, "\n")); doi != "" {
		fields[reference.FieldDOI] = doi
	}
	if len(pages) > 0 {
		if title := guessTitle(pages[0]); title != "" {
			fields[reference.FieldTitle] = title
		}
	}

	id := opts.IDs.Next()
	result := &ParseResult{Entries: []reference.Entry{{
		ID:     id,
		Type:   reference.DefaultType,
		Fields: fields,
		Source: reference.ImportSource{Type: p.Name(), ID: id},
	}}}
	if _, ok := fields[reference.FieldDOI]; !ok {
		result.warn(Warning{Record: id, Message: "no DOI found in the first pages"})
	}

	opts.Logger.Debug("parsed pdf",
		slog.Int("pages", doc.NumPage()),
		slog.String("doi", fields[reference.FieldDOI]))

	return result, nil
}

// pageTexts returns the plain text of up to limit leading pages. Pages that
// fail to decode are skipped.
func pageTexts(doc *pdf.Reader, limit int) []string {
	limit = min(limit, doc.NumPage())
	var texts []string
	for i := 1; i <= limit; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// findDOI returns the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// guessTitle returns the first long line of a page that is not a running head.
func guessTitle(page string) string {
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minTitleLen && !isRunningHead(line) {
			return stripTrailingDot(line)
		}
	}
	return ""
}

func isRunningHead(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"), strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
