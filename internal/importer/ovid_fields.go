package importer

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// fieldContext is passed to field handlers while a record is parsed.
type fieldContext struct {
	rec    *ovidRecord
	result *ParseResult
	logger *slog.Logger
	label  string
}

// fieldRule maps a field label to a handler. Rules are evaluated in order
// and only the first match applies.
type fieldRule struct {
	name            string
	match           func(label string) bool
	apply           func(ctx *fieldContext, body string)
	keepTrailingDot bool
}

// ovidFieldRules is the label dispatch table. Labels not matched by any
// rule are ignored.
var ovidFieldRules = []fieldRule{
	{
		name:            "author",
		match:           isAuthorLabel,
		apply:           setField(reference.FieldAuthor),
		keepTrailingDot: true, // initials end in a dot
	},
	{
		name:  "title",
		match: hasPrefix("Title"),
		apply: applyTitle,
	},
	{
		name:  "chapter title",
		match: hasPrefix("Chapter Title"),
		apply: setField(fieldChapterTitle),
	},
	{
		name:  "source",
		match: hasPrefix("Source"),
		apply: applySource,
	},
	{
		name:  "abstract",
		match: equals("Abstract"),
		apply: setField(reference.FieldAbstract),
	},
	{
		name:  "publication type",
		match: equals("Publication Type"),
		apply: applyPublicationType,
	},
	{
		name:  "language",
		match: hasPrefix("Language"),
		apply: setField(reference.FieldLanguage),
	},
	{
		name:  "keywords",
		match: hasPrefix("Author Keywords"),
		apply: applyKeywords,
	},
	{
		name:  "issn",
		match: hasPrefix("ISSN"),
		apply: setField(reference.FieldISSN),
	},
	{
		name:  "doi",
		match: hasPrefix("DOI Number"),
		apply: setField(reference.FieldDOI),
	},
}

// matchFieldRule returns the first rule whose predicate accepts label.
func matchFieldRule(label string) (fieldRule, bool) {
	for _, rule := range ovidFieldRules {
		if rule.match(label) {
			return rule, true
		}
	}
	return fieldRule{}, false
}

func isAuthorLabel(label string) bool {
	return strings.HasPrefix(label, "Author") &&
		!strings.Contains(label, "Author Keywords") &&
		!strings.Contains(label, "Author e-mail")
}

func hasPrefix(prefix string) func(string) bool {
	return func(label string) bool { return strings.HasPrefix(label, prefix) }
}

func equals(want string) func(string) bool {
	return func(label string) bool { return label == want }
}

func setField(name string) func(*fieldContext, string) {
	return func(ctx *fieldContext, body string) {
		ctx.rec.set(name, body)
	}
}

var bracketAnnotation = regexp.MustCompile(`\[.+\]`)

// applyTitle drops bracketed annotations such as "[Review]".
func applyTitle(ctx *fieldContext, body string) {
	title := strings.TrimSpace(bracketAnnotation.ReplaceAllString(body, ""))
	ctx.rec.set(reference.FieldTitle, stripTrailingDot(title))
}

func applySource(ctx *fieldContext, body string) {
	text := body
	if text == "" {
		// Label and citation on one line: "Source Journal. 1(2):3-4, 2020"
		text = ctx.label
	}

	fields, ok := parseSource(text)
	if !ok {
		ctx.result.warn(Warning{
			Record:  ctx.rec.number,
			Field:   ctx.label,
			Message: "unrecognized source citation",
			Text:    text,
		})
		ctx.logger.Debug("unrecognized ovid source",
			slog.String("record", ctx.rec.number),
			slog.String("text", text))
		return
	}

	for name, value := range fields {
		ctx.rec.set(name, value)
	}
	if pages, ok := ctx.rec.fields[reference.FieldPages]; ok {
		ctx.rec.set(reference.FieldPages, normalizePages(pages))
	}
}

// publicationTypes maps substrings of the Publication Type field to entry
// types, checked in order.
var publicationTypes = []struct {
	substr    string
	entryType string
}{
	{"Book", reference.TypeBook},
	{"Journal", reference.TypeArticle},
	{"Conference Paper", reference.TypeInproceedings},
}

func applyPublicationType(ctx *fieldContext, body string) {
	for _, pt := range publicationTypes {
		if strings.Contains(body, pt.substr) {
			ctx.rec.set(fieldEntryType, pt.entryType)
			return
		}
	}
}

func applyKeywords(ctx *fieldContext, body string) {
	keywords := strings.ReplaceAll(body, ";", ",")
	keywords = strings.ReplaceAll(keywords, "  ", " ")
	ctx.rec.set(reference.FieldKeywords, keywords)
}

var hyphenRun = regexp.MustCompile(`-+`)

// normalizePages rewrites page ranges to use "--". Already normalized
// values are left unchanged.
func normalizePages(pages string) string {
	return hyphenRun.ReplaceAllString(pages, "--")
}
