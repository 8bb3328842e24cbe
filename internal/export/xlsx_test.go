package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/bibport/bibport/internal/reference"
)

func TestToXLSX(t *testing.T) {
	entries := []reference.Entry{
		{
			ID:   "ovid1",
			Type: reference.TypeArticle,
			Fields: reference.Fields{
				reference.FieldAuthor:  "Smith, J. and Doe, K.",
				reference.FieldTitle:   "A Study",
				reference.FieldYear:    "2020",
				reference.FieldJournal: "Journal of Testing",
				reference.FieldPages:   "45--50",
			},
		},
		{
			ID:   "ovid2",
			Type: reference.TypeIncollection,
			Fields: reference.Fields{
				reference.FieldTitle:     "A Chapter",
				reference.FieldBooktitle: "Handbook",
			},
		},
	}

	data, err := ToXLSX(entries)
	if err != nil {
		t.Fatalf("ToXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != XLSXSheet {
		t.Errorf("sheets = %v, want [%s]", sheets, XLSXSheet)
	}

	rows, err := f.GetRows(XLSXSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}

	col := func(header string) int {
		for i, h := range rows[0] {
			if h == header {
				return i
			}
		}
		t.Fatalf("no %q column in %v", header, rows[0])
		return -1
	}
	cell := func(row int, header string) string {
		i := col(header)
		if i >= len(rows[row]) {
			return ""
		}
		return rows[row][i]
	}

	if got := cell(1, "Author"); got != "Smith, J. and Doe, K." {
		t.Errorf("Author = %q", got)
	}
	if got := cell(1, "Pages"); got != "45--50" {
		t.Errorf("Pages = %q", got)
	}
	if got := cell(2, "Journal/Book"); got != "Handbook" {
		t.Errorf("Journal/Book for incollection = %q, want booktitle", got)
	}
	if got := cell(2, "Type"); got != "incollection" {
		t.Errorf("Type = %q", got)
	}
}

func TestToXLSX_Empty(t *testing.T) {
	data, err := ToXLSX(nil)
	if err != nil {
		t.Fatalf("ToXLSX(nil) error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(XLSXSheet)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestToXLSX_ColumnWidths(t *testing.T) {
	data, err := ToXLSX(nil)
	if err != nil {
		t.Fatalf("ToXLSX(nil) error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	for i, col := range xlsxColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			t.Fatalf("ColumnNumberToName(%d) error = %v", i+1, err)
		}
		got, err := f.GetColWidth(XLSXSheet, name)
		if err != nil {
			t.Fatalf("GetColWidth(%s) error = %v", name, err)
		}
		if got != col.width {
			t.Errorf("%s (%s) width = %v, want %v", name, col.header, got, col.width)
		}
	}
}
