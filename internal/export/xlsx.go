package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bibport/bibport/internal/reference"
)

// XLSXSheet is the worksheet entries are written to.
const XLSXSheet = "Entries"

type xlsxColumn struct {
	header string
	width  float64
	value  func(reference.Entry) string
}

func fieldColumn(header, name string, width float64) xlsxColumn {
	return xlsxColumn{header: header, width: width, value: func(e reference.Entry) string { return e.Get(name) }}
}

var xlsxColumns = []xlsxColumn{
	{header: "ID", width: 14, value: func(e reference.Entry) string { return e.ID }},
	{header: "Type", width: 14, value: func(e reference.Entry) string { return e.Type }},
	fieldColumn("Author", reference.FieldAuthor, 36),
	fieldColumn("Editor", reference.FieldEditor, 24),
	fieldColumn("Title", reference.FieldTitle, 60),
	fieldColumn("Year", reference.FieldYear, 8),
	{header: "Journal/Book", width: 36, value: func(e reference.Entry) string {
		if j := e.Get(reference.FieldJournal); j != "" {
			return j
		}
		return e.Get(reference.FieldBooktitle)
	}},
	fieldColumn("Volume", reference.FieldVolume, 8),
	fieldColumn("Issue", reference.FieldIssue, 8),
	fieldColumn("Pages", reference.FieldPages, 12),
	fieldColumn("Publisher", reference.FieldPublisher, 24),
	fieldColumn("DOI", reference.FieldDOI, 28),
	fieldColumn("Keywords", reference.FieldKeywords, 36),
}

// ToXLSX returns an XLSX workbook (as bytes) with one row per entry.
func ToXLSX(entries []reference.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than adding a second one.
	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, col := range xlsxColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("addressing header: %w", err)
		}
		if err := f.SetCellValue(XLSXSheet, cell, col.header); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("naming column %d: %w", i+1, err)
		}
		if err := f.SetColWidth(XLSXSheet, name, name, col.width); err != nil {
			return nil, fmt.Errorf("sizing column %s: %w", name, err)
		}
	}

	for r, e := range entries {
		for i, col := range xlsxColumns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("addressing %s: %w", e.ID, err)
			}
			if err := f.SetCellStr(XLSXSheet, cell, col.value(e)); err != nil {
				return nil, fmt.Errorf("writing %s: %w", e.ID, err)
			}
		}
	}

	if err := f.SetPanes(XLSXSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freezing header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
