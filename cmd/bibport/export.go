package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bibport/bibport/internal/clipboard"
	"github.com/bibport/bibport/internal/export"
	"github.com/bibport/bibport/internal/reference"
	"github.com/spf13/cobra"
)

var (
	exportBibtex bool
	exportKeys   string
	exportAppend string
	exportCopy   bool
	exportXLSX   string
)

func init() {
	exportCmd.Flags().BoolVar(&exportBibtex, "bibtex", false, "Export to BibTeX format")
	exportCmd.Flags().StringVar(&exportKeys, "keys", "", "Export only specified IDs (comma-separated)")
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append to a .bib file, skipping entries already in it")
	exportCmd.Flags().BoolVar(&exportCopy, "clipboard", false, "Copy the BibTeX to the clipboard instead of printing it")
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "Write entries to an Excel workbook at this path")
	exportCmd.MarkFlagsMutuallyExclusive("append", "clipboard")
	exportCmd.MarkFlagsMutuallyExclusive("bibtex", "xlsx")
	exportCmd.MarkFlagsOneRequired("bibtex", "xlsx")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries to BibTeX or Excel",
	Long: `Export entries to BibTeX, or to an Excel workbook with --xlsx.

With --append, entries whose key or DOI already appear in the target
file are skipped and the rest are appended.

Examples:
  bibport export --bibtex
  bibport export --bibtex --keys ovid1,ovid2
  bibport export --bibtex > refs.bib
  bibport export --bibtex --append paper/refs.bib
  bibport export --bibtex --keys ovid1 --clipboard
  bibport export --xlsx library.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// AppendResult is the response for export --append.
type AppendResult struct {
	Path    string   `json:"path"`
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// XLSXResult is the response for export --xlsx.
type XLSXResult struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// CopyResult is the response for export --clipboard.
type CopyResult struct {
	Copied int `json:"copied"`
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportXLSX != "" && (exportAppend != "" || exportCopy) {
		exitWithError(ExitError, "--append and --clipboard apply only to --bibtex")
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	var entries []reference.Entry
	if exportKeys != "" {
		for _, key := range strings.Split(exportKeys, ",") {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			e, err := db.GetByID(key)
			if err != nil {
				exitWithError(ExitError, "getting entry %s: %v", key, err)
			}
			if e == nil {
				exitWithError(ExitError, "unknown key: %s", key)
			}
			entries = append(entries, *e)
		}
	} else {
		var err error
		entries, err = db.ListAll(0)
		if err != nil {
			exitWithError(ExitError, "listing entries: %v", err)
		}
	}

	if exportXLSX != "" {
		data, err := export.ToXLSX(entries)
		if err != nil {
			exitWithError(ExitError, "building workbook: %v", err)
		}
		if err := os.WriteFile(exportXLSX, data, 0644); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportXLSX, err)
		}
		if humanOutput {
			fmt.Printf("Wrote %d entries to %s\n", len(entries), exportXLSX)
		} else {
			outputJSON(XLSXResult{Path: exportXLSX, Entries: len(entries)})
		}
		return nil
	}

	if exportCopy {
		if err := clipboard.Copy(export.ToBibTeXList(entries)); err != nil {
			if errors.Is(err, clipboard.ErrUnavailable) {
				exitWithError(ExitError, "no clipboard tool found (install pbcopy, wl-copy, xclip, or xsel)")
			}
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		if humanOutput {
			fmt.Printf("Copied %d entries to the clipboard\n", len(entries))
		} else {
			outputJSON(CopyResult{Copied: len(entries)})
		}
		return nil
	}

	if exportAppend == "" {
		// BibTeX is always text output, never JSON
		fmt.Print(export.ToBibTeXList(entries))
		return nil
	}

	added, skipped, err := export.AppendNew(exportAppend, entries)
	if err != nil {
		exitWithError(ExitError, "appending to %s: %v", exportAppend, err)
	}

	if humanOutput {
		fmt.Printf("Appended %d entries to %s (%d already present)\n", len(added), exportAppend, len(skipped))
	} else {
		if added == nil {
			added = []string{}
		}
		if skipped == nil {
			skipped = []string{}
		}
		outputJSON(AppendResult{Path: exportAppend, Added: added, Skipped: skipped})
	}
	return nil
}
