package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/importer"
	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	importFormat string
	importDryRun bool
)

func init() {
	importCmd.Flags().StringVar(&importFormat, "format", "", "Import format (auto, ovid, paperpile, pdf); default from config")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a database export",
	Long: `Import entries from a database export.

The format is detected from the file contents unless --format is given
or default_format is set in the library config.

Entries are matched against the library by DOI, then by ID. Matches
update the existing entry in place: imported fields overwrite, fields the
import lacks are kept, and the entry keeps its ID. Everything else is added.

Usage:
  bibport import export.txt
  bibport import --format ovid export.txt --dry-run
  bibport import --format paperpile library.json
  bibport import paper.pdf

Supported formats:
  ovid       - Ovid plain-text export
  paperpile  - Paperpile JSON export
  pdf        - Article PDF (DOI and title from the first pages)`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// ImportResult represents the result of an import operation.
type ImportResult struct {
	Format   string   `json:"format"`
	New      int      `json:"new"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings"`
}

// DryRunResult represents the result of a dry-run import.
type DryRunResult struct {
	Format      string         `json:"format"`
	WouldAdd    int            `json:"would_add"`
	WouldUpdate int            `json:"would_update"`
	WouldSkip   int            `json:"would_skip"`
	Warnings    []string       `json:"warnings"`
	Details     []ImportDetail `json:"details,omitempty"`
}

// ImportDetail describes a single import action.
type ImportDetail struct {
	ID     string `json:"id"`
	Action string `json:"action"` // new, update, skip
	Title  string `json:"title"`
	Reason string `json:"reason,omitempty"`
}

// importStats tracks import operation counts.
type importStats struct {
	newCount int
	updated  int
	skipped  int
}

// importPlan is the outcome of parsing and classifying an import,
// before anything is written.
type importPlan struct {
	format   importer.Format
	stats    importStats
	details  []ImportDetail
	warnings []string
	actions  []storage.EntryWithAction
}

func runImport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	f, err := os.Open(args[0])
	if err != nil {
		exitWithError(ExitError, "opening file: %v", err)
	}
	defer f.Close()

	entriesPath := config.EntriesPath(repoRoot)
	persisted, err := storage.ReadAll(entriesPath)
	if err != nil {
		exitWithError(ExitDataError, "reading existing entries: %v", err)
	}

	formatName := importFormat
	if formatName == "" {
		formatName = cfg.DefaultFormat
	}

	plan, err := planImport(f, formatName, cfg, persisted)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownFormat) {
			exitWithError(ExitDataError, "%v (known: %s)", err, formatNames())
		}
		exitWithError(ExitDataError, "%v", err)
	}

	if importDryRun {
		reportDryRun(plan)
		return nil
	}

	if err := storage.WriteAll(entriesPath, storage.ApplyActions(persisted, plan.actions)); err != nil {
		exitWithError(ExitError, "writing entries: %v", err)
	}

	reportImportResults(plan)
	return nil
}

// planImport parses r and classifies every entry against persisted.
func planImport(r io.ReadSeeker, formatName string, cfg *config.Config, persisted []reference.Entry) (*importPlan, error) {
	format, err := selectFormat(r, formatName)
	if err != nil {
		return nil, err
	}

	ids, err := newIDGenerator(cfg, format.Name(), persisted)
	if err != nil {
		return nil, err
	}

	result, err := format.Parse(r, importer.Options{IDs: ids, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("parsing %s input: %w", format.Name(), err)
	}
	logger.Debug("parsed import",
		slog.String("format", format.Name()),
		slog.Int("entries", len(result.Entries)),
		slog.Int("warnings", len(result.Warnings)))

	stats, details, actions := processImports(result.Entries, persisted)

	warnings := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		warnings[i] = w.String()
	}

	return &importPlan{
		format:   format,
		stats:    stats,
		details:  details,
		warnings: warnings,
		actions:  actions,
	}, nil
}

// selectFormat resolves a format name, sniffing the input for "auto" or "".
func selectFormat(r io.ReadSeeker, name string) (importer.Format, error) {
	if name == "" || name == config.FormatAuto {
		format, err := importer.Detect(r)
		if err != nil {
			return nil, fmt.Errorf("detecting format: %w", err)
		}
		return format, nil
	}
	return importer.Lookup(name)
}

// newIDGenerator builds the ID generator for an import. Sequences continue
// after the highest number already used with the same prefix, so generated
// IDs never collide with persisted ones.
func newIDGenerator(cfg *config.Config, formatName string, persisted []reference.Entry) (reference.IDGenerator, error) {
	prefix := cfg.IDPrefix
	if prefix == "" {
		prefix = formatName
	}
	if cfg.IDStyle == "" || cfg.IDStyle == "sequence" {
		return reference.NewSequenceFrom(prefix, highestSequence(persisted, prefix)), nil
	}
	return reference.NewGenerator(cfg.IDStyle, prefix)
}

// highestSequence returns the largest n such that prefix<n> is an entry ID.
func highestSequence(entries []reference.Entry, prefix string) uint64 {
	var highest uint64
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.ID, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.ParseUint(rest, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// processImports classifies each entry and builds the action list.
func processImports(incoming, persisted []reference.Entry) (importStats, []ImportDetail, []storage.EntryWithAction) {
	// The working set includes both persisted entries and in-progress imports,
	// so duplicates within a single batch are caught.
	working := make([]reference.Entry, len(persisted))
	copy(working, persisted)

	var stats importStats
	var details []ImportDetail
	var actions []storage.EntryWithAction
	pending := make(map[int]int) // persisted index -> its update in actions

	for _, e := range incoming {
		action := classifyImport(working, e)

		switch action.action {
		case "new":
			e.ID = storage.GenerateUniqueID(working, e.ID)
			actions = append(actions, storage.EntryWithAction{Entry: e, Action: "new"})
			working = append(working, e)
			stats.newCount++
		case "update":
			// existingIdx past persisted means the match was added earlier in this batch.
			if i, ok := pending[action.existingIdx]; ok {
				// A second record for an entry already updated by this batch
				// merges into that update and is not counted again.
				e = mergeUpdate(actions[i].Entry, e)
				actions[i].Entry = e
				action.reason = "merged_in_batch"
			} else if action.existingIdx < len(persisted) {
				e = mergeUpdate(persisted[action.existingIdx], e)
				pending[action.existingIdx] = len(actions)
				actions = append(actions, storage.EntryWithAction{Entry: e, Action: "update", ExistingIdx: action.existingIdx})
				stats.updated++
			} else {
				stats.skipped++
				action.action = "skip"
				action.reason = "duplicate_in_batch"
			}
		}

		details = append(details, ImportDetail{
			ID:     e.ID,
			Action: action.action,
			Title:  truncateString(e.Title(), ImportTitleMaxLen),
			Reason: action.reason,
		})
	}

	return stats, details, actions
}

// mergeUpdate overlays an incoming entry on the persisted one it matched.
// Incoming fields win; fields the import does not carry are kept, as is the
// persisted ID and any classified type the import can only report as misc.
func mergeUpdate(existing, incoming reference.Entry) reference.Entry {
	merged := existing.Clone()
	for name, value := range incoming.Fields {
		merged.Fields[name] = value
	}
	if incoming.Type != reference.DefaultType || merged.Type == "" {
		merged.Type = incoming.Type
	}
	merged.Source = incoming.Source
	return merged
}

type importAction struct {
	action      string // new, update, skip
	reason      string
	existingIdx int
}

// classifyImport determines what to do with an incoming entry.
// Panics if e has an empty ID, as this indicates a bug in the importer.
func classifyImport(existing []reference.Entry, e reference.Entry) importAction {
	if e.ID == "" {
		panic("classifyImport called with empty ID - importer bug")
	}

	if idx, found := storage.FindByDOI(existing, e.DOI()); found {
		return importAction{action: "update", reason: "doi_match", existingIdx: idx}
	}
	if idx, found := storage.FindByID(existing, e.ID); found {
		return importAction{action: "update", reason: "id_match", existingIdx: idx}
	}
	return importAction{action: "new"}
}

// formatNames lists the registered format names for error messages.
func formatNames() string {
	var names []string
	for _, f := range importer.Formats() {
		names = append(names, f.Name())
	}
	return strings.Join(names, ", ")
}

func printWarnings(header string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Println("\n" + header)
	for _, w := range warnings {
		fmt.Printf("  - %s\n", w)
	}
}

// reportDryRun outputs the dry-run results.
func reportDryRun(plan *importPlan) {
	if humanOutput {
		fmt.Printf("Dry run - would import from %s...\n", plan.format.Description())
		fmt.Printf("  Would add:    %d new entries\n", plan.stats.newCount)
		fmt.Printf("  Would update: %d existing entries (matched by DOI or ID)\n", plan.stats.updated)
		fmt.Printf("  Would skip:   %d (duplicates)\n", plan.stats.skipped)
		printWarnings("Warnings:", plan.warnings)
		return
	}
	outputJSON(DryRunResult{
		Format:      plan.format.Name(),
		WouldAdd:    plan.stats.newCount,
		WouldUpdate: plan.stats.updated,
		WouldSkip:   plan.stats.skipped,
		Warnings:    plan.warnings,
		Details:     plan.details,
	})
}

// reportImportResults outputs the actual import results.
func reportImportResults(plan *importPlan) {
	if humanOutput {
		fmt.Printf("Imported from %s:\n", plan.format.Description())
		fmt.Printf("  Added:   %d new entries\n", plan.stats.newCount)
		fmt.Printf("  Updated: %d existing entries (matched by DOI or ID)\n", plan.stats.updated)
		fmt.Printf("  Skipped: %d (duplicates)\n", plan.stats.skipped)
		printWarnings("Warnings:", plan.warnings)
		return
	}
	outputJSON(ImportResult{
		Format:   plan.format.Name(),
		New:      plan.stats.newCount,
		Updated:  plan.stats.updated,
		Skipped:  plan.stats.skipped,
		Warnings: plan.warnings,
	})
}
