package main

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dedupeDryRun bool
	dedupeMerge  bool
)

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "Show duplicates without making changes")
	dedupeCmd.Flags().BoolVar(&dedupeMerge, "merge", false, "Merge duplicates into the first occurrence")
	dedupeCmd.MarkFlagsMutuallyExclusive("dry-run", "merge")
	dedupeCmd.MarkFlagsOneRequired("dry-run", "merge")
	rootCmd.AddCommand(dedupeCmd)
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find and merge duplicate entries",
	Long: `Find and merge duplicate entries in the library.

Entries are duplicates when they share a DOI (ignoring case). Entries
without a DOI are compared by Paperpile ID, and failing that by title
and year. Ovid record numbers are not used: they restart with every
export.

Merging keeps the first occurrence and fills in any fields it lacks
from the later ones.

Examples:
  bibport dedupe --dry-run
  bibport dedupe --merge`,
	Args: cobra.NoArgs,
	RunE: runDedupe,
}

// DuplicateGroup is a set of entries that describe the same work.
type DuplicateGroup struct {
	MatchedBy  string   `json:"matched_by"` // doi, source, title
	Key        string   `json:"key"`
	Primary    string   `json:"primary"`    // ID of the entry to keep
	Duplicates []string `json:"duplicates"` // IDs of entries to remove
}

// DedupeResult represents the result of a dedupe operation.
type DedupeResult struct {
	DryRun     bool             `json:"dry_run"`
	Groups     []DuplicateGroup `json:"groups"`
	TotalDupes int              `json:"total_duplicates"`
}

func runDedupe(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	entriesPath := config.EntriesPath(repoRoot)
	entries, err := storage.ReadAll(entriesPath)
	if err != nil {
		exitWithError(ExitDataError, "reading entries: %v", err)
	}

	groups := findDuplicateGroups(entries)
	totalDupes := 0
	for _, g := range groups {
		totalDupes += len(g.Duplicates)
	}

	if !dedupeDryRun && len(groups) > 0 {
		if err := storage.WriteAll(entriesPath, mergeDuplicates(entries, groups)); err != nil {
			exitWithError(ExitError, "writing entries: %v", err)
		}
	}

	if !humanOutput {
		if groups == nil {
			groups = []DuplicateGroup{}
		}
		outputJSON(DedupeResult{DryRun: dedupeDryRun, Groups: groups, TotalDupes: totalDupes})
		return nil
	}

	if len(groups) == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}
	verb := "Found"
	if !dedupeDryRun {
		verb = "Merged"
	}
	fmt.Printf("%s %d duplicate groups (%d duplicates):\n\n", verb, len(groups), totalDupes)
	for _, g := range groups {
		fmt.Printf("%s: %s\n", g.MatchedBy, g.Key)
		fmt.Printf("  Keep:   %s\n", g.Primary)
		fmt.Printf("  Remove: %s\n\n", strings.Join(g.Duplicates, ", "))
	}
	return nil
}

// duplicateKey returns the identity an entry is grouped by, or "" when the
// entry has nothing to compare on.
func duplicateKey(e reference.Entry) (matchedBy, key string) {
	if doi := strings.ToLower(strings.TrimSpace(e.DOI())); doi != "" {
		return "doi", doi
	}
	if e.Source.Type == "paperpile" && e.Source.ID != "" {
		return "source", e.Source.Type + ":" + e.Source.ID
	}
	if title := normalizeTitle(e.Title()); title != "" {
		return "title", title + " (" + e.Year() + ")"
	}
	return "", ""
}

// normalizeTitle lowercases a title and reduces it to its words.
func normalizeTitle(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(words, " ")
}

// findDuplicateGroups groups entries by duplicateKey. Groups come out in
// the order of their first entry.
func findDuplicateGroups(entries []reference.Entry) []DuplicateGroup {
	index := make(map[string]int)
	var groups []DuplicateGroup

	for _, e := range entries {
		matchedBy, key := duplicateKey(e)
		if key == "" {
			continue
		}
		mapKey := matchedBy + "\x00" + key
		if i, ok := index[mapKey]; ok {
			if e.ID == groups[i].Primary {
				continue // repeated IDs are reported by check
			}
			groups[i].Duplicates = append(groups[i].Duplicates, e.ID)
			continue
		}
		index[mapKey] = len(groups)
		groups = append(groups, DuplicateGroup{MatchedBy: matchedBy, Key: key, Primary: e.ID})
	}

	var dupes []DuplicateGroup
	for _, g := range groups {
		if len(g.Duplicates) > 0 {
			dupes = append(dupes, g)
		}
	}
	return dupes
}

// mergeDuplicates drops every duplicate and fills the fields its primary
// lacks. A misc primary takes the type of the first classified duplicate.
func mergeDuplicates(entries []reference.Entry, groups []DuplicateGroup) []reference.Entry {
	primaryOf := make(map[string]string)
	for _, g := range groups {
		for _, id := range g.Duplicates {
			primaryOf[id] = g.Primary
		}
	}

	byID := make(map[string]reference.Entry, len(entries))
	for _, e := range entries {
		if _, seen := byID[e.ID]; !seen {
			byID[e.ID] = e.Clone()
		}
	}

	for _, e := range entries {
		primaryID, ok := primaryOf[e.ID]
		if !ok {
			continue
		}
		primary := byID[primaryID]
		for name, value := range e.Fields {
			if !primary.Has(name) {
				primary.Fields[name] = value
			}
		}
		if primary.Type == reference.DefaultType && e.Type != reference.DefaultType {
			primary.Type = e.Type
		}
		byID[primaryID] = primary
	}

	out := make([]reference.Entry, 0, len(entries)-len(primaryOf))
	for _, e := range entries {
		if _, dup := primaryOf[e.ID]; dup {
			continue
		}
		out = append(out, byID[e.ID])
	}
	return out
}
