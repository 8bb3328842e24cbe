package main

import (
	"errors"
	"fmt"

	"github.com/bibport/bibport/internal/git"
	"github.com/bibport/bibport/internal/reference"
	"github.com/spf13/cobra"
)

var diffSince string

func init() {
	diffCmd.Flags().StringVar(&diffSince, "since", "HEAD", "Commit to compare against (SHA, HEAD~N, branch, tag)")
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show entries added, removed, or changed since a commit",
	Long: `Compare the working tree entries.jsonl with the version at a commit.

Useful for reviewing an import before committing it.

Examples:
  bibport diff
  bibport diff --since HEAD~3 --human`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

// DiffEntry is the summary of an entry in a diff.
type DiffEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    string `json:"year"`
}

// DiffResult is the response for the diff command.
type DiffResult struct {
	Since   string      `json:"since"`
	Added   []DiffEntry `json:"added"`
	Removed []DiffEntry `json:"removed"`
	Changed []DiffEntry `json:"changed"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	if _, err := git.FindRepoRoot(repoRoot); err != nil {
		exitWithError(ExitConfigError, "library at %s is not in a git repository", repoRoot)
	}

	diff, err := git.DiffSince(repoRoot, diffSince)
	if err != nil {
		if errors.Is(err, git.ErrCommitNotFound) {
			exitWithError(ExitError, "%v", err)
		}
		exitWithError(ExitDataError, "computing diff: %v", err)
	}

	result := DiffResult{
		Since:   diffSince,
		Added:   toDiffEntries(diff.Added),
		Removed: toDiffEntries(diff.Removed),
		Changed: toDiffEntries(diff.Changed),
	}

	if humanOutput {
		printDiffHuman(result)
	} else {
		outputJSON(result)
	}
	return nil
}

func toDiffEntries(entries []reference.Entry) []DiffEntry {
	out := make([]DiffEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DiffEntry{
			ID:      e.ID,
			Title:   e.Title(),
			Authors: formatAuthorsShort(e.Authors(), 2),
			Year:    e.Year(),
		})
	}
	return out
}

func printDiffHuman(result DiffResult) {
	if len(result.Added) == 0 && len(result.Removed) == 0 && len(result.Changed) == 0 {
		fmt.Printf("No changes since %s.\n", result.Since)
		return
	}

	fmt.Printf("Changes since %s:\n", result.Since)
	printDiffSection("Added", "+", result.Added)
	printDiffSection("Removed", "-", result.Removed)
	printDiffSection("Changed", "~", result.Changed)
}

func printDiffSection(heading, marker string, entries []DiffEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", heading, len(entries))
	for _, e := range entries {
		fmt.Printf("  %s %s: %s (%s, %s)\n", marker, e.ID, truncateString(e.Title, 50), e.Authors, e.Year)
	}
}
