package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/conflict"
	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
	"github.com/spf13/cobra"
)

// Interactive prompt choices
const (
	choiceOurs   = "1"
	choiceTheirs = "2"
)

var (
	resolveDryRun      bool
	resolveInteractive bool
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Show proposed resolution without modifying files")
	resolveCmd.Flags().BoolVar(&resolveInteractive, "interactive", false, "Prompt for true conflicts that cannot be auto-resolved")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve git merge conflicts in entries.jsonl",
	Long: `Resolve git merge conflicts in entries.jsonl using what bibport knows
about entries:
- entries with the same DOI (or ID) on both sides are the same work
- a side with fields the other lacks is merged in
- a longer author list is more complete

Fields set to different values on both sides are true conflicts and
need --interactive.

Examples:
  bibport resolve
  bibport resolve --dry-run --human
  bibport resolve --interactive`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

// ResolveOp is one resolution decision.
type ResolveOp struct {
	ID     string `json:"id"`
	DOI    string `json:"doi,omitempty"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// UnresolvedInfo names an entry with true conflicts.
type UnresolvedInfo struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

// ResolveResult is the response for the resolve command.
type ResolveResult struct {
	Conflicts     int              `json:"conflicts"`
	Merged        int              `json:"merged"`
	OursEntries   int              `json:"ours_entries"`
	TheirsEntries int              `json:"theirs_entries"`
	TotalEntries  int              `json:"total_entries"`
	Operations    []ResolveOp      `json:"operations,omitempty"`
	Unresolved    []UnresolvedInfo `json:"unresolved,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	entriesPath := config.EntriesPath(repoRoot)

	content, err := os.ReadFile(entriesPath)
	if err != nil {
		exitWithError(ExitError, "reading entries: %v", err)
	}

	parsed, err := conflict.ParseString(string(content))
	if err != nil {
		var perr conflict.ParseError
		if errors.As(err, &perr) {
			exitWithError(ExitDataError, "parsing entries.jsonl: %v", perr)
		}
		exitWithError(ExitError, "parsing entries.jsonl: %v", err)
	}

	if !parsed.HasConflicts() {
		if humanOutput {
			fmt.Println("No conflicts in entries.jsonl.")
		} else {
			outputJSON(ResolveResult{TotalEntries: len(conflict.Entries(parsed, nil))})
		}
		return nil
	}

	var chooser fieldChooser
	if resolveInteractive && !resolveDryRun {
		chooser = promptChooser(os.Stdin, os.Stdout)
	}
	result, resolved := resolveConflicts(parsed, chooser)

	if resolveDryRun || len(result.Unresolved) > 0 {
		if humanOutput {
			printResolveResultHuman(result, resolveDryRun)
		} else {
			outputJSON(result)
		}
		if !resolveDryRun {
			if humanOutput {
				fmt.Fprintln(os.Stderr, "\nerror: unresolvable conflicts require --interactive")
			}
			os.Exit(ExitDataError)
		}
		return nil
	}

	if err := storage.WriteAll(entriesPath, conflict.Entries(parsed, resolved)); err != nil {
		exitWithError(ExitError, "writing entries: %v", err)
	}

	if humanOutput {
		printResolveResultHuman(result, false)
		fmt.Printf("\nResolved entries written to %s\n", entriesPath)
	} else {
		outputJSON(result)
	}
	return nil
}

// fieldChooser picks a side for each true conflict of an entry. A nil
// chooser leaves true conflicts unresolved.
type fieldChooser func(entryID string, fc conflict.FieldConflict, n, total int) conflict.Side

// resolveConflicts resolves every region. resolved[i] holds the entries
// that replace region i.
func resolveConflicts(parsed *conflict.ParseResult, choose fieldChooser) (ResolveResult, [][]reference.Entry) {
	result := ResolveResult{Conflicts: len(parsed.Conflicts)}
	resolved := make([][]reference.Entry, len(parsed.Conflicts))

	for i, region := range parsed.Conflicts {
		matches := conflict.MatchEntries(region)
		var entries []reference.Entry

		for _, m := range matches.Matches {
			plan := conflict.Resolve(m)
			result.Operations = append(result.Operations, ResolveOp{
				ID: plan.EntryID, DOI: plan.DOI, Action: string(plan.Action), Reason: plan.Reason,
			})

			switch {
			case plan.Action != conflict.ActionConflict:
				entries = append(entries, conflict.Apply(m, plan))
				if plan.Action == conflict.ActionMerge {
					result.Merged++
				}
			case choose != nil:
				n := 0
				entries = append(entries, conflict.ApplyChoices(m, plan, func(fc conflict.FieldConflict) conflict.Side {
					n++
					return choose(plan.EntryID, fc, n, len(plan.Conflicts))
				}))
				result.Merged++
			default:
				fields := make([]string, len(plan.Conflicts))
				for j, fc := range plan.Conflicts {
					fields[j] = fc.Field
				}
				result.Unresolved = append(result.Unresolved, UnresolvedInfo{ID: plan.EntryID, Fields: fields})
			}
		}

		for _, e := range matches.OursOnly {
			entries = append(entries, e)
			result.OursEntries++
			result.Operations = append(result.Operations, ResolveOp{
				ID: e.ID, DOI: e.DOI(), Action: string(conflict.ActionAddOurs), Reason: "entry only in ours",
			})
		}
		for _, e := range matches.TheirsOnly {
			entries = append(entries, e)
			result.TheirsEntries++
			result.Operations = append(result.Operations, ResolveOp{
				ID: e.ID, DOI: e.DOI(), Action: string(conflict.ActionAddTheirs), Reason: "entry only in theirs",
			})
		}

		resolved[i] = entries
	}

	result.TotalEntries = len(conflict.Entries(parsed, resolved))
	return result, resolved
}

// promptChooser asks on out for each true conflict and reads the answer
// from in.
func promptChooser(in io.Reader, out io.Writer) fieldChooser {
	reader := bufio.NewReader(in)
	return func(entryID string, fc conflict.FieldConflict, n, total int) conflict.Side {
		fmt.Fprintf(out, "\nResolving conflict %d of %d for %s...\n", n, total, entryID)
		fmt.Fprintf(out, "Conflict in field '%s':\n", fc.Field)
		fmt.Fprintf(out, "  [%s] ours:   %q\n", choiceOurs, truncateString(fc.Ours, 60))
		fmt.Fprintf(out, "  [%s] theirs: %q\n", choiceTheirs, truncateString(fc.Theirs, 60))

		for {
			fmt.Fprintf(out, "Enter choice [%s/%s]: ", choiceOurs, choiceTheirs)
			input, err := reader.ReadString('\n')
			switch strings.TrimSpace(input) {
			case choiceOurs:
				return conflict.SideOurs
			case choiceTheirs:
				return conflict.SideTheirs
			}
			if err != nil {
				// Input closed: keep ours.
				fmt.Fprintln(out)
				return conflict.SideOurs
			}
			fmt.Fprintf(out, "Invalid choice. Please enter %s or %s.\n", choiceOurs, choiceTheirs)
		}
	}
}

func printResolveResultHuman(result ResolveResult, isDryRun bool) {
	if isDryRun {
		fmt.Println("Dry run - no changes made")
		fmt.Println()
	}

	fmt.Printf("Resolution summary:\n")
	fmt.Printf("  Conflict regions: %d\n", result.Conflicts)
	fmt.Printf("  Total entries: %d\n", result.TotalEntries)
	if result.Merged > 0 {
		fmt.Printf("  Merged: %d\n", result.Merged)
	}
	if result.OursEntries > 0 {
		fmt.Printf("  Added from ours: %d\n", result.OursEntries)
	}
	if result.TheirsEntries > 0 {
		fmt.Printf("  Added from theirs: %d\n", result.TheirsEntries)
	}

	if len(result.Operations) > 0 {
		fmt.Println()
		fmt.Println("Operations:")
		for _, op := range result.Operations {
			fmt.Printf("  %s: %s (%s)\n", op.ID, op.Action, op.Reason)
		}
	}

	if len(result.Unresolved) > 0 {
		fmt.Println()
		fmt.Printf("Unresolved conflicts (%d):\n", len(result.Unresolved))
		for _, u := range result.Unresolved {
			fmt.Printf("  %s: conflicts on %s\n", u.ID, strings.Join(u.Fields, ", "))
		}
	}
}
