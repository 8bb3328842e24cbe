package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify library integrity",
	Long: `Verify library integrity.

Every line of entries.jsonl is validated against the entry schema, and
duplicate IDs, duplicate DOIs, and leftover merge conflict markers are
reported. Exits with status 3 when issues are found.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Status  string          `json:"status"`
	Entries int             `json:"entries"`
	Issues  []storage.Issue `json:"issues"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()

	report, err := storage.Check(config.EntriesPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "checking entries: %v", err)
	}

	result := CheckResult{Status: "ok", Entries: report.Entries, Issues: report.Issues}
	if len(report.Issues) > 0 {
		result.Status = "issues_found"
	}

	if humanOutput {
		printCheckHuman(result)
	} else {
		outputJSON(result)
	}
	if len(report.Issues) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}

func printCheckHuman(result CheckResult) {
	fmt.Printf("Checked %d entries\n", result.Entries)
	if len(result.Issues) == 0 {
		fmt.Println("No issues found.")
		return
	}

	fmt.Printf("\nIssues (%d):\n", len(result.Issues))
	for _, is := range result.Issues {
		switch is.Type {
		case storage.IssueDuplicateDOI:
			fmt.Printf("  %s: %s shared by %s\n", is.Type, is.DOI, strings.Join(is.IDs, ", "))
		case storage.IssueDuplicateID:
			fmt.Printf("  %s: %s %s\n", is.Type, is.ID, is.Reason)
		default:
			fmt.Printf("  %s: line %d: %s\n", is.Type, is.Line, is.Reason)
		}
	}
}
