package main

import (
	"github.com/bibport/bibport/internal/reference"
	"github.com/spf13/cobra"
)

var listLimit int

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum entries to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries in the library",
	Long: `List entries in the library, ordered by ID.

Examples:
  bibport list
  bibport list --limit 20 --human`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	entries, err := db.ListAll(listLimit)
	if err != nil {
		exitWithError(ExitError, "listing entries: %v", err)
	}
	if entries == nil {
		entries = []reference.Entry{}
	}

	if humanOutput {
		printEntries(entries)
	} else {
		outputJSON(entries)
	}
	return nil
}
