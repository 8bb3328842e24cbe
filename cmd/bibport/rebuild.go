package main

import (
	"fmt"

	"github.com/bibport/bibport/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query cache from the library",
	Long: `Rebuild the SQLite query cache from the JSONL library file.

Queries resync the cache automatically when entries.jsonl changes. Use
this to force a rebuild if the cache becomes corrupted.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status  string `json:"status"`
	Entries int    `json:"entries"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenCache(repoRoot)
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.EntriesPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding entries database: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt query cache with %d entries\n", count)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Entries: count})
	}
	return nil
}
