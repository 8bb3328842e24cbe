package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bibport/bibport/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new bibport library",
	Long: `Initialize a new bibport library in the current directory.

Creates:
  .bibport/
  ├── entries.jsonl   # Empty file
  ├── config.json     # Default config
  └── cache/          # Empty directory (gitignored)`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if err := initRepository(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized bibport library in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}

// initRepository creates the library layout under root.
func initRepository(root string) error {
	if config.IsRepository(root) {
		return fmt.Errorf("directory already contains a bibport library")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	f, err := os.Create(config.EntriesPath(root))
	if err != nil {
		return fmt.Errorf("creating %s: %w", config.EntriesFile, err)
	}
	f.Close()

	if err := config.Default().Save(root); err != nil {
		return fmt.Errorf("creating %s: %w", config.ConfigFile, err)
	}

	gitignore := []byte(config.CacheDir + "/\n")
	if err := os.WriteFile(filepath.Join(config.BibportPath(root), ".gitignore"), gitignore, 0644); err != nil {
		return fmt.Errorf("creating .gitignore: %w", err)
	}
	return nil
}
