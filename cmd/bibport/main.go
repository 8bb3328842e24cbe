// Package main provides the bibport CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool

	// logger receives diagnostics on stderr; configured before each command runs.
	logger = slog.New(slog.DiscardHandler)
)

func main() {
	// A missing .env is fine; anything else is worth knowing about.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibport",
	Short: "Agent-first bibliography importer",
	Long: `bibport imports bibliographic records from database exports into a
git-versionable library and exports them as BibTeX.

Supported inputs include Ovid plain-text exports, Paperpile JSON and
article PDFs. Entries are stored in .bibport/entries.jsonl with an
ephemeral SQLite cache for queries.

The library is meant to live in git. Use diff to see what an import
changed and resolve to merge conflicting branches.

All commands output JSON by default for AI agent integration.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log diagnostics to stderr")
	rootCmd.Version = Version
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// mustFindRepository finds the library for the current directory, exits on error.
// Returns the library root path.
func mustFindRepository() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	repoRoot, err := config.ResolveRepository(cwd)
	if err != nil {
		if errors.Is(err, config.ErrNotRepository) {
			fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
			os.Exit(ExitConfigError)
		}
		exitWithError(ExitConfigError, "finding library: %v", err)
	}
	logger.Debug("using library", slog.String("root", repoRoot))
	return repoRoot
}

// mustOpenDatabase opens the SQLite cache and resyncs it if entries.jsonl
// changed since the last rebuild. Exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	db := mustOpenCache(repoRoot)
	rebuilt, err := db.Sync(config.EntriesPath(repoRoot))
	if err != nil {
		db.Close()
		exitWithError(ExitDataError, "syncing cache: %v (if entries.jsonl has merge conflicts, run 'bibport resolve')", err)
	}
	if rebuilt {
		logger.Debug("cache resynced from entries.jsonl")
	}
	return db
}

// mustOpenCache opens the SQLite cache without syncing it, exits on error.
func mustOpenCache(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}
