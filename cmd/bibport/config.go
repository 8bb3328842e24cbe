package main

import (
	"fmt"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/importer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set library configuration values",
	Long: `Get or set library configuration values.

Usage:
  bibport config                        # Show all config
  bibport config id_style               # Get specific value
  bibport config default_format ovid    # Set value

Keys:
  default_format  Import format when --format is omitted (auto, ovid, paperpile, pdf)
  id_style        Generated ID style (sequence, uuid)
  id_prefix       Prefix for generated IDs (default: the format name)

The default library used outside any .bibport directory is set with
library_path in ~/.config/bibport/config.yml or BIBPORT_LIBRARY.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	if len(args) == 0 {
		if humanOutput {
			for _, key := range config.Keys {
				value, _ := cfg.Get(key)
				fmt.Printf("%-15s %s\n", key+":", value)
			}
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := args[0]

	if len(args) == 1 {
		value, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{key: value})
		}
		return nil
	}

	value := args[1]
	if key == "default_format" {
		if err := validateFormatName(value); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
	}
	if err := cfg.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s to %s\n", key, value)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	}
	return nil
}

// validateFormatName accepts "auto" or any registered format.
func validateFormatName(name string) error {
	if name == config.FormatAuto {
		return nil
	}
	if _, err := importer.Lookup(name); err != nil {
		return fmt.Errorf("invalid default_format: %w (valid: %s, %s)", err, config.FormatAuto, formatNames())
	}
	return nil
}
