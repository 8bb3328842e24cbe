package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bibport/bibport/internal/importer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(detectCmd)
}

var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Report which import format recognizes a file",
	Long: `Report which registered import format recognizes a file.

Formats are tried in name order and the first one whose sniffer accepts
the input wins. File extensions are not consulted.

Example:
  bibport detect export.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

// DetectResult is the response for the detect command.
type DetectResult struct {
	Path        string   `json:"path"`
	Format      string   `json:"format"`
	Description string   `json:"description"`
	Extensions  []string `json:"extensions,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		exitWithError(ExitError, "opening file: %v", err)
	}
	defer f.Close()

	format, err := importer.Detect(f)
	if err != nil {
		if errors.Is(err, importer.ErrUnknownFormat) {
			exitWithError(ExitDataError, "no registered format recognizes %s (known: %s)", args[0], formatNames())
		}
		exitWithError(ExitError, "detecting format: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s: %s (%s)\n", args[0], format.Name(), format.Description())
	} else {
		outputJSON(DetectResult{
			Path:        args[0],
			Format:      format.Name(),
			Description: format.Description(),
			Extensions:  format.Extensions(),
		})
	}
	return nil
}
