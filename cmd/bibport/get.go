package main

import (
	"fmt"
	"strings"

	"github.com/bibport/bibport/internal/reference"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single entry by ID",
	Long: `Get a single entry by its ID.

Example:
  bibport get ovid12`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	id := args[0]
	e, err := db.GetByID(id)
	if err != nil {
		exitWithError(ExitError, "getting entry: %v", err)
	}
	if e == nil {
		exitWithError(ExitError, "entry not found: %s", id)
	}

	if humanOutput {
		printEntryDetail(*e)
	} else {
		outputJSON(e)
	}
	return nil
}

func printEntryDetail(e reference.Entry) {
	fmt.Printf("%s (%s)\n", e.ID, e.Type)
	fmt.Println(strings.Repeat("═", DetailTitleMaxLen))
	fmt.Println()

	const indent = "             "
	for _, name := range e.FieldNames() {
		if name == reference.FieldAbstract {
			continue
		}
		fmt.Printf("%-12s %s\n", name+":", wrapText(e.Get(name), TextWrapWidth, indent))
	}

	if abstract := e.Get(reference.FieldAbstract); abstract != "" {
		fmt.Println()
		fmt.Println("Abstract:")
		fmt.Printf("  %s\n", wrapText(abstract, DetailTextWrapWidth, "  "))
	}

	if e.Source.Type != "" {
		fmt.Println()
		fmt.Printf("Source:      %s %s\n", e.Source.Type, e.Source.ID)
	}
}
