package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search/list commands

	ImportTitleMaxLen = 60 // Used in import command output
	SearchTitleMaxLen = 70 // Used in search and list summaries
	DetailTitleMaxLen = 70 // Used in get command detail view

	TextWrapWidth       = 60
	DetailTextWrapWidth = 68
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range strings.Fields(text) {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatAuthorShort formats an author as "Last F" (abbreviated first name).
func formatAuthorShort(a reference.Author) string {
	if a.First != "" {
		return a.Last + " " + string([]rune(a.First)[0])
	}
	return a.Last
}

// formatAuthorsShort formats authors with abbreviation and "et al." for more than maxCount.
func formatAuthorsShort(authors []reference.Author, maxCount int) string {
	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, formatAuthorShort(a))
	}
	return strings.Join(names, ", ")
}

// printEntrySummary prints a numbered one-entry summary for search and list.
func printEntrySummary(num int, e reference.Entry) {
	fmt.Printf("[%d] %s (%s)\n", num, e.ID, e.Type)
	fmt.Printf("    %s\n", truncateString(e.Title(), SearchTitleMaxLen))

	people := e.Authors()
	if len(people) == 0 {
		people = e.Editors()
	}
	if len(people) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(people, 3))
	}

	venue := e.Get(reference.FieldJournal)
	if venue == "" {
		venue = e.Get(reference.FieldBooktitle)
	}
	switch {
	case venue != "" && e.Year() != "":
		fmt.Printf("    %s (%s)\n", venue, e.Year())
	case venue != "":
		fmt.Printf("    %s\n", venue)
	case e.Year() != "":
		fmt.Printf("    (%s)\n", e.Year())
	}
	fmt.Println()
}

// printEntries prints a result list for search and list.
func printEntries(entries []reference.Entry) {
	if len(entries) == 0 {
		fmt.Println("No entries found")
		return
	}
	fmt.Printf("Found %d entries:\n\n", len(entries))
	for i, e := range entries {
		printEntrySummary(i+1, e)
	}
}
