package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
	"github.com/spf13/cobra"
)

var (
	searchLimit   int
	searchAuthors []string
	searchYear    string
	searchType    string
	searchJournal string
)

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	searchCmd.Flags().StringArrayVarP(&searchAuthors, "author", "a", nil, "Search by author or editor name (can be repeated, uses AND logic)")
	searchCmd.Flags().StringVar(&searchYear, "year", "", "Filter by year: exact (2024), range (2020:2024), or open (2020: or :2024)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by entry type (article, book, incollection, ...)")
	searchCmd.Flags().StringVar(&searchJournal, "journal", "", "Filter by journal (partial match)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search entries by keyword, author, or year",
	Long: `Search entries with flexible filtering options.

The query searches titles, abstracts, keywords, author and editor
names, and years. Author filters take "Last", "First Last", or
"Last, First" and match by prefix, so "Sm" matches "Smith" and
"Smith, J" matches "Smith, John". First and last name must belong to
the same person. When multiple authors are given, all must match.

Year syntax:
  --year 2024         - Exact year
  --year 2020:2024    - Range (inclusive)
  --year 2020:        - 2020 and later
  --year :2020        - 2020 and earlier

Examples:
  bibport search "randomized trial"
  bibport search -a Smith --year 2015:
  bibport search --type incollection --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters := storage.SearchFilters{
		Authors: searchAuthors,
		Type:    searchType,
		Journal: searchJournal,
	}
	if len(args) > 0 {
		filters.Keyword = args[0]
	}
	if searchYear != "" {
		from, to, err := parseYearRange(searchYear)
		if err != nil {
			exitWithError(ExitError, "invalid year format: %v", err)
		}
		filters.YearFrom = from
		filters.YearTo = to
	}
	if !hasFilters(filters) {
		exitWithError(ExitError, "must specify a query or at least one filter (--author, --year, --type, --journal)")
	}

	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	entries, err := db.SearchWithFilters(filters, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
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

func hasFilters(f storage.SearchFilters) bool {
	return strings.TrimSpace(f.Keyword) != "" || len(f.Authors) > 0 ||
		f.YearFrom > 0 || f.YearTo > 0 || f.Type != "" || f.Journal != ""
}

// parseYearRange parses a --year value into from/to values.
// Supported formats: "2024", "2020:2024", "2020:", ":2024"
func parseYearRange(value string) (from, to int, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, nil
	}

	if start, end, isRange := strings.Cut(value, ":"); isRange {
		if start != "" {
			if from, err = strconv.Atoi(start); err != nil {
				return 0, 0, fmt.Errorf("invalid start year %q", start)
			}
		}
		if end != "" {
			if to, err = strconv.Atoi(end); err != nil {
				return 0, 0, fmt.Errorf("invalid end year %q", end)
			}
		}
		if from > 0 && to > 0 && from > to {
			return 0, 0, fmt.Errorf("start year %d is after end year %d", from, to)
		}
		return from, to, nil
	}

	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", value)
	}
	return year, year, nil
}
