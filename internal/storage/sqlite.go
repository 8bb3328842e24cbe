package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bibport/bibport/internal/author"
	"github.com/bibport/bibport/internal/reference"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. It is a query cache rebuilt from
// the JSONL library and never the source of truth.
type DB struct {
	db *sql.DB
}

// selectEntryFields contains the column list for SELECT queries.
const selectEntryFields = `id, type, source_type, source_id, fields_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			source_type TEXT,
			source_id TEXT,
			doi TEXT,
			title TEXT,
			journal TEXT,
			year INTEGER,
			fields_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi) WHERE doi IS NOT NULL AND doi != '';

		-- Cache metadata (jsonl_hash)
		CREATE TABLE IF NOT EXISTS _meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		-- Standalone full-text index
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			id,
			title,
			abstract,
			authors_text,
			keywords,
			year
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
// The file hash is recorded so NeedsSync can detect later edits.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	// Hash first: a concurrent write then leaves the cache marked stale.
	hash, err := ComputeJSONLHash(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("computing hash: %w", err)
	}

	entries, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("clearing entries table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return 0, fmt.Errorf("clearing entries_fts table: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT INTO entries (id, type, source_type, source_id, doi, title, journal, year, fields_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing entries insert: %w", err)
	}
	defer entryStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO entries_fts (id, title, abstract, authors_text, keywords, year)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, e := range entries {
		fieldsJSON, err := json.Marshal(e.Fields)
		if err != nil {
			return 0, fmt.Errorf("marshaling fields for %s: %w", e.ID, err)
		}

		_, err = entryStmt.Exec(
			e.ID, e.Type, e.Source.Type, nullableStringValue(e.Source.ID),
			nullableStringValue(e.DOI()), nullableStringValue(e.Title()),
			nullableStringValue(e.Get(reference.FieldJournal)), nullableYear(e.Year()),
			string(fieldsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}

		_, err = ftsStmt.Exec(
			e.ID, e.Title(), e.Get(reference.FieldAbstract),
			formatAuthorsText(e), e.Get(reference.FieldKeywords), e.Year(),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", e.ID, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES ('jsonl_hash', ?)`, hash); err != nil {
		return 0, fmt.Errorf("updating hash: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(entries), nil
}

// formatAuthorsText creates a searchable text representation of the
// authors and editors of an entry.
func formatAuthorsText(e reference.Entry) string {
	var names []string
	for _, a := range append(e.Authors(), e.Editors()...) {
		if a.First != "" {
			names = append(names, a.First+" "+a.Last)
		} else {
			names = append(names, a.Last)
		}
	}
	return strings.Join(names, ", ")
}

// GetByID retrieves an entry by its ID. It returns nil if no entry has that ID.
func (d *DB) GetByID(id string) (*reference.Entry, error) {
	row := d.db.QueryRow(`SELECT `+selectEntryFields+` FROM entries WHERE id = ?`, id)
	return scanEntry(row)
}

// Search performs a full-text search and returns matching entries.
func (d *DB) Search(query string, limit int) ([]reference.Entry, error) {
	return d.SearchWithFilters(SearchFilters{Keyword: query}, limit)
}

// SearchFilters contains optional filters for SearchWithFilters.
type SearchFilters struct {
	Keyword  string   // General keyword search across all indexed fields
	Authors  []string // Author names (AND logic, prefix matching)
	YearFrom int      // Minimum year (0 = no minimum)
	YearTo   int      // Maximum year (0 = no maximum)
	Type     string   // Exact entry type
	Journal  string   // Journal substring (case-insensitive)
}

// SearchWithFilters returns entries matching all specified filters.
func (d *DB) SearchWithFilters(filters SearchFilters, limit int) ([]reference.Entry, error) {
	var ftsTerms []string
	var args []any

	if q := prepareFTSQuery(filters.Keyword); q != "" {
		ftsTerms = append(ftsTerms, q)
	}
	for _, name := range filters.Authors {
		if q := prepareAuthorQuery(name); q != "" {
			ftsTerms = append(ftsTerms, "authors_text:"+q)
		}
	}

	query := `SELECT ` + selectEntryFields + ` FROM entries WHERE 1=1`
	if len(ftsTerms) > 0 {
		query += ` AND id IN (SELECT id FROM entries_fts WHERE entries_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	}

	if filters.YearFrom > 0 {
		query += " AND year >= ?"
		args = append(args, filters.YearFrom)
	}
	if filters.YearTo > 0 {
		query += " AND year <= ?"
		args = append(args, filters.YearTo)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}
	if filters.Journal != "" {
		query += " AND journal LIKE ?"
		args = append(args, "%"+filters.Journal+"%")
	}

	// FTS matches author words independently; the exact person check
	// happens after the query, so the limit must too.
	authorQueries := parseAuthorQueries(filters.Authors)
	query += " ORDER BY id"
	if limit > 0 && len(authorQueries) == 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil || len(authorQueries) == 0 {
		return entries, err
	}

	var matched []reference.Entry
	for _, e := range entries {
		people := append(e.Authors(), e.Editors()...)
		if author.AllMatch(authorQueries, people) {
			matched = append(matched, e)
			if limit > 0 && len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func parseAuthorQueries(names []string) []author.Query {
	var queries []author.Query
	for _, name := range names {
		if q := author.ParseQuery(name); q.Last != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// prepareAuthorQuery prepares an author name for FTS5 prefix matching,
// so "Sm" matches "Smith".
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	if len(parts) == 0 {
		return ""
	}

	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, ",.")
		if part == "" {
			continue
		}
		terms = append(terms, "\""+strings.ReplaceAll(part, "\"", "\"\"")+"\"*")
	}
	if len(terms) == 0 {
		return ""
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

// ListAll returns all entries ordered by ID. A limit of 0 means no limit.
func (d *DB) ListAll(limit int) ([]reference.Entry, error) {
	return d.SearchWithFilters(SearchFilters{}, limit)
}

// Count returns the total number of entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*reference.Entry, error) {
	var e reference.Entry
	var sourceType, sourceID sql.NullString
	var fieldsJSON string

	if err := s.Scan(&e.ID, &e.Type, &sourceType, &sourceID, &fieldsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.Source = reference.ImportSource{Type: sourceType.String, ID: sourceID.String}

	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("parsing fields JSON for %s: %w", e.ID, err)
	}
	if e.Fields == nil {
		e.Fields = reference.Fields{}
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]reference.Entry, error) {
	var entries []reference.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableYear stores the leading four digits of a year field, or NULL.
func nullableYear(s string) sql.NullInt64 {
	s = strings.TrimSpace(s)
	if len(s) > 4 {
		s = s[:4]
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(year), Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~.,") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
