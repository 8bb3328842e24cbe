package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// entrySchema describes one line of entries.jsonl.
const entrySchema = `{
	"type": "object",
	"required": ["id", "type", "fields"],
	"properties": {
		"id": {"type": "string", "minLength": 1, "pattern": "^\\S+$"},
		"type": {"enum": ["article", "book", "incollection", "inproceedings", "misc"]},
		"fields": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"source": {
			"type": "object",
			"properties": {
				"type": {"type": "string"},
				"id": {"type": "string"}
			}
		}
	}
}`

const entrySchemaURL = "entry.json"

// Issue types reported by Check.
const (
	IssueInvalidEntry   = "invalid_entry"
	IssueConflictMarker = "conflict_marker"
	IssueDuplicateID    = "duplicate_id"
	IssueDuplicateDOI   = "duplicate_doi"
)

// Issue is one integrity problem in a library file.
type Issue struct {
	Type   string   `json:"type"`
	Line   int      `json:"line,omitempty"`
	ID     string   `json:"id,omitempty"`
	IDs    []string `json:"ids,omitempty"`
	DOI    string   `json:"doi,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// CheckReport summarizes a library check.
type CheckReport struct {
	Entries int     `json:"entries"`
	Issues  []Issue `json:"issues"`
}

func compileEntrySchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(entrySchemaURL, strings.NewReader(entrySchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(entrySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Check validates every line of a JSONL library against the entry schema
// and reports duplicate IDs and DOIs. Unlike ReadAll it keeps going after
// a bad line. A missing file is an empty library.
func Check(path string) (*CheckReport, error) {
	schema, err := compileEntrySchema()
	if err != nil {
		return nil, err
	}

	report := &CheckReport{Issues: []Issue{}}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()

	idLines := make(map[string][]int)
	doiIDs := make(map[string][]string)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, MaxJSONLLineCapacity), MaxJSONLLineCapacity)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isConflictMarker(line) {
			report.Issues = append(report.Issues, Issue{
				Type:   IssueConflictMarker,
				Line:   lineNum,
				Reason: "unresolved merge conflict",
			})
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			report.Issues = append(report.Issues, Issue{Type: IssueInvalidEntry, Line: lineNum, Reason: err.Error()})
			continue
		}
		if err := schema.Validate(v); err != nil {
			report.Issues = append(report.Issues, Issue{Type: IssueInvalidEntry, Line: lineNum, Reason: schemaReason(err)})
			continue
		}

		obj := v.(map[string]any)
		id := obj["id"].(string)
		report.Entries++
		idLines[id] = append(idLines[id], lineNum)
		if doi, _ := obj["fields"].(map[string]any)["doi"].(string); doi != "" {
			key := strings.ToLower(strings.TrimSpace(doi))
			doiIDs[key] = append(doiIDs[key], id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries file: %w", err)
	}

	for _, id := range sortedKeys(idLines) {
		if lines := idLines[id]; len(lines) > 1 {
			report.Issues = append(report.Issues, Issue{
				Type:   IssueDuplicateID,
				ID:     id,
				Reason: fmt.Sprintf("on lines %s", joinInts(lines)),
			})
		}
	}
	for _, doi := range sortedKeys(doiIDs) {
		if ids := doiIDs[doi]; len(ids) > 1 {
			report.Issues = append(report.Issues, Issue{Type: IssueDuplicateDOI, DOI: doi, IDs: ids})
		}
	}
	return report, nil
}

func isConflictMarker(line string) bool {
	for _, m := range []string{"<<<<<<<", "=======", ">>>>>>>"} {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

// schemaReason reduces a validation error to its innermost cause.
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
