package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	bibportBinary     string
	bibportBinaryOnce sync.Once
	bibportBinaryErr  error
)

// getBibportBinary builds the bibport binary once and returns its path.
func getBibportBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping CLI test in short mode")
	}
	bibportBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			bibportBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "bibport-test-*")
		if err != nil {
			bibportBinaryErr = err
			return
		}
		bibportBinary = filepath.Join(tmpDir, "bibport")

		cmd := exec.Command("go", "build", "-o", bibportBinary, "./cmd/bibport")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			bibportBinaryErr = &buildError{output: string(output), err: err}
		}
	})
	if bibportBinaryErr != nil {
		t.Fatalf("failed to build bibport: %v", bibportBinaryErr)
	}
	return bibportBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// setupLibrary runs bibport init in a fresh directory and returns it.
func setupLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if out, err := runBibport(t, dir, "init"); err != nil {
		t.Fatalf("init failed: %v\nOutput: %s", err, out)
	}
	return dir
}

// runBibport executes bibport in dir and returns its stdout.
// XDG_CONFIG_HOME points into dir so the user's global config is ignored.
func runBibport(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getBibportBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"BIBPORT_LIBRARY=",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_ImportAndQuery(t *testing.T) {
	dir := setupLibrary(t)
	input := writeFile(t, dir, "export.txt", ovidExport)

	out, err := runBibport(t, dir, "import", input)
	if err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}
	var result ImportResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Format != "ovid" || result.New != 2 || len(result.Warnings) != 1 {
		t.Errorf("import result = %+v, want 2 new ovid entries with 1 warning", result)
	}

	out, err = runBibport(t, dir, "get", "ovid1")
	if err != nil {
		t.Fatalf("get failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(out, `"journal": "Journal Of Testing"`) {
		t.Errorf("get output missing journal:\n%s", out)
	}

	out, err = runBibport(t, dir, "search", "-a", "Smith", "--year", "2020")
	if err != nil {
		t.Fatalf("search failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(out, `"id": "ovid1"`) || strings.Contains(out, `"id": "ovid2"`) {
		t.Errorf("search output = %s, want only ovid1", out)
	}

	// Re-importing updates the DOI match; the record without a DOI is added again.
	out, err = runBibport(t, dir, "import", "--format", "ovid", input)
	if err != nil {
		t.Fatalf("re-import failed: %v\nOutput: %s", err, out)
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.New != 1 {
		t.Errorf("re-import result = %+v, want 1 updated (DOI) and 1 new", result)
	}

	// dedupe folds the re-added record back by title.
	out, err = runBibport(t, dir, "dedupe", "--merge")
	if err != nil {
		t.Fatalf("dedupe failed: %v\nOutput: %s", err, out)
	}
	var dedupe DedupeResult
	if err := json.Unmarshal([]byte(out), &dedupe); err != nil {
		t.Fatal(err)
	}
	if dedupe.TotalDupes != 1 || len(dedupe.Groups) != 1 || dedupe.Groups[0].MatchedBy != "title" {
		t.Errorf("dedupe result = %+v, want one title duplicate", dedupe)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".bibport", "entries.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("library has %d entries after dedupe, want 2", n)
	}
}

func TestCLI_DryRunWritesNothing(t *testing.T) {
	dir := setupLibrary(t)
	input := writeFile(t, dir, "export.txt", ovidExport)

	if out, err := runBibport(t, dir, "import", "--dry-run", input); err != nil {
		t.Fatalf("dry run failed: %v\nOutput: %s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".bibport", "entries.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("dry run wrote entries: %s", data)
	}
}

func TestCLI_ExportAppend(t *testing.T) {
	dir := setupLibrary(t)
	input := writeFile(t, dir, "export.txt", ovidExport)
	if out, err := runBibport(t, dir, "import", input); err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}

	bib := writeFile(t, dir, "refs.bib", "@article{existing,\n  doi = {10.1000/TEST.1},\n}\n")

	out, err := runBibport(t, dir, "export", "--bibtex", "--append", bib)
	if err != nil {
		t.Fatalf("export failed: %v\nOutput: %s", err, out)
	}
	var result AppendResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if len(result.Added) != 1 || result.Added[0] != "ovid2" {
		t.Errorf("added = %v, want [ovid2]", result.Added)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "ovid1" {
		t.Errorf("skipped = %v, want [ovid1]", result.Skipped)
	}
}

func TestCLI_Detect(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "export.dat", ovidExport)

	out, err := runBibport(t, dir, "detect", input)
	if err != nil {
		t.Fatalf("detect failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(out, `"format": "ovid"`) {
		t.Errorf("detect output = %s, want ovid", out)
	}

	unknown := writeFile(t, dir, "notes.txt", "nothing to see\n")
	if _, err := runBibport(t, dir, "detect", unknown); err == nil {
		t.Error("detect should fail for unrecognized input")
	} else if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != ExitDataError {
		t.Errorf("detect error = %v, want exit code %d", err, ExitDataError)
	}
}

func TestCLI_NoLibrary(t *testing.T) {
	dir := t.TempDir()

	_, err := runBibport(t, dir, "list")
	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != ExitConfigError {
		t.Errorf("list outside a library: err = %v, want exit code %d", err, ExitConfigError)
	}
}

func TestCLI_Config(t *testing.T) {
	dir := setupLibrary(t)

	if out, err := runBibport(t, dir, "config", "id_prefix", "lib"); err != nil {
		t.Fatalf("config set failed: %v\nOutput: %s", err, out)
	}
	out, err := runBibport(t, dir, "config", "id_prefix")
	if err != nil {
		t.Fatalf("config get failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(out, `"id_prefix": "lib"`) {
		t.Errorf("config get = %s, want lib", out)
	}

	if _, err := runBibport(t, dir, "config", "default_format", "endnote"); err == nil {
		t.Error("config should reject an unregistered default_format")
	}
}

func TestCLI_Diff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := setupLibrary(t)
	gitCmd := func(args ...string) {
		t.Helper()
		base := []string{"-C", dir, "-c", "user.name=Test", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}
		if out, err := exec.Command("git", append(base, args...)...).CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	gitCmd("init", "-q")
	gitCmd("add", ".bibport")
	gitCmd("commit", "-q", "-m", "empty library")

	input := writeFile(t, dir, "export.txt", ovidExport)
	if out, err := runBibport(t, dir, "import", input); err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}

	out, err := runBibport(t, dir, "diff")
	if err != nil {
		t.Fatalf("diff failed: %v\nOutput: %s", err, out)
	}
	var result DiffResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if len(result.Added) != 2 || result.Added[0].ID != "ovid1" || len(result.Removed) != 0 {
		t.Errorf("diff = %+v, want ovid1 and ovid2 added", result)
	}

	if _, err := runBibport(t, dir, "diff", "--since", "no-such-ref"); err == nil {
		t.Error("diff --since unknown ref succeeded")
	}
}

func TestCLI_Resolve(t *testing.T) {
	dir := setupLibrary(t)
	writeFile(t, filepath.Join(dir, ".bibport"), "entries.jsonl", `<<<<<<< HEAD
{"id":"ovid1","type":"article","fields":{"title":"Shared","doi":"10.1/a","abstract":"Ours."}}
=======
{"id":"ovid1","type":"article","fields":{"title":"Shared","doi":"10.1/a","journal":"J"}}
{"id":"ovid2","type":"book","fields":{"title":"Theirs only"}}
>>>>>>> import-branch
`)

	// Queries refuse a conflicted library.
	if _, err := runBibport(t, dir, "list"); err == nil {
		t.Error("list succeeded on a conflicted entries.jsonl")
	}

	out, err := runBibport(t, dir, "resolve")
	if err != nil {
		t.Fatalf("resolve failed: %v\nOutput: %s", err, out)
	}
	var result ResolveResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Merged != 1 || result.TotalEntries != 2 {
		t.Errorf("resolve result = %+v, want 1 merged of 2", result)
	}

	out, err = runBibport(t, dir, "get", "ovid1")
	if err != nil {
		t.Fatalf("get failed: %v\nOutput: %s", err, out)
	}
	if !strings.Contains(out, `"journal": "J"`) || !strings.Contains(out, `"abstract": "Ours."`) {
		t.Errorf("merged entry missing fields:\n%s", out)
	}
}

func TestCLI_Check(t *testing.T) {
	dir := setupLibrary(t)

	out, err := runBibport(t, dir, "check")
	if err != nil {
		t.Fatalf("check on empty library failed: %v\nOutput: %s", err, out)
	}

	writeFile(t, filepath.Join(dir, ".bibport"), "entries.jsonl",
		`{"id":"ovid1","type":"article","fields":{"doi":"10.1/a"}}
{"id":"ovid2","type":"article","fields":{"doi":"10.1/A"}}
`)
	out, err = runBibport(t, dir, "check")
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != ExitDataError {
		t.Fatalf("check exit = %v, want %d", err, ExitDataError)
	}
	var result CheckResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Entries != 2 || len(result.Issues) != 1 || result.Issues[0].Type != "duplicate_doi" {
		t.Errorf("check result = %+v, want one duplicate_doi", result)
	}
}

func TestCLI_ExportXLSX(t *testing.T) {
	dir := setupLibrary(t)
	input := writeFile(t, dir, "export.txt", ovidExport)
	if out, err := runBibport(t, dir, "import", input); err != nil {
		t.Fatalf("import failed: %v\nOutput: %s", err, out)
	}

	target := filepath.Join(dir, "library.xlsx")
	out, err := runBibport(t, dir, "export", "--xlsx", target)
	if err != nil {
		t.Fatalf("export --xlsx failed: %v\nOutput: %s", err, out)
	}
	var result XLSXResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, out)
	}
	if result.Entries != 2 {
		t.Errorf("Entries = %d, want 2", result.Entries)
	}
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Errorf("workbook not written: %v", err)
	}

	if _, err := runBibport(t, dir, "export", "--bibtex", "--xlsx", target); err == nil {
		t.Error("export with both --bibtex and --xlsx succeeded")
	}
}
