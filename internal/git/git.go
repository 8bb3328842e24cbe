package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/bibport/bibport/internal/config"
	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
)

// ErrNotGitRepo indicates the directory is not inside a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrCommitNotFound indicates the specified commit does not exist.
var ErrCommitNotFound = errors.New("commit not found")

// FindRepoRoot finds the root of the git repository containing dir.
func FindRepoRoot(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(out)), nil
}

// ValidateCommit resolves a commit reference (SHA, HEAD~N, branch, tag)
// to its full SHA.
func ValidateCommit(dir, commitRef string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--verify", "--quiet", commitRef+"^{commit}").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommitNotFound, commitRef)
	}
	return strings.TrimSpace(string(out)), nil
}

// entriesGitPath is entries.jsonl relative to the library root, in the
// "./" form git resolves against the -C directory.
func entriesGitPath() string {
	return "./" + path.Join(config.BibportDir, config.EntriesFile)
}

// EntriesAtCommit returns the library entries as of commitRef. A commit
// where entries.jsonl did not exist yields no entries.
func EntriesAtCommit(libRoot, commitRef string) ([]reference.Entry, error) {
	sha, err := ValidateCommit(libRoot, commitRef)
	if err != nil {
		return nil, err
	}

	out, err := exec.Command("git", "-C", libRoot, "show", sha+":"+entriesGitPath()).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading entries at %s: %w", commitRef, err)
	}

	entries, err := storage.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decoding entries at %s: %w", commitRef, err)
	}
	return entries, nil
}
