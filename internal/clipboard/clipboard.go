// Package clipboard copies text to the system clipboard through the
// platform's command-line tools.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnavailable is returned when no clipboard tool is installed.
var ErrUnavailable = errors.New("clipboard unavailable")

// tool is a clipboard command that reads the text to copy from stdin.
type tool struct {
	name string
	args []string
}

// tools lists candidate commands per GOOS, in order of preference.
var tools = map[string][]tool{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip"}},
}

// findTool returns the first installed tool for goos.
func findTool(goos string, lookPath func(string) (string, error)) (tool, error) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, ErrUnavailable
}

// IsAvailable reports whether a clipboard tool is installed.
func IsAvailable() bool {
	_, err := findTool(runtime.GOOS, exec.LookPath)
	return err == nil
}

// Copy writes text to the system clipboard.
func Copy(text string) error {
	t, err := findTool(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	cmd := exec.Command(t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
