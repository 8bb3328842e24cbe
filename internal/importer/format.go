// Package importer provides functions to import references from external formats.
package importer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/bibport/bibport/internal/reference"
)

// ErrUnknownFormat is returned when no registered format matches a name or input.
var ErrUnknownFormat = errors.New("unknown import format")

// Format is an import format that can recognize and parse its input.
type Format interface {
	// Name returns the format identifier used on the command line.
	Name() string
	// Description returns a human-readable format description.
	Description() string
	// Extensions returns file extensions associated with the format.
	// They are advisory and never enforced by Parse.
	Extensions() []string
	// Sniff reports whether the input looks like this format.
	// It may consume part of r; callers rewind before parsing.
	Sniff(r io.Reader) (bool, error)
	// Parse reads all of r and returns the entries found.
	Parse(r io.Reader, opts Options) (*ParseResult, error)
}

// Options configures a Parse call.
type Options struct {
	// IDs allocates entry IDs. Defaults to a fresh sequence named after the format.
	IDs reference.IDGenerator
	// Logger receives diagnostic output. Defaults to discarding everything.
	Logger *slog.Logger
}

func (o Options) withDefaults(prefix string) Options {
	if o.IDs == nil {
		o.IDs = reference.NewSequence(prefix)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Warning is a non-fatal problem found while parsing.
type Warning struct {
	Record  string `json:"record"`          // Record number or ID in the source
	Field   string `json:"field,omitempty"` // Source field label, if any
	Message string `json:"message"`
	Text    string `json:"text,omitempty"` // The text that could not be used
}

func (w Warning) String() string {
	s := "record " + w.Record
	if w.Field != "" {
		s += " (" + w.Field + ")"
	}
	s += ": " + w.Message
	if w.Text != "" {
		s += fmt.Sprintf(": %q", w.Text)
	}
	return s
}

// ParseResult holds the entries produced by an import plus any warnings.
type ParseResult struct {
	Entries  []reference.Entry `json:"entries"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

func (r *ParseResult) warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Format{}
)

// Register makes a format available by name. It panics on duplicate names.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[f.Name()]; dup {
		panic("importer: Register called twice for format " + f.Name())
	}
	registry[f.Name()] = f
}

// Lookup returns the registered format with the given name.
func Lookup(name string) (Format, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Formats returns all registered formats sorted by name.
func Formats() []Format {
	registryMu.RLock()
	defer registryMu.RUnlock()

	formats := make([]Format, 0, len(registry))
	for _, f := range registry {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].Name() < formats[j].Name()
	})
	return formats
}

// Detect returns the first registered format (by name) that recognizes r.
// The stream is rewound before each sniff and again before returning.
func Detect(r io.ReadSeeker) (Format, error) {
	for _, f := range Formats() {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding input: %w", err)
		}
		ok, err := f.Sniff(r)
		if err != nil {
			return nil, fmt.Errorf("sniffing %s: %w", f.Name(), err)
		}
		if ok {
			if _, err := r.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("rewinding input: %w", err)
			}
			return f, nil
		}
	}
	return nil, ErrUnknownFormat
}
