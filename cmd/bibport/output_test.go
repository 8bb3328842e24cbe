package main

import (
	"strings"
	"testing"

	"github.com/bibport/bibport/internal/reference"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four five", 9, "  ")
	want := "one two\n  three\n  four five"
	if got != want {
		t.Errorf("wrapText() = %q, want %q", got, want)
	}

	if got := wrapText("short", 20, "  "); got != "short" {
		t.Errorf("wrapText(short) = %q", got)
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	authors := reference.ParseAuthors("Smith, John and Doe, Jane and Brown, Alice and White, Carol")

	got := formatAuthorsShort(authors, 3)
	if want := "Smith J, Doe J, Brown A, et al."; got != want {
		t.Errorf("formatAuthorsShort() = %q, want %q", got, want)
	}

	if got := formatAuthorsShort(nil, 3); got != "" {
		t.Errorf("formatAuthorsShort(nil) = %q, want empty", got)
	}

	// Non-ASCII first initial is kept whole
	got = formatAuthorsShort([]reference.Author{{First: "Émile", Last: "Zola"}}, 3)
	if !strings.HasPrefix(got, "Zola É") {
		t.Errorf("formatAuthorsShort() = %q, want Zola É", got)
	}
}
