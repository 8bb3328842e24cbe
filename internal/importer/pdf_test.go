package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDF_Sniff(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"%PDF-1.7\n%\xe2\xe3\xcf\xd3\n", true},
		{"%PDF-", true},
		{"%PD", false},
		{"", false},
		{"<1>\nAuthors\n", false},
	}
	for _, tt := range tests {
		got, err := PDF{}.Sniff(strings.NewReader(tt.input))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Sniff(%q)", tt.input)
	}
}

func TestPDF_ParseRejectsCorruptFile(t *testing.T) {
	_, err := PDF{}.Parse(strings.NewReader("%PDF-1.4\nnot really a pdf\n"), Options{})
	assert.ErrorContains(t, err, "opening pdf")
}

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "doi: 10.1000/xyz123 more", "10.1000/xyz123"},
		{"trailing punctuation", "(see 10.1016/j.cell.2020.01.001).", "10.1016/j.cell.2020.01.001"},
		{"first valid wins", "10.1/x then 10.5555/real.one", "10.5555/real.one"},
		{"none", "no identifier on this page", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findDOI(tt.text))
		})
	}
}

func TestGuessTitle(t *testing.T) {
	page := strings.Join([]string{
		"12",
		"Journal of Applied Testing, Volume 3, Issue 2",
		"Copyright 2020 The Authors",
		"Regular expressions as a bibliographic tool.",
		"Smith J, Doe K",
	}, "\n")
	assert.Equal(t, "Regular expressions as a bibliographic tool", guessTitle(page))
	assert.Empty(t, guessTitle("short\nlines\nonly"))
}

func TestOvid_SniffRejectsPDF(t *testing.T) {
	ok, err := Ovid{}.Sniff(strings.NewReader("%PDF-1.4\n<12> 0 obj\n"))
	require.NoError(t, err)
	assert.False(t, ok)
}
