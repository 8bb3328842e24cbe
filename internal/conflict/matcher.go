package conflict

import (
	"strings"

	"github.com/bibport/bibport/internal/reference"
)

// MatchEntries pairs the entries of a region by DOI (case-insensitive),
// then by ID for those left over.
func MatchEntries(region Region) MatchResult {
	var result MatchResult

	oursByDOI := make(map[string]int)
	oursByID := make(map[string]int)
	for i, e := range region.Ours {
		if doi := normalizeDOI(e.DOI()); doi != "" {
			oursByDOI[doi] = i
		}
		oursByID[e.ID] = i
	}

	oursMatched := make([]bool, len(region.Ours))
	theirsMatched := make([]bool, len(region.Theirs))
	pair := func(oi, ti int, by string) {
		result.Matches = append(result.Matches, Match{
			Ours:      region.Ours[oi],
			Theirs:    region.Theirs[ti],
			MatchedBy: by,
		})
		oursMatched[oi] = true
		theirsMatched[ti] = true
	}

	for ti, e := range region.Theirs {
		if oi, ok := oursByDOI[normalizeDOI(e.DOI())]; ok && !oursMatched[oi] {
			pair(oi, ti, "doi")
		}
	}
	for ti, e := range region.Theirs {
		if theirsMatched[ti] {
			continue
		}
		if oi, ok := oursByID[e.ID]; ok && !oursMatched[oi] {
			pair(oi, ti, "id")
		}
	}

	for i, e := range region.Ours {
		if !oursMatched[i] {
			result.OursOnly = append(result.OursOnly, e)
		}
	}
	for i, e := range region.Theirs {
		if !theirsMatched[i] {
			result.TheirsOnly = append(result.TheirsOnly, e)
		}
	}
	return result
}

func normalizeDOI(doi string) string {
	return strings.ToLower(strings.TrimSpace(doi))
}

// Entries reassembles the resolved file: clean lines in place, and the
// entries in resolved[i] where conflict region i was. Clean lines that are
// not valid JSON are dropped.
func Entries(result *ParseResult, resolved [][]reference.Entry) []reference.Entry {
	var out []reference.Entry
	clean := result.CleanLines
	appendCleanBefore := func(line int) {
		for len(clean) > 0 && clean[0].LineNum < line {
			if content := strings.TrimSpace(clean[0].Content); content != "" {
				if e, err := decodeEntry(content); err == nil {
					out = append(out, e)
				}
			}
			clean = clean[1:]
		}
	}

	for i, region := range result.Conflicts {
		appendCleanBefore(region.StartLine)
		if i < len(resolved) {
			out = append(out, resolved[i]...)
		}
	}
	appendCleanBefore(int(^uint(0) >> 1))
	return out
}
