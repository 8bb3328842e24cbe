package conflict

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/bibport/bibport/internal/reference"
	"github.com/bibport/bibport/internal/storage"
)

type parserState int

const (
	stateNormal parserState = iota
	stateInOurs
	stateInTheirs
)

const (
	oursMarker      = "<<<<<<<"
	separatorMarker = "======="
	theirsMarker    = ">>>>>>>"
)

// Parse reads a possibly conflicted JSONL file.
func Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), storage.MaxJSONLLineCapacity)
	result := &ParseResult{}

	state := stateNormal
	lineNum := 0
	var region Region
	var oursLines, theirsLines []string
	oursStart := 0

	unexpected := func(msg, line string) error {
		return ParseError{Line: lineNum, Message: msg, Context: line}
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		isOurs := strings.HasPrefix(line, oursMarker)
		isSep := strings.HasPrefix(line, separatorMarker)
		isTheirs := strings.HasPrefix(line, theirsMarker)

		switch state {
		case stateNormal:
			switch {
			case isOurs:
				region = Region{StartLine: lineNum}
				oursLines, theirsLines = nil, nil
				oursStart = lineNum + 1
				state = stateInOurs
			case isSep:
				return nil, unexpected("unexpected separator marker outside conflict region", line)
			case isTheirs:
				return nil, unexpected("unexpected end marker outside conflict region", line)
			default:
				result.CleanLines = append(result.CleanLines, CleanLine{LineNum: lineNum, Content: line})
			}

		case stateInOurs:
			switch {
			case isOurs:
				return nil, unexpected("nested conflict markers not allowed", line)
			case isSep:
				state = stateInTheirs
			case isTheirs:
				return nil, unexpected("unexpected end marker before separator", line)
			default:
				oursLines = append(oursLines, line)
			}

		case stateInTheirs:
			switch {
			case isOurs:
				return nil, unexpected("nested conflict markers not allowed", line)
			case isSep:
				return nil, unexpected("duplicate separator marker in conflict region", line)
			case isTheirs:
				region.EndLine = lineNum
				var err error
				if region.Ours, err = parseEntryLines(oursLines, oursStart); err != nil {
					return nil, err
				}
				if region.Theirs, err = parseEntryLines(theirsLines, oursStart+len(oursLines)+1); err != nil {
					return nil, err
				}
				result.Conflicts = append(result.Conflicts, region)
				state = stateNormal
			default:
				theirsLines = append(theirsLines, line)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if state != stateNormal {
		return nil, ParseError{Line: lineNum, Message: "unterminated conflict region at end of file"}
	}
	return result, nil
}

// ParseString parses content held in memory.
func ParseString(content string) (*ParseResult, error) {
	return Parse(strings.NewReader(content))
}

// parseEntryLines decodes JSONL lines; startLine numbers the first line for
// error messages.
func parseEntryLines(lines []string, startLine int) ([]reference.Entry, error) {
	var entries []reference.Entry
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e, err := decodeEntry(line)
		if err != nil {
			return nil, ParseError{
				Line:    startLine + i,
				Message: "invalid JSON: " + err.Error(),
				Context: truncate(line, 50),
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func decodeEntry(line string) (reference.Entry, error) {
	var e reference.Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return reference.Entry{}, err
	}
	if e.Fields == nil {
		e.Fields = reference.Fields{}
	}
	return e, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
