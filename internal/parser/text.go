package parser

import (
	"strings"

	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// textParser reads free-form lines of "key: value" pairs separated by commas.
type textParser struct{}

func (textParser) Format() format.Tag { return format.FreeText }

func (textParser) Parse(text string) (record.Sequence, error) {
	out := record.Sequence{}
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := parsePairs(line); !r.Empty() {
			out = append(out, r)
		}
	}
	return out, nil
}

// parsePairs extracts key/value pairs from one line. The first occurrence of
// a key wins; parts without a colon or with an empty key are skipped.
func parsePairs(line string) record.Record {
	var r record.Record
	for _, part := range splitTopLevel(line) {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		r.SetIfAbsent(key, record.Coerce(value))
	}
	return r
}

// splitTopLevel splits on commas, except a comma whose next parenthesis is
// a closing one. An unclosed '(' therefore does not protect later commas.
func splitTopLevel(s string) []string {
	// next[i] is the first '(' or ')' at or after i, 0 if none.
	next := make([]byte, len(s)+1)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '(' || s[i] == ')' {
			next[i] = s[i]
		} else {
			next[i] = next[i+1]
		}
	}
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && next[i+1] != ')' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// lineParser emits one record per non-blank line: {"id": n, "text": line}.
type lineParser struct{}

func (lineParser) Format() format.Tag { return format.FreeText }

func (lineParser) Parse(text string) (record.Sequence, error) {
	out := record.Sequence{}
	id := 0
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id++
		var r record.Record
		r.Set("id", record.Int(int64(id)))
		r.Set("text", record.String(line))
		out = append(out, r)
	}
	return out, nil
}
