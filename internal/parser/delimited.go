package parser

import (
	"strings"

	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// delimitedParser handles CSV and TSV. Splitting is literal: quoted
// delimiters are not honored, and a row whose value count differs from the
// header is dropped.
type delimitedParser struct {
	tag format.Tag
}

func (p delimitedParser) Format() format.Tag { return p.tag }

func (p delimitedParser) Parse(text string) (record.Sequence, error) {
	sep := string(p.tag.Delimiter())
	lines := splitLines(text)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return record.Sequence{}, nil
	}
	header := strings.Split(lines[0], sep)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	out := record.Sequence{}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, sep)
		if len(values) != len(header) {
			continue
		}
		var r record.Record
		for i, col := range header {
			r.Set(col, record.CoerceNumeric(values[i]))
		}
		if !r.Empty() {
			out = append(out, r)
		}
	}
	return out, nil
}
