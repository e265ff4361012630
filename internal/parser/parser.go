package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// Parser converts raw text of one format into records.
type Parser interface {
	Format() format.Tag
	Parse(text string) (record.Sequence, error)
}

// ErrInvalidInput reports a syntactically invalid top-level document. It is
// only surfaced in strict mode.
var ErrInvalidInput = errors.New("invalid input")

// FallbackMode controls the line-oriented fallback parse.
type FallbackMode uint8

const (
	// FallbackNone returns whatever the format parser produced.
	FallbackNone FallbackMode = iota
	// FallbackLines switches to one record per line when the format parser
	// yields nothing for nonempty input.
	FallbackLines
	// FallbackAlways skips the format parser entirely.
	FallbackAlways
)

func (m FallbackMode) String() string {
	switch m {
	case FallbackLines:
		return "lines"
	case FallbackAlways:
		return "always"
	default:
		return "none"
	}
}

// ParseFallback resolves a fallback mode name.
func ParseFallback(s string) (FallbackMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return FallbackNone, nil
	case "lines", "line":
		return FallbackLines, nil
	case "always":
		return FallbackAlways, nil
	default:
		return FallbackNone, fmt.Errorf("unknown fallback %q (use none|lines|always)", s)
	}
}

// Options controls parse behavior.
type Options struct {
	// Strict surfaces JSON syntax errors as ErrInvalidInput instead of
	// degrading to an empty result.
	Strict   bool
	Fallback FallbackMode
}

var registry = map[format.Tag]Parser{
	format.JSON:     jsonParser{},
	format.CSV:      delimitedParser{tag: format.CSV},
	format.TSV:      delimitedParser{tag: format.TSV},
	format.FreeText: textParser{},
}

// ForFormat returns the handler registered for tag.
func ForFormat(tag format.Tag) Parser {
	if p, ok := registry[tag]; ok {
		return p
	}
	return textParser{}
}

// Lines returns the line-oriented fallback parser.
func Lines() Parser { return lineParser{} }

// Parse dispatches text to the parser for tag. The only error it returns is
// ErrInvalidInput under Options.Strict; every other failure degrades to an
// empty or fallback result. Empty input always yields an empty sequence.
func Parse(text string, tag format.Tag, opt Options) (record.Sequence, error) {
	if strings.TrimSpace(text) == "" {
		return record.Sequence{}, nil
	}
	if opt.Fallback == FallbackAlways {
		seq, _ := lineParser{}.Parse(text)
		return seq, nil
	}
	seq, err := ForFormat(tag).Parse(text)
	if err != nil {
		if opt.Strict && errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		seq = nil
	}
	if len(seq) == 0 && opt.Fallback == FallbackLines {
		seq, _ = lineParser{}.Parse(text)
	}
	if seq == nil {
		seq = record.Sequence{}
	}
	return seq, nil
}

// ParseDetected detects the format of text and parses it. Detection is a
// syntactic sniff, so a single line of comma-separated "key: value" pairs
// looks like a header-only CSV; when the delimited handler yields nothing and
// the free-text handler finds pairs, the free-text result and tag are used.
func ParseDetected(text string, opt Options) (record.Sequence, format.Tag, error) {
	tag := format.Detect(text)
	if (tag == format.CSV || tag == format.TSV) && opt.Fallback != FallbackAlways &&
		strings.TrimSpace(text) != "" {
		if seq, err := ForFormat(tag).Parse(text); err == nil && len(seq) > 0 {
			return seq, tag, nil
		}
		if seq, _ := (textParser{}).Parse(text); len(seq) > 0 {
			return seq, format.FreeText, nil
		}
	}
	seq, err := Parse(text, tag, opt)
	return seq, tag, err
}

// splitLines normalizes line endings and splits text into lines, dropping
// blank lines at either end. Interior whitespace, including trailing tabs of
// the last row, is kept.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
