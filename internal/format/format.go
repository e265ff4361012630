// Package format sniffs the serialization shape of a text blob.
package format

import (
	"fmt"
	"strings"
)

// Tag is the inferred format of raw input.
type Tag uint8

const (
	FreeText Tag = iota
	JSON
	CSV
	TSV
)

// All lists every tag in dispatch order.
var All = []Tag{JSON, CSV, TSV, FreeText}

func (t Tag) String() string {
	switch t {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case TSV:
		return "tsv"
	default:
		return "text"
	}
}

// Delimiter returns the field separator for delimited formats and 0 otherwise.
func (t Tag) Delimiter() rune {
	switch t {
	case CSV:
		return ','
	case TSV:
		return '\t'
	default:
		return 0
	}
}

func (t Tag) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tag) UnmarshalText(b []byte) error {
	v, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseTag resolves an explicit format name.
func ParseTag(s string) (Tag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "tsv", "tab":
		return TSV, nil
	case "text", "txt", "free-text", "freetext":
		return FreeText, nil
	default:
		return FreeText, fmt.Errorf("unknown format %q (use json|csv|tsv|text)", s)
	}
}

// Detect inspects text and returns its format. It is a syntactic sniff, not
// a validating parse: the first matching rule wins.
//
//	starts with '[' or '{'  -> JSON
//	contains a tab          -> TSV
//	contains a comma        -> CSV
//	otherwise               -> FreeText
func Detect(text string) Tag {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{"):
		return JSON
	case strings.Contains(text, "\t"):
		return TSV
	case strings.Contains(text, ","):
		return CSV
	default:
		return FreeText
	}
}
