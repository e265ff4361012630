package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

type jsonParser struct{}

func (jsonParser) Format() format.Tag { return format.JSON }

// Parse decodes a JSON document. An array yields one record per object
// element; a single object yields one record; any other top-level value
// yields nothing.
func (jsonParser) Parse(text string) (record.Sequence, error) {
	data := []byte(strings.TrimSpace(text))
	dec := json.NewDecoder(bytes.NewReader(data))
	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: json: unexpected data after top-level value", ErrInvalidInput)
	}

	switch top[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(top, &elems); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrInvalidInput, err)
		}
		out := make(record.Sequence, 0, len(elems))
		for _, e := range elems {
			if r, ok := decodeObject(e); ok {
				out = append(out, r)
			}
		}
		return out, nil
	case '{':
		if r, ok := decodeObject(top); ok {
			return record.Sequence{r}, nil
		}
		return record.Sequence{}, nil
	default:
		return record.Sequence{}, nil
	}
}

func decodeObject(raw json.RawMessage) (record.Record, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return record.Record{}, false
	}
	var r record.Record
	if err := json.Unmarshal(raw, &r); err != nil || r.Empty() {
		return record.Record{}, false
	}
	return r, true
}
