// Package export writes record sequences as CSV, TSV, JSON or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	TSV  Format = "tsv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Formats lists the supported export formats.
var Formats = []Format{CSV, TSV, JSON, XLSX}

// ParseFormat resolves a format name; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case CSV, TSV, JSON, XLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (use csv|tsv|json|xlsx)", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type for HTTP downloads.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case TSV:
		return "text/tab-separated-values; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// SheetName is the worksheet XLSX exports write to.
const SheetName = "dados"

// Write encodes seq to w. Tabular formats use the union of keys in
// first-seen order as header; missing fields are empty cells.
func Write(w io.Writer, seq record.Sequence, f Format) error {
	switch f {
	case CSV:
		return writeDelimited(w, seq, ',')
	case TSV:
		return writeDelimited(w, seq, '\t')
	case JSON:
		return writeJSON(w, seq)
	case XLSX:
		return writeXLSX(w, seq)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeDelimited(w io.Writer, seq record.Sequence, comma rune) error {
	cols := seq.KeyUnion()
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if len(cols) > 0 {
		if err := cw.Write(cols); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := make([]string, len(cols))
	for _, r := range seq {
		for i, c := range cols {
			row[i] = ""
			if v, ok := r.Get(c); ok && !v.IsNull() {
				row[i] = v.String()
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, seq record.Sequence) error {
	if seq == nil {
		seq = record.Sequence{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(seq); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, seq record.Sequence) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	cols := seq.KeyUnion()
	if len(cols) > 0 {
		header := make([]any, len(cols))
		for i, c := range cols {
			header[i] = c
		}
		if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for n, r := range seq {
		row := make([]any, len(cols))
		for i, c := range cols {
			v, ok := r.Get(c)
			if !ok {
				row[i] = nil
				continue
			}
			row[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", n+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// cellValue keeps numbers and booleans typed in the sheet.
func cellValue(v record.Value) any {
	switch v.Kind() {
	case record.KindInt:
		i, _ := v.IntValue()
		return i
	case record.KindFloat:
		x, _ := v.Number()
		return x
	case record.KindBool:
		b, _ := v.BoolValue()
		return b
	case record.KindNull:
		return nil
	default:
		return v.String()
	}
}
