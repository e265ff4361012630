package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile loads an input file as text. Workbooks are flattened to TSV so
// they flow through the same detection and parsing as pasted text.
func ReadFile(path string, sheetName string, sheetIndex int) (string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path, sheetName, sheetIndex)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(b), nil
}

// ReadXLSX renders one sheet of a workbook as tab-separated text. If
// sheetName is empty the 1-based sheetIndex is used (first sheet when <= 0).
// Rows shorter than the header are padded, since trailing empty cells are
// not stored in the file.
func ReadXLSX(path string, sheetName string, sheetIndex int) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	target := ""
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				target = s
				break
			}
		}
		if target == "" {
			return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		target = sheets[idx-1]
	}

	rows, err := f.GetRows(target)
	if err != nil {
		return "", fmt.Errorf("read sheet %s: %w", target, err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	width := len(rows[0])
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for len(row) < width {
			row = append(row, "")
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(cleanCell(cell))
		}
	}
	return b.String(), nil
}

func cleanCell(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
