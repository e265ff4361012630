package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
)

// parseFlags are the input flags shared by analyze and analyze-batch.
type parseFlags struct {
	format     string
	fallback   string
	strict     bool
	scanAll    bool
	sheetName  string
	sheetIndex int
}

func (p *parseFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&p.format, "format", "", "input format: json|csv|tsv|text (detected if omitted)")
	fs.StringVar(&p.fallback, "fallback", "", "line fallback: none|lines|always (overrides config)")
	fs.BoolVar(&p.strict, "strict", false, "fail on malformed JSON instead of yielding no records")
	fs.BoolVar(&p.scanAll, "scan-all", false, "collect every numeric field of financial records, not only amount fields")
	fs.StringVar(&p.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	fs.IntVar(&p.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (p *parseFlags) options() (pipeline.Options, error) {
	var opt pipeline.Options
	if p.format != "" {
		tag, err := format.ParseTag(p.format)
		if err != nil {
			return opt, err
		}
		opt.Format = &tag
	}
	fb, err := parser.ParseFallback(p.fallback)
	if err != nil {
		return opt, err
	}
	opt.Fallback = fb
	opt.Strict = p.strict
	return opt, nil
}

func (p *parseFlags) engine() (*pipeline.Engine, error) {
	return newEngine(func(c *pipeline.Config) {
		if p.scanAll {
			c.Numeric.ScanAll = true
		}
	})
}

// readInput loads path as text; "-" reads standard input.
func (p *parseFlags) readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	return parser.ReadFile(path, p.sheetName, p.sheetIndex)
}

// sourceName derives a session name from an input path.
func sourceName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
