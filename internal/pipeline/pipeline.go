// Package pipeline wires format detection, parsing, classification and
// summarization behind a single engine.
package pipeline

import (
	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// Config is the immutable configuration of an Engine.
type Config struct {
	Classifier  *classify.Classifier
	Numeric     analysis.NumericOptions
	Categorical analysis.CategoricalOptions
	// Parse holds defaults merged into every call: Strict is or-ed, Fallback
	// applies when the call leaves it at FallbackNone.
	Parse parser.Options
}

// DefaultConfig returns the stock classifier and field lists.
func DefaultConfig() Config {
	return Config{
		Classifier:  classify.Default(),
		Numeric:     analysis.NumericOptions{Fields: analysis.DefaultAmountFields},
		Categorical: analysis.CategoricalOptions{Fields: analysis.DefaultCategoryFields, Placeholder: analysis.Uncategorized},
	}
}

// Options selects how a single input is parsed.
type Options struct {
	// Format forces a parser; nil means detect from content.
	Format   *format.Tag
	Strict   bool
	Fallback parser.FallbackMode
}

// Result is a parsed and classified input.
type Result struct {
	Format         format.Tag      `json:"format"`
	Financial      record.Sequence `json:"financeiro"`
	Organizational record.Sequence `json:"organizacional"`
}

// Total returns the number of classified records.
func (r *Result) Total() int { return len(r.Financial) + len(r.Organizational) }

// Summary is the statistics of one bucket. Exactly one of Numeric and
// Categorical is set.
type Summary struct {
	Kind        classify.Kind                `json:"kind"`
	Numeric     *analysis.NumericSummary     `json:"numeric,omitempty"`
	Categorical *analysis.CategoricalSummary `json:"categorical,omitempty"`
}

// Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// New returns an engine for cfg. A nil classifier means classify.Default.
func New(cfg Config) *Engine {
	if cfg.Classifier == nil {
		cfg.Classifier = classify.Default()
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ParseAndClassify detects (or takes) the format of raw, parses it and
// partitions the records. A detected CSV/TSV that yields no rows is re-read
// as free text when that finds "key: value" pairs. The only error is
// parser.ErrInvalidInput for malformed JSON in strict mode.
func (e *Engine) ParseAndClassify(raw string, opt Options) (*Result, error) {
	popt := parser.Options{
		Strict:   opt.Strict || e.cfg.Parse.Strict,
		Fallback: opt.Fallback,
	}
	if popt.Fallback == parser.FallbackNone {
		popt.Fallback = e.cfg.Parse.Fallback
	}
	var (
		seq record.Sequence
		tag format.Tag
		err error
	)
	if opt.Format != nil {
		tag = *opt.Format
		seq, err = parser.Parse(raw, tag, popt)
	} else {
		seq, tag, err = parser.ParseDetected(raw, popt)
	}
	if err != nil {
		return nil, err
	}
	b := e.cfg.Classifier.Classify(seq)
	return &Result{Format: tag, Financial: b.Financial, Organizational: b.Organizational}, nil
}

// Summarize computes the statistics appropriate to kind: numeric for
// financial records, categorical for organizational ones.
func (e *Engine) Summarize(seq record.Sequence, kind classify.Kind) Summary {
	if kind == classify.Financial {
		s := analysis.Numeric(seq, e.cfg.Numeric)
		return Summary{Kind: kind, Numeric: &s}
	}
	s := analysis.Categorical(seq, e.cfg.Categorical)
	return Summary{Kind: kind, Categorical: &s}
}

// Report builds the combined report of a result.
func (e *Engine) Report(name string, res *Result, sampleRows int, round bool) *analysis.Report {
	return analysis.BuildReport(name, res.Format.String(), res.Financial, res.Organizational, analysis.Options{
		SampleRows:  sampleRows,
		Numeric:     e.cfg.Numeric,
		Categorical: e.cfg.Categorical,
		Round:       round,
	})
}
