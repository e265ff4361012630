package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

// Options controls report building.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows  int
	Numeric     NumericOptions
	Categorical CategoricalOptions
	// Round shows 2-decimal figures instead of full precision.
	Round bool
}

// DefaultOptions returns reasonable defaults for report building.
func DefaultOptions() Options {
	return Options{
		SampleRows:  5,
		Numeric:     NumericOptions{Fields: DefaultAmountFields},
		Categorical: CategoricalOptions{Fields: DefaultCategoryFields, Placeholder: Uncategorized},
		Round:       true,
	}
}

// Report is a markdown-friendly summary of one classified dataset.
type Report struct {
	Name           string             `json:"name,omitempty"`
	Format         string             `json:"format"`
	Records        int                `json:"records"`
	Financial      NumericSummary     `json:"financeiro"`
	Organizational CategoricalSummary `json:"organizacional"`
	Samples        record.Sequence    `json:"samples,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// BuildReport summarizes the financial bucket numerically and the
// organizational bucket categorically.
func BuildReport(name, format string, financial, organizational record.Sequence, opt Options) *Report {
	r := &Report{
		Name:           name,
		Format:         format,
		Records:        len(financial) + len(organizational),
		Financial:      Numeric(financial, opt.Numeric),
		Organizational: Categorical(organizational, opt.Categorical),
	}
	if opt.Round {
		r.Financial = r.Financial.Rounded()
	}
	if opt.SampleRows > 0 {
		all := make(record.Sequence, 0, opt.SampleRows)
		all = append(all, takeN(financial, opt.SampleRows)...)
		all = append(all, takeN(organizational, opt.SampleRows-len(all))...)
		r.Samples = all
	}
	if r.Records == 0 {
		r.Warnings = append(r.Warnings, "no records parsed from input")
	}
	if len(financial) > 0 && r.Financial.Count == 0 {
		r.Warnings = append(r.Warnings, "financial records carry no numeric amount in the configured fields")
	}
	return r
}

func takeN(seq record.Sequence, n int) record.Sequence {
	if n <= 0 {
		return nil
	}
	if len(seq) < n {
		return seq
	}
	return seq[:n]
}

// Markdown renders a compact report for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Format: %s\n", r.Format))
	b.WriteString(fmt.Sprintf("Records: %d (financeiro %d, organizacional %d)\n", r.Records, r.Financial.Records, r.Organizational.Total))

	b.WriteString("\n[FINANCEIRO]\n")
	f := r.Financial
	if f.Count == 0 {
		b.WriteString("- no numeric values\n")
	} else {
		b.WriteString(fmt.Sprintf("- values: %d\n", f.Count))
		b.WriteString(fmt.Sprintf("- total: %s\n", num(f.Total)))
		b.WriteString(fmt.Sprintf("- mean: %s, median: %s\n", num(f.Mean), num(f.Median)))
		b.WriteString(fmt.Sprintf("- min: %s, max: %s, stdev: %s\n", num(f.Min), num(f.Max), num(f.Stdev)))
	}

	b.WriteString("\n[ORGANIZACIONAL]\n")
	o := r.Organizational
	if o.Total == 0 {
		b.WriteString("- no records\n")
	} else {
		b.WriteString(fmt.Sprintf("- categories: %d\n", o.Distinct))
		for _, kv := range o.Distribution {
			pct := float64(kv.Count) * 100 / float64(o.Total)
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeVal(kv.Value), kv.Count, pct))
		}
	}

	if len(r.Samples) > 0 {
		cols := r.Samples.KeyUnion()
		b.WriteString("\n[SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c))
		}
		b.WriteString(" |\n")
		b.WriteString("| ")
		for i := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, c := range cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if v, ok := row.Get(c); ok {
					val = v.String()
				}
				val = truncate(val, 80)
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func num(x float64) string { return fmt.Sprintf("%.2f", x) }

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
