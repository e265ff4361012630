package analysis

import (
	"math"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// DefaultAmountFields are the amount-bearing field names tried, in order,
// when extraction is restricted to an allow-list. They are the classifier's
// financial keys, so every financial record has a field to read from.
var DefaultAmountFields = slices.Clone(classify.DefaultFinancialKeys)

// NumericOptions controls which values feed the numeric aggregate.
type NumericOptions struct {
	// Fields is the allow-list tried in priority order; the first field of a
	// record that holds a number contributes one value. Ignored when ScanAll.
	Fields []string
	// ScanAll extracts every numeric-looking value of every field, reading
	// "R$" prefixes and ',' decimal separators.
	ScanAll bool
}

// NumericSummary aggregates the numbers found in a bucket. Count is the
// number of extracted values; Records is the bucket size.
type NumericSummary struct {
	Total   float64 `json:"total"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Stdev   float64 `json:"stdev"`
	Count   int     `json:"count"`
	Records int     `json:"records"`
}

// Numeric computes the numeric aggregate of seq. No extractable values
// yields a zero-filled summary.
func Numeric(seq record.Sequence, opt NumericOptions) NumericSummary {
	vals := ExtractNumbers(seq, opt)
	s := Summarize(vals)
	s.Records = len(seq)
	return s
}

// ExtractNumbers returns the values the numeric aggregate would use, in
// record order.
func ExtractNumbers(seq record.Sequence, opt NumericOptions) []float64 {
	var vals []float64
	if opt.ScanAll {
		for _, r := range seq {
			for _, f := range r.Fields() {
				if x, ok := f.Value.LooseNumber(); ok {
					vals = append(vals, x)
				}
			}
		}
		return vals
	}
	fields := opt.Fields
	if len(fields) == 0 {
		fields = DefaultAmountFields
	}
	for _, r := range seq {
		for _, name := range fields {
			v, ok := lookupFold(r, name)
			if !ok {
				continue
			}
			if x, ok := v.Number(); ok {
				vals = append(vals, x)
				break
			}
		}
	}
	return vals
}

// Summarize computes total, mean, median, extremes and the sample standard
// deviation (N-1) of vals.
func Summarize(vals []float64) NumericSummary {
	if len(vals) == 0 {
		return NumericSummary{}
	}
	// Welford update for mean and variance
	var n int
	var mean, m2, total float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range vals {
		n++
		total += x
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	s := NumericSummary{
		Total:  total,
		Mean:   total / float64(n),
		Median: median(vals),
		Min:    lo,
		Max:    hi,
		Count:  n,
	}
	if n > 1 {
		s.Stdev = math.Sqrt(m2 / float64(n-1))
	}
	return s
}

// Rounded returns a copy with every float rounded to 2 decimal places, half
// away from zero.
func (s NumericSummary) Rounded() NumericSummary {
	s.Total = round2(s.Total)
	s.Mean = round2(s.Mean)
	s.Median = round2(s.Median)
	s.Min = round2(s.Min)
	s.Max = round2(s.Max)
	s.Stdev = round2(s.Stdev)
	return s
}

func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

func median(vals []float64) float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantile(cp, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// lookupFold finds a field by normalized key (see classify.NormalizeKey),
// preferring an exact match.
func lookupFold(r record.Record, name string) (record.Value, bool) {
	if v, ok := r.Get(name); ok {
		return v, true
	}
	want := classify.NormalizeKey(name)
	for _, f := range r.Fields() {
		if classify.NormalizeKey(f.Key) == want {
			return f.Value, true
		}
	}
	return record.Value{}, false
}
