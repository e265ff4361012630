package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

// DefaultDateField is the key Trend groups by when none is given.
const DefaultDateField = "data"

// TrendPoint is the total of one date bucket.
type TrendPoint struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// Trend totals valueKey per distinct dateKey, dates ascending. Records whose
// value is not numeric are skipped; records without a date go under
// "unknown".
func Trend(seq record.Sequence, valueKey, dateKey string) []TrendPoint {
	if dateKey == "" {
		dateKey = DefaultDateField
	}
	idx := map[string]int{}
	var out []TrendPoint
	for _, r := range seq {
		x, ok := numberAt(r, valueKey)
		if !ok {
			continue
		}
		date := "unknown"
		if v, ok := lookupFold(r, dateKey); ok && !v.IsNull() {
			date = v.String()
		}
		i, seen := idx[date]
		if !seen {
			i = len(out)
			idx[date] = i
			out = append(out, TrendPoint{Date: date})
		}
		out[i].Total += x
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if out == nil {
		out = []TrendPoint{}
	}
	return out
}

// Bin is one histogram interval. The last bin is closed on both ends.
type Bin struct {
	Label string  `json:"label"`
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram splits the values of valueKey into equal-width bins. Every bin is
// returned, including empty ones. When all values are equal a single bin
// holds them.
func Histogram(seq record.Sequence, valueKey string, bins int) []Bin {
	if bins <= 0 {
		bins = 10
	}
	var vals []float64
	for _, r := range seq {
		if x, ok := numberAt(r, valueKey); ok {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return []Bin{}
	}
	s := Summarize(vals)
	if s.Max == s.Min {
		return []Bin{{Label: binLabel(s.Min, s.Max), Lo: s.Min, Hi: s.Max, Count: len(vals)}}
	}
	width := (s.Max - s.Min) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		lo := s.Min + float64(i)*width
		hi := s.Min + float64(i+1)*width
		if i == bins-1 {
			hi = s.Max
		}
		out[i] = Bin{Label: binLabel(lo, hi), Lo: lo, Hi: hi}
	}
	for _, x := range vals {
		i := int((x - s.Min) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

func binLabel(lo, hi float64) string { return fmt.Sprintf("%.2f-%.2f", lo, hi) }

// CategoryTotal is the summed value of one category.
type CategoryTotal struct {
	Category string  `json:"categoria"`
	Total    float64 `json:"total"`
}

// TopByCategory sums valueKey per categoryKey and returns the limit largest
// totals, ties in first-seen order. Non-numeric values count as zero so the
// category is still listed.
func TopByCategory(seq record.Sequence, valueKey, categoryKey string, limit int) []CategoryTotal {
	fields := DefaultCategoryFields
	if categoryKey != "" {
		fields = []string{categoryKey}
	}
	idx := map[string]int{}
	out := []CategoryTotal{}
	for _, r := range seq {
		cat := CategoryOf(r, fields, Uncategorized)
		i, seen := idx[cat]
		if !seen {
			i = len(out)
			idx[cat] = i
			out = append(out, CategoryTotal{Category: cat})
		}
		if x, ok := numberAt(r, valueKey); ok {
			out[i].Total += x
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Direction of a comparison.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

// Comparison contrasts the totals of two sequences.
type Comparison struct {
	Before           float64   `json:"dataset1_sum"`
	After            float64   `json:"dataset2_sum"`
	Difference       float64   `json:"difference"`
	PercentageChange float64   `json:"percentage_change"`
	Trend            Direction `json:"trend"`
}

// Compare sums valueKey over a and b. PercentageChange is relative to a and
// is 0 when a's total is not positive.
func Compare(a, b record.Sequence, valueKey string) Comparison {
	sum := func(seq record.Sequence) float64 {
		var t float64
		for _, r := range seq {
			if x, ok := numberAt(r, valueKey); ok {
				t += x
			}
		}
		return t
	}
	c := Comparison{Before: sum(a), After: sum(b)}
	c.Difference = c.After - c.Before
	if c.Before > 0 {
		c.PercentageChange = c.Difference / c.Before * 100
	}
	switch {
	case c.Difference > 0:
		c.Trend = Up
	case c.Difference < 0:
		c.Trend = Down
	default:
		c.Trend = Stable
	}
	return c
}

func numberAt(r record.Record, key string) (float64, bool) {
	v, ok := lookupFold(r, key)
	if !ok {
		return 0, false
	}
	return v.LooseNumber()
}
