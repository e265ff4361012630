package analysis

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

func TestNumericScenario(t *testing.T) {
	seq := record.Sequence{
		record.Of("nome", "Ana", "valor", 10),
		record.Of("nome", "Bia", "valor", 20),
	}
	s := Numeric(seq, NumericOptions{})
	if s.Total != 30 || s.Mean != 15 || s.Median != 15 || s.Min != 10 || s.Max != 20 || s.Count != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !almostEqual(s.Stdev, 7.0710678, 1e-6) {
		t.Fatalf("stdev = %f, want ~7.0710678", s.Stdev)
	}
	if r := s.Rounded(); r.Stdev != 7.07 || r.Total != 30 {
		t.Fatalf("rounded = %+v", r)
	}
	if s.Records != 2 {
		t.Fatalf("records = %d", s.Records)
	}
}

func TestNumericEmptyIsZeroFilled(t *testing.T) {
	for _, seq := range []record.Sequence{nil, {record.Of("nome", "Ana")}, {record.Of("valor", "abc")}} {
		s := Numeric(seq, NumericOptions{})
		s.Records = 0
		if s != (NumericSummary{}) {
			t.Fatalf("expected zero summary, got %+v", s)
		}
	}
}

func TestNumericSingleValueHasZeroStdev(t *testing.T) {
	s := Numeric(record.Sequence{record.Of("valor", 42.5)}, NumericOptions{})
	if s.Count != 1 || s.Stdev != 0 || s.Median != 42.5 || s.Min != s.Max {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestNumericAllowListPriority(t *testing.T) {
	seq := record.Sequence{
		// first allow-listed numeric field wins; "valor" is not numeric here
		record.Of("valor", "n/a", "custo", 5, "price", 99),
		record.Of("Amount", 7),
		record.Of("quantidade", 1000),
	}
	vals := ExtractNumbers(seq, NumericOptions{})
	if len(vals) != 2 || vals[0] != 5 || vals[1] != 7 {
		t.Fatalf("unexpected values %v", vals)
	}
	vals = ExtractNumbers(seq, NumericOptions{Fields: []string{"quantidade"}})
	if len(vals) != 1 || vals[0] != 1000 {
		t.Fatalf("custom allow-list ignored: %v", vals)
	}
}

func TestNumericDefaultsCoverEveryFinancialKey(t *testing.T) {
	seq := record.Sequence{
		record.Of("cost", 10),
		record.Of("preço", 20),
		record.Of("revenue", 5),
		// decomposed "preço" (c + combining cedilla)
		record.Of("prec\u0327o", 1),
		record.Of("Expense", 4),
	}
	s := Numeric(seq, NumericOptions{})
	if s.Count != 5 || s.Total != 40 {
		t.Fatalf("financial keys missing from default amount fields: %+v", s)
	}
}

func TestNumericScanAll(t *testing.T) {
	seq := record.Sequence{
		record.Of("a", 1, "b", "R$ 2,5", "c", "x", "d", true),
		record.Of("e", "3"),
	}
	vals := ExtractNumbers(seq, NumericOptions{ScanAll: true})
	want := []float64{1, 2.5, 3}
	if len(vals) != len(want) {
		t.Fatalf("values = %v, want %v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("values = %v, want %v", vals, want)
		}
	}
}

func TestSummarizeMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for iter := 0; iter < 40; iter++ {
		n := 1 + rng.Intn(30)
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = math.Round(rng.NormFloat64()*1000) / 100
		}
		s := Summarize(vals)
		if s.Count != n {
			t.Fatalf("count = %d, want %d", s.Count, n)
		}
		if !almostEqual(s.Mean, mean(vals), 1e-9) {
			t.Fatalf("mean = %f, want %f", s.Mean, mean(vals))
		}
		if !almostEqual(s.Stdev, sampleStd(vals), 1e-9) {
			t.Fatalf("stdev = %f, want %f", s.Stdev, sampleStd(vals))
		}
		if s.Min != minFloat(vals) || s.Max != maxFloat(vals) {
			t.Fatalf("extremes = %f/%f", s.Min, s.Max)
		}
		if s.Min > s.Median || s.Median > s.Max {
			t.Fatalf("median %f outside [%f, %f]", s.Median, s.Min, s.Max)
		}
		if !almostEqual(s.Median, referenceMedian(vals), 1e-12) {
			t.Fatalf("median = %f, want %f", s.Median, referenceMedian(vals))
		}
	}
}

func TestMedianEvenCount(t *testing.T) {
	if m := Summarize([]float64{4, 1, 3, 2}).Median; m != 2.5 {
		t.Fatalf("median = %f, want 2.5", m)
	}
	if m := Summarize([]float64{5, 1, 3}).Median; m != 3 {
		t.Fatalf("median = %f, want 3", m)
	}
}

func TestRoundedHalfAwayFromZero(t *testing.T) {
	s := NumericSummary{Total: 2.345, Mean: -2.345, Stdev: 1.005}
	r := s.Rounded()
	if r.Total != 2.35 || r.Mean != -2.35 {
		t.Fatalf("rounded = %+v", r)
	}
	if s.Total != 2.345 {
		t.Fatalf("Rounded must not modify the receiver")
	}
}

func referenceMedian(vals []float64) float64 {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
