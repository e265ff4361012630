package analysis

import (
	"testing"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

func TestTrend(t *testing.T) {
	seq := record.Sequence{
		record.Of("data", "2024-02", "valor", 5),
		record.Of("data", "2024-01", "valor", "10,5"),
		record.Of("data", "2024-02", "valor", 7),
		record.Of("valor", 1),
		record.Of("data", "2024-03", "valor", "abc"),
	}
	got := Trend(seq, "valor", "")
	want := []TrendPoint{{"2024-01", 10.5, 1}, {"2024-02", 12, 2}, {"unknown", 1, 1}}
	if len(got) != len(want) {
		t.Fatalf("trend = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("trend[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if empty := Trend(nil, "valor", "data"); empty == nil || len(empty) != 0 {
		t.Fatalf("empty trend = %v", empty)
	}
}

func TestHistogram(t *testing.T) {
	var seq record.Sequence
	for _, v := range []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		seq = append(seq, record.Of("valor", v))
	}
	bins := Histogram(seq, "valor", 5)
	if len(bins) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 11 {
		t.Fatalf("bins hold %d values, want 11", total)
	}
	// max lands in the last bin
	if bins[4].Count != 3 || bins[4].Label != "8.00-10.00" {
		t.Fatalf("last bin = %+v", bins[4])
	}

	flat := Histogram(record.Sequence{record.Of("valor", 3), record.Of("valor", 3)}, "valor", 4)
	if len(flat) != 1 || flat[0].Count != 2 || flat[0].Label != "3.00-3.00" {
		t.Fatalf("flat histogram = %+v", flat)
	}
	if len(Histogram(nil, "valor", 3)) != 0 {
		t.Fatalf("expected no bins for empty input")
	}
}

func TestTopByCategory(t *testing.T) {
	seq := record.Sequence{
		record.Of("categoria", "A", "valor", 10),
		record.Of("categoria", "B", "valor", 30),
		record.Of("categoria", "A", "valor", 25),
		record.Of("valor", 1),
		record.Of("categoria", "C", "valor", "x"),
	}
	got := TopByCategory(seq, "valor", "categoria", 2)
	if len(got) != 2 || got[0] != (CategoryTotal{"A", 35}) || got[1] != (CategoryTotal{"B", 30}) {
		t.Fatalf("top = %v", got)
	}
	all := TopByCategory(seq, "valor", "", 0)
	if len(all) != 4 || all[3] != (CategoryTotal{"C", 0}) {
		t.Fatalf("all = %v", all)
	}
}

func TestCompare(t *testing.T) {
	a := record.Sequence{record.Of("valor", 100)}
	b := record.Sequence{record.Of("valor", 80), record.Of("valor", 70)}
	c := Compare(a, b, "valor")
	if c.Difference != 50 || c.PercentageChange != 50 || c.Trend != Up {
		t.Fatalf("compare = %+v", c)
	}
	c = Compare(b, a, "valor")
	if c.Trend != Down {
		t.Fatalf("expected down, got %s", c.Trend)
	}
	c = Compare(nil, a, "valor")
	if c.PercentageChange != 0 || c.Trend != Up {
		t.Fatalf("zero baseline = %+v", c)
	}
	if Compare(a, a, "valor").Trend != Stable {
		t.Fatalf("expected stable")
	}
}
