package analysis

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

// DefaultCategoryFields are tried in order to find a record's category.
var DefaultCategoryFields = []string{"categoria", "tipo", "category", "type"}

// Uncategorized labels records with no category field.
const Uncategorized = "Sem categoria"

// CategoricalOptions controls grouping.
type CategoricalOptions struct {
	Fields      []string
	Placeholder string
	// TopN limits Distribution; 0 keeps every category.
	TopN int
	// Groups keeps the member records of each category.
	Groups bool
}

type CategoryCount struct {
	Value string `json:"category"`
	Count int    `json:"count"`
}

// CategoricalSummary is the distribution of records over categories.
type CategoricalSummary struct {
	Counts       map[string]int             `json:"categorias"`
	Distribution []CategoryCount            `json:"distribuicao"`
	Categories   []string                   `json:"categories"`
	Distinct     int                        `json:"total_categorias"`
	Total        int                        `json:"total"`
	Groups       map[string]record.Sequence `json:"grouped,omitempty"`
}

// Categorical groups seq by the first candidate field present in each
// record. The distribution is sorted by descending count, ties kept in
// first-seen order.
func Categorical(seq record.Sequence, opt CategoricalOptions) CategoricalSummary {
	fields := opt.Fields
	if len(fields) == 0 {
		fields = DefaultCategoryFields
	}
	placeholder := opt.Placeholder
	if placeholder == "" {
		placeholder = Uncategorized
	}

	s := CategoricalSummary{Counts: map[string]int{}, Categories: []string{}, Total: len(seq)}
	if opt.Groups {
		s.Groups = map[string]record.Sequence{}
	}
	for _, r := range seq {
		cat := CategoryOf(r, fields, placeholder)
		if _, ok := s.Counts[cat]; !ok {
			s.Categories = append(s.Categories, cat)
		}
		s.Counts[cat]++
		if s.Groups != nil {
			s.Groups[cat] = append(s.Groups[cat], r)
		}
	}
	s.Distinct = len(s.Categories)

	dist := make([]CategoryCount, 0, len(s.Categories))
	for _, c := range s.Categories {
		dist = append(dist, CategoryCount{Value: c, Count: s.Counts[c]})
	}
	sort.SliceStable(dist, func(i, j int) bool { return dist[i].Count > dist[j].Count })
	if opt.TopN > 0 && len(dist) > opt.TopN {
		dist = dist[:opt.TopN]
	}
	s.Distribution = dist
	return s
}

// CategoryOf returns the category of r: the display value of the first
// candidate field present, or placeholder when none is present or the value
// is blank.
func CategoryOf(r record.Record, fields []string, placeholder string) string {
	for _, name := range fields {
		if v, ok := lookupFold(r, name); ok {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
			return placeholder
		}
	}
	return placeholder
}
