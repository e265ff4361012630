// Package classify partitions records into financial and organizational
// buckets by looking at their keys.
package classify

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/KaramelBytes/tallyloom/internal/record"
)

// Kind is a classification bucket.
type Kind uint8

const (
	Financial Kind = iota
	Organizational
)

// Label returns the domain label of the bucket.
func (k Kind) Label() string {
	if k == Financial {
		return "financeiro"
	}
	return "organizacional"
}

func (k Kind) String() string { return k.Label() }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.Label()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseKind accepts the domain labels and their English names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "financeiro", "financial", "finance":
		return Financial, nil
	case "organizacional", "organizational", "organization":
		return Organizational, nil
	default:
		return Financial, fmt.Errorf("unknown kind %q (use financeiro|organizacional)", s)
	}
}

// DefaultFinancialKeys are the keys that mark a record as monetary.
var DefaultFinancialKeys = []string{
	"valor", "preco", "preço", "custo", "receita", "despesa",
	"amount", "price", "cost", "revenue", "expense",
}

// Classifier holds an immutable, case-insensitive key set. It is safe for
// concurrent use.
type Classifier struct {
	keys map[string]struct{}
}

// New builds a classifier over keys. Keys are normalized the same way
// record keys are at lookup time.
func New(keys ...string) *Classifier {
	c := &Classifier{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if nk := NormalizeKey(k); nk != "" {
			c.keys[nk] = struct{}{}
		}
	}
	return c
}

// Default returns a classifier over DefaultFinancialKeys.
func Default() *Classifier { return New(DefaultFinancialKeys...) }

// Keys returns the normalized key set in no particular order.
func (c *Classifier) Keys() []string {
	out := make([]string, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	return out
}

// NormalizeKey trims, NFC-normalizes and lower-cases a key.
func NormalizeKey(k string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(k)))
}

// IsFinancial reports whether any key of r is in the financial key set.
func (c *Classifier) IsFinancial(r record.Record) bool {
	for _, k := range r.Keys() {
		if _, ok := c.keys[NormalizeKey(k)]; ok {
			return true
		}
	}
	return false
}

// KindOf returns the bucket r belongs to.
func (c *Classifier) KindOf(r record.Record) Kind {
	if c.IsFinancial(r) {
		return Financial
	}
	return Organizational
}

// Buckets is the result of a classification pass.
type Buckets struct {
	Financial      record.Sequence
	Organizational record.Sequence
}

// Of returns the bucket for kind.
func (b Buckets) Of(k Kind) record.Sequence {
	if k == Financial {
		return b.Financial
	}
	return b.Organizational
}

// Classify partitions seq. Every record lands in exactly one bucket and the
// relative input order is kept inside each bucket.
func (c *Classifier) Classify(seq record.Sequence) Buckets {
	out := Buckets{Financial: record.Sequence{}, Organizational: record.Sequence{}}
	for _, r := range seq {
		if c.IsFinancial(r) {
			out.Financial = append(out.Financial, r)
		} else {
			out.Organizational = append(out.Organizational, r)
		}
	}
	return out
}
