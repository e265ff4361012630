package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceOrder(t *testing.T) {
	cases := []struct {
		in   string
		want Value
	}{
		{"42", Int(42)},
		{" 007 ", Int(7)},
		{"3.5", Float(3.5)},
		{"-2", Float(-2)},
		{"1e3", Float(1000)},
		{`"10"`, Int(10)},
		{"'sim'", Bool(true)},
		{"Yes", Bool(true)},
		{"verdadeiro", Bool(true)},
		{"NÃO", Bool(false)},
		{"no", Bool(false)},
		{"falso", Bool(false)},
		{"NaN", String("NaN")},
		{"inf", String("inf")},
		{"0x10", String("0x10")},
		{"Saúde", String("Saúde")},
		{"", String("")},
		{"99999999999999999999", Float(1e20)},
	}
	for _, c := range cases {
		got := Coerce(c.in)
		assert.Equal(t, c.want, got, "Coerce(%q)", c.in)
	}
}

func TestCoerceNumericSkipsBooleans(t *testing.T) {
	assert.Equal(t, String("yes"), CoerceNumeric("yes"))
	assert.Equal(t, Int(10), CoerceNumeric(`"10"`))
	assert.Equal(t, Float(2.5), CoerceNumeric("2.5"))
}

func TestRecordSetAndOrder(t *testing.T) {
	var r Record
	r.Set("b", Int(1))
	r.Set("a", Int(2))
	r.Set("b", Int(3))
	require.Equal(t, []string{"b", "a"}, r.Keys())
	v, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, Int(3), v)

	assert.False(t, r.SetIfAbsent("a", Int(9)))
	v, _ = r.Get("a")
	assert.Equal(t, Int(2), v)
}

func TestRecordJSONPreservesOrder(t *testing.T) {
	src := `{"valor":100,"categoria":"A","ok":true,"taxa":1.5,"nada":null,"tags":["x"]}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(src), &r))
	require.Equal(t, []string{"valor", "categoria", "ok", "taxa", "nada", "tags"}, r.Keys())

	v, _ := r.Get("tags")
	assert.Equal(t, String(`["x"]`), v)
	v, _ = r.Get("valor")
	assert.Equal(t, Int(100), v)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"valor":100,"categoria":"A","ok":true,"taxa":1.5,"nada":null,"tags":"[\"x\"]"}`, string(out))
}

func TestValueNumber(t *testing.T) {
	f, ok := String(" 12.5 ").Number()
	require.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = Bool(true).Number()
	assert.False(t, ok)

	_, ok = String("R$ 10,50").Number()
	assert.False(t, ok)
	f, ok = String("R$ 10,50").LooseNumber()
	require.True(t, ok)
	assert.Equal(t, 10.5, f)
}

func TestRecordEqualAcrossNumericKinds(t *testing.T) {
	a := Of("nome", "Ana", "valor", 10)
	b := Of("valor", 10.0, "nome", "Ana")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Of("nome", "Ana")))
}

func TestKeyUnion(t *testing.T) {
	seq := Sequence{Of("a", 1, "b", 2), Of("c", 3, "a", 4)}
	assert.Equal(t, []string{"a", "b", "c"}, seq.KeyUnion())
}
