package pipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

func TestParseAndClassifyJSON(t *testing.T) {
	e := New(DefaultConfig())
	res, err := e.ParseAndClassify(`[{"valor": 100, "categoria": "A"}, {"tipo": "X"}]`, Options{})
	require.NoError(t, err)
	assert.Equal(t, format.JSON, res.Format)
	require.Len(t, res.Financial, 1)
	require.Len(t, res.Organizational, 1)
	assert.True(t, res.Financial[0].Equal(record.Of("valor", 100, "categoria", "A")))
	assert.True(t, res.Organizational[0].Equal(record.Of("tipo", "X")))
	assert.Equal(t, 2, res.Total())
}

func TestParseAndClassifyCSVAndSummarize(t *testing.T) {
	e := New(DefaultConfig())
	res, err := e.ParseAndClassify("nome,valor\nAna,10\nBia,20", Options{})
	require.NoError(t, err)
	assert.Equal(t, format.CSV, res.Format)
	require.Len(t, res.Financial, 2)
	assert.Empty(t, res.Organizational)

	sum := e.Summarize(res.Financial, classify.Financial)
	require.NotNil(t, sum.Numeric)
	assert.Nil(t, sum.Categorical)
	assert.Equal(t, 30.0, sum.Numeric.Total)
	assert.Equal(t, 15.0, sum.Numeric.Mean)
	assert.Equal(t, 15.0, sum.Numeric.Median)
	assert.Equal(t, 2, sum.Numeric.Count)
	assert.InDelta(t, 7.0710678, sum.Numeric.Stdev, 1e-6)
}

func TestParseAndClassifyFreeText(t *testing.T) {
	e := New(DefaultConfig())
	res, err := e.ParseAndClassify("categoria: Saúde, nome: Ana", Options{})
	require.NoError(t, err)
	assert.Equal(t, format.FreeText, res.Format)
	require.Len(t, res.Organizational, 1)

	sum := e.Summarize(res.Organizational, classify.Organizational)
	require.NotNil(t, sum.Categorical)
	assert.Equal(t, map[string]int{"Saúde": 1}, sum.Categorical.Counts)
	assert.Equal(t, 1, sum.Categorical.Distinct)
}

func TestParseAndClassifyEnglishAmountKeys(t *testing.T) {
	e := New(DefaultConfig())
	res, err := e.ParseAndClassify(`[{"cost":10},{"preço":20},{"revenue":5}]`, Options{})
	require.NoError(t, err)
	require.Len(t, res.Financial, 3)

	sum := e.Summarize(res.Financial, classify.Financial)
	require.NotNil(t, sum.Numeric)
	assert.Equal(t, 3, sum.Numeric.Count)
	assert.Equal(t, 35.0, sum.Numeric.Total)
}

func TestParseAndClassifyInvalidJSON(t *testing.T) {
	e := New(DefaultConfig())
	_, err := e.ParseAndClassify("{invalid", Options{Strict: true})
	require.ErrorIs(t, err, parser.ErrInvalidInput)

	res, err := e.ParseAndClassify("{invalid", Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total())
	assert.NotNil(t, res.Financial)
	assert.NotNil(t, res.Organizational)

	strict := New(Config{Parse: parser.Options{Strict: true}})
	_, err = strict.ParseAndClassify("[1,", Options{})
	assert.ErrorIs(t, err, parser.ErrInvalidInput)
}

func TestParseAndClassifyExplicitFormat(t *testing.T) {
	e := New(DefaultConfig())
	tag := format.FreeText
	res, err := e.ParseAndClassify("valor: 10, nome: Ana", Options{Format: &tag})
	require.NoError(t, err)
	assert.Equal(t, format.FreeText, res.Format)
	require.Len(t, res.Financial, 1)

	// an explicit CSV tag is honored even though the text holds pairs
	csv := format.CSV
	res, err = e.ParseAndClassify("valor: 10, nome: Ana", Options{Format: &csv})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total())
}

func TestParseAndClassifyFallback(t *testing.T) {
	e := New(Config{Parse: parser.Options{Fallback: parser.FallbackLines}})
	res, err := e.ParseAndClassify("linha um\nlinha dois", Options{})
	require.NoError(t, err)
	require.Len(t, res.Organizational, 2)
	v, ok := res.Organizational[0].Get("text")
	require.True(t, ok)
	assert.Equal(t, "linha um", v.String())
}

func TestParseAndClassifyEmpty(t *testing.T) {
	e := New(DefaultConfig())
	for _, raw := range []string{"", "   \n\t"} {
		res, err := e.ParseAndClassify(raw, Options{Strict: true})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Total())
	}
}

func TestEngineConcurrentUse(t *testing.T) {
	e := New(DefaultConfig())
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw := fmt.Sprintf("nome,valor\nx,%d\ny,%d", i, i*2)
			res, err := e.ParseAndClassify(raw, Options{})
			if err != nil {
				errs <- err
				return
			}
			s := e.Summarize(res.Financial, classify.Financial)
			if s.Numeric.Total != float64(3*i) {
				errs <- fmt.Errorf("worker %d: total %f", i, s.Numeric.Total)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEngineReport(t *testing.T) {
	e := New(DefaultConfig())
	res, err := e.ParseAndClassify("nome,valor\nAna,10\nBia,20", Options{})
	require.NoError(t, err)
	rep := e.Report("in.csv", res, 2, true)
	assert.Equal(t, "csv", rep.Format)
	assert.Equal(t, 7.07, rep.Financial.Stdev)
	assert.Contains(t, rep.Markdown(), "[FINANCEIRO]")
}
