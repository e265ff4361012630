package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.False(t, c.Strict)
	assert.Equal(t, "none", c.Fallback)
	assert.Equal(t, "file", c.Store)
	assert.Equal(t, analysis.Uncategorized, c.UncategorizedLabel)
	assert.Equal(t, filepath.Join(home, ".tallyloom", "sessions"), c.SessionsDir)
	assert.Equal(t, filepath.Join(home, ".tallyloom", "sessions.db"), c.SQLitePath)

	backend, loc := c.StoreLocation()
	assert.Equal(t, "file", backend)
	assert.Equal(t, c.SessionsDir, loc)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("strict", "true"))
	require.NoError(t, c.Set("fallback", "line"))
	require.NoError(t, c.Set("store", "SQLite"))
	require.NoError(t, c.Set("amount_fields", "valor, total ,"))
	require.NoError(t, c.Set("rate_limit_rps", "2.5"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.True(t, got.Strict)
	assert.Equal(t, "lines", got.Fallback)
	assert.Equal(t, "sqlite", got.Store)
	assert.Equal(t, []string{"valor", "total"}, got.AmountFields)
	assert.InDelta(t, 2.5, got.RateLimitRPS, 1e-9)

	backend, loc := got.StoreLocation()
	assert.Equal(t, "sqlite", backend)
	assert.Equal(t, got.SQLitePath, loc)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nserver_addr: 127.0.0.1:9000\n"), 0o644))
	t.Setenv("TALLYLOOM_SERVER_ADDR", "0.0.0.0:7000")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "0.0.0.0:7000", c.ServerAddr)
}

func TestLoadRejectsBadFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallback: sometimes\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	for _, tc := range []struct{ key, val string }{
		{"strict", "maybe"},
		{"fallback", "sometimes"},
		{"store", "postgres"},
		{"log_level", "trace"},
		{"log_format", "xml"},
		{"max_concurrent", "-1"},
		{"rate_limit_rps", "fast"},
		{"unknown", "x"},
	} {
		assert.Error(t, c.Set(tc.key, tc.val), "%s=%s", tc.key, tc.val)
	}
}

func TestEngineConfig(t *testing.T) {
	c := &Global{
		Strict:             true,
		Fallback:           "lines",
		FinancialKeys:      []string{"total"},
		AmountFields:       []string{"total"},
		CategoryFields:     []string{"setor"},
		UncategorizedLabel: "n/a",
	}
	ec := c.EngineConfig()
	assert.True(t, ec.Parse.Strict)
	assert.Equal(t, parser.FallbackLines, ec.Parse.Fallback)
	assert.Equal(t, "n/a", ec.Categorical.Placeholder)
	assert.Equal(t, []string{"total"}, ec.Numeric.Fields)

	var r record.Record
	r.Set("total", record.Int(3))
	assert.True(t, ec.Classifier.IsFinancial(r))
	var org record.Record
	org.Set("valor", record.Int(3))
	assert.False(t, ec.Classifier.IsFinancial(org))

	// empty key list falls back to the stock classifier
	ec = (&Global{}).EngineConfig()
	assert.True(t, ec.Classifier.IsFinancial(org))
}

func TestServerOptions(t *testing.T) {
	c := &Global{
		ServerAddr:           ":9999",
		ServerReadTimeoutSec: 3,
		MaxBodyBytes:         1024,
		RateLimitRPS:         0,
		MaxConcurrent:        2,
	}
	o := c.ServerOptions()
	assert.Equal(t, ":9999", o.Addr)
	assert.Equal(t, 3*time.Second, o.ReadTimeout)
	assert.Equal(t, int64(1024), o.MaxBodyBytes)
	assert.Zero(t, o.RateLimitRPS)
	assert.Equal(t, 2, o.MaxConcurrent)
	assert.True(t, o.SaveSessions)
}
