package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/server"
	"github.com/KaramelBytes/tallyloom/internal/utils"
)

// dirName is the per-user directory under $HOME holding config and data.
const dirName = ".tallyloom"

// Global configuration structure.
type Global struct {
	// Parsing
	Strict         bool   `mapstructure:"strict" yaml:"strict"`
	Fallback       string `mapstructure:"fallback" yaml:"fallback"`
	ScanAllNumeric bool   `mapstructure:"scan_all_numeric" yaml:"scan_all_numeric"`

	// Classification and statistics
	FinancialKeys      []string `mapstructure:"financial_keys" yaml:"financial_keys"`
	AmountFields       []string `mapstructure:"amount_fields" yaml:"amount_fields"`
	CategoryFields     []string `mapstructure:"category_fields" yaml:"category_fields"`
	UncategorizedLabel string   `mapstructure:"uncategorized_label" yaml:"uncategorized_label"`

	// Sessions
	Store       string `mapstructure:"store" yaml:"store"`
	SessionsDir string `mapstructure:"sessions_dir" yaml:"sessions_dir"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// HTTP server
	ServerAddr            string  `mapstructure:"server_addr" yaml:"server_addr"`
	ServerReadTimeoutSec  int     `mapstructure:"server_read_timeout_sec" yaml:"server_read_timeout_sec"`
	ServerWriteTimeoutSec int     `mapstructure:"server_write_timeout_sec" yaml:"server_write_timeout_sec"`
	MaxBodyBytes          int64   `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RateLimitRPS          float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst        int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	MaxConcurrent         int     `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tallyloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TALLYLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("strict", false)
	v.SetDefault("fallback", "none")
	v.SetDefault("scan_all_numeric", false)
	v.SetDefault("financial_keys", classify.DefaultFinancialKeys)
	v.SetDefault("amount_fields", analysis.DefaultAmountFields)
	v.SetDefault("category_fields", analysis.DefaultCategoryFields)
	v.SetDefault("uncategorized_label", analysis.Uncategorized)
	v.SetDefault("store", "file")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	// Server defaults
	sd := server.DefaultOptions()
	v.SetDefault("server_addr", sd.Addr)
	v.SetDefault("server_read_timeout_sec", int(sd.ReadTimeout/time.Second))
	v.SetDefault("server_write_timeout_sec", int(sd.WriteTimeout/time.Second))
	v.SetDefault("max_body_bytes", sd.MaxBodyBytes)
	v.SetDefault("rate_limit_rps", sd.RateLimitRPS)
	v.SetDefault("rate_limit_burst", sd.RateLimitBurst)
	v.SetDefault("max_concurrent", sd.MaxConcurrent)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := parser.ParseFallback(c.Fallback); err != nil {
		return nil, fmt.Errorf("config fallback: %w", err)
	}
	c.SessionsDir = utils.ExpandHome(c.SessionsDir)
	c.SQLitePath = utils.ExpandHome(c.SQLitePath)
	// Resolve data locations under ~/.tallyloom
	if c.SessionsDir == "" || c.SQLitePath == "" {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		if c.SessionsDir == "" {
			c.SessionsDir = filepath.Join(dir, "sessions")
		}
		if c.SQLitePath == "" {
			c.SQLitePath = filepath.Join(dir, "sessions.db")
		}
	}
	return &c, nil
}

// EngineConfig builds the immutable engine configuration.
func (c *Global) EngineConfig() pipeline.Config {
	fb, _ := parser.ParseFallback(c.Fallback)
	keys := c.FinancialKeys
	if len(keys) == 0 {
		keys = classify.DefaultFinancialKeys
	}
	return pipeline.Config{
		Classifier: classify.New(keys...),
		Numeric: analysis.NumericOptions{
			Fields:  c.AmountFields,
			ScanAll: c.ScanAllNumeric,
		},
		Categorical: analysis.CategoricalOptions{
			Fields:      c.CategoryFields,
			Placeholder: c.UncategorizedLabel,
		},
		Parse: parser.Options{Strict: c.Strict, Fallback: fb},
	}
}

// ServerOptions maps the server keys onto server.Options.
func (c *Global) ServerOptions() server.Options {
	o := server.DefaultOptions()
	if c.ServerAddr != "" {
		o.Addr = c.ServerAddr
	}
	if c.ServerReadTimeoutSec > 0 {
		o.ReadTimeout = time.Duration(c.ServerReadTimeoutSec) * time.Second
	}
	if c.ServerWriteTimeoutSec > 0 {
		o.WriteTimeout = time.Duration(c.ServerWriteTimeoutSec) * time.Second
	}
	if c.MaxBodyBytes > 0 {
		o.MaxBodyBytes = c.MaxBodyBytes
	}
	o.RateLimitRPS = c.RateLimitRPS
	if c.RateLimitBurst > 0 {
		o.RateLimitBurst = c.RateLimitBurst
	}
	if c.MaxConcurrent > 0 {
		o.MaxConcurrent = c.MaxConcurrent
	}
	return o
}

// StoreLocation returns the backend name and its location.
func (c *Global) StoreLocation() (backend, location string) {
	if strings.EqualFold(c.Store, "sqlite") {
		return "sqlite", c.SQLitePath
	}
	return "file", c.SessionsDir
}

// Entry is one key/value pair for display.
type Entry struct {
	Key   string
	Value string
}

// Entries lists every key with its effective value, in file order.
func (c *Global) Entries() []Entry {
	list := func(xs []string) string { return strings.Join(xs, ",") }
	return []Entry{
		{"strict", strconv.FormatBool(c.Strict)},
		{"fallback", c.Fallback},
		{"scan_all_numeric", strconv.FormatBool(c.ScanAllNumeric)},
		{"financial_keys", list(c.FinancialKeys)},
		{"amount_fields", list(c.AmountFields)},
		{"category_fields", list(c.CategoryFields)},
		{"uncategorized_label", c.UncategorizedLabel},
		{"store", c.Store},
		{"sessions_dir", c.SessionsDir},
		{"sqlite_path", c.SQLitePath},
		{"log_level", c.LogLevel},
		{"log_format", c.LogFormat},
		{"server_addr", c.ServerAddr},
		{"server_read_timeout_sec", strconv.Itoa(c.ServerReadTimeoutSec)},
		{"server_write_timeout_sec", strconv.Itoa(c.ServerWriteTimeoutSec)},
		{"max_body_bytes", strconv.FormatInt(c.MaxBodyBytes, 10)},
		{"rate_limit_rps", strconv.FormatFloat(c.RateLimitRPS, 'f', -1, 64)},
		{"rate_limit_burst", strconv.Itoa(c.RateLimitBurst)},
		{"max_concurrent", strconv.Itoa(c.MaxConcurrent)},
	}
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		return b, nil
	}
	parseInt := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	splitList := func() []string {
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	var err error
	switch key {
	case "strict":
		c.Strict, err = parseBool()
	case "fallback":
		var fb parser.FallbackMode
		if fb, err = parser.ParseFallback(val); err == nil {
			c.Fallback = fb.String()
		}
	case "scan_all_numeric":
		c.ScanAllNumeric, err = parseBool()
	case "financial_keys":
		c.FinancialKeys = splitList()
	case "amount_fields":
		c.AmountFields = splitList()
	case "category_fields":
		c.CategoryFields = splitList()
	case "uncategorized_label":
		c.UncategorizedLabel = val
	case "store":
		switch strings.ToLower(val) {
		case "file", "sqlite":
			c.Store = strings.ToLower(val)
		default:
			err = fmt.Errorf("invalid store: %s (use file or sqlite)", val)
		}
	case "sessions_dir":
		c.SessionsDir = val
	case "sqlite_path":
		c.SQLitePath = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			err = fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			err = fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	case "server_addr":
		c.ServerAddr = val
	case "server_read_timeout_sec":
		c.ServerReadTimeoutSec, err = parseInt()
	case "server_write_timeout_sec":
		c.ServerWriteTimeoutSec, err = parseInt()
	case "max_body_bytes":
		var i int
		i, err = parseInt()
		c.MaxBodyBytes = int64(i)
	case "rate_limit_rps":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			err = fmt.Errorf("invalid float for rate_limit_rps: %v", val)
		} else {
			c.RateLimitRPS = f
		}
	case "rate_limit_burst":
		c.RateLimitBurst, err = parseInt()
	case "max_concurrent":
		c.MaxConcurrent, err = parseInt()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}
