// Package config loads debs.yaml, an optional .env file next to it, and the
// DEBS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/debs/internal/currency"
)

// FileName is the default configuration file name.
const FileName = "debs.yaml"

// Environment variables that override the file.
const (
	EnvDB       = "DEBS_DB"
	EnvLogLevel = "DEBS_LOG_LEVEL"
	EnvKey      = "DEBS_KEY" // never stored in the file
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the top-level debs.yaml configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Format    FormatConfig    `yaml:"format"`
	Statement StatementConfig `yaml:"statement"`
	Audit     AuditConfig     `yaml:"audit"`
	Integrity IntegrityConfig `yaml:"integrity"`
	Log       LogConfig       `yaml:"log"`

	dir string // relative paths resolve against this
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// FormatConfig controls how amounts are typed and shown.
type FormatConfig struct {
	DecimalSeparator   string `yaml:"decimal_separator"`
	ThousandsSeparator string `yaml:"thousands_separator"`
	MinusSign          string `yaml:"minus_sign"`
}

// StatementConfig controls account statements.
type StatementConfig struct {
	PageSize int `yaml:"page_size"`
}

// AuditConfig controls the CSV audit log of mutations.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IntegrityConfig controls extra invariant checking.
type IntegrityConfig struct {
	VerifyOnCommit bool `yaml:"verify_on_commit"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with defaults for a new ledger rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Store: StoreConfig{Path: "debs.db"},
		Format: FormatConfig{
			DecimalSeparator:   ",",
			ThousandsSeparator: " ",
			MinusSign:          "-",
		},
		Statement: StatementConfig{PageSize: 50},
		Audit:     AuditConfig{Enabled: true, Path: filepath.Join("logs", "audit-log.csv")},
		Log:       LogConfig{Level: "info"},
		dir:       dir,
	}
}

// Load reads a debs.yaml file from disk. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default(filepath.Dir(path))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolve builds the effective configuration for path: the .env file in the
// same directory (if any) is loaded into the environment, then the YAML file
// (defaults if it does not exist), then environment overrides. The result is
// validated.
func Resolve(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(dir), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with DEBS_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate checks that amounts can be parsed unambiguously with the
// configured separators and that numeric settings are in range.
func (c *Config) Validate() error {
	f := c.Format
	switch {
	case f.DecimalSeparator == "":
		return fmt.Errorf("%w: format.decimal_separator is empty", ErrInvalid)
	case f.MinusSign == "":
		return fmt.Errorf("%w: format.minus_sign is empty", ErrInvalid)
	case f.DecimalSeparator == f.ThousandsSeparator:
		return fmt.Errorf("%w: decimal and thousands separators are both %q", ErrInvalid, f.DecimalSeparator)
	case f.MinusSign == f.DecimalSeparator || f.MinusSign == f.ThousandsSeparator:
		return fmt.Errorf("%w: minus sign %q clashes with a separator", ErrInvalid, f.MinusSign)
	}
	for name, sep := range map[string]string{
		"decimal_separator":   f.DecimalSeparator,
		"thousands_separator": f.ThousandsSeparator,
	} {
		if strings.ContainsAny(sep, "0123456789+-*/()") {
			return fmt.Errorf("%w: format.%s %q contains a digit or operator", ErrInvalid, name, sep)
		}
	}
	if c.Statement.PageSize <= 0 {
		return fmt.Errorf("%w: statement.page_size must be positive, got %d", ErrInvalid, c.Statement.PageSize)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalid)
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("%w: audit.path is empty", ErrInvalid)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Codec returns the amount codec for the configured separators.
func (c *Config) Codec() currency.Codec {
	return currency.Codec{
		DecimalSeparator:   c.Format.DecimalSeparator,
		ThousandsSeparator: c.Format.ThousandsSeparator,
		MinusSign:          c.Format.MinusSign,
	}
}

// Dir is the directory relative paths resolve against.
func (c *Config) Dir() string { return c.dir }

// StorePath returns the database path.
func (c *Config) StorePath() string { return c.resolve(c.Store.Path) }

// AuditPath returns the audit log path.
func (c *Config) AuditPath() string { return c.resolve(c.Audit.Path) }

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// ZapLevel parses Level; empty means info.
func (l LogConfig) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Key returns the unlock key: flag if set, else $DEBS_KEY.
func Key(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvKey)
}
