package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Format.DecimalSeparator = "."
	cfg.Format.ThousandsSeparator = ","
	cfg.Statement.PageSize = 20
	cfg.Integrity.VerifyOnCommit = true

	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, cfg.Format, got.Format)
	assert.Equal(t, 20, got.Statement.PageSize)
	assert.True(t, got.Integrity.VerifyOnCommit)
	assert.Equal(t, cfg.Audit, got.Audit)
	assert.Equal(t, dir, got.Dir())
}

func TestDefaults(t *testing.T) {
	cfg := Default("/srv/books")

	assert.Equal(t, "debs.db", cfg.Store.Path)
	assert.Equal(t, ",", cfg.Format.DecimalSeparator)
	assert.Equal(t, " ", cfg.Format.ThousandsSeparator)
	assert.Equal(t, "-", cfg.Format.MinusSign)
	assert.Equal(t, 50, cfg.Statement.PageSize)
	assert.True(t, cfg.Audit.Enabled)
	assert.False(t, cfg.Integrity.VerifyOnCommit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join("/srv/books", "debs.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/srv/books", "logs", "audit-log.csv"), cfg.AuditPath())
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("statement:\n  page_size: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Statement.PageSize)
	assert.Equal(t, ",", cfg.Format.DecimalSeparator)
	assert.True(t, cfg.Audit.Enabled)
}

func TestYAMLFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(path, Default(dir)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "path: debs.db")
	assert.Contains(t, contents, "page_size: 50")
	assert.Contains(t, contents, "verify_on_commit: false")
	assert.NotContains(t, contents, "key")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default("/data")
	env := map[string]string{EnvDB: "/tmp/other.db", EnvLogLevel: "debug"}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "/tmp/other.db", cfg.StorePath())

	lvl, err := cfg.Log.ZapLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDB, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEBS_LOG_LEVEL=warn\n"), 0o644))
	t.Setenv(EnvLogLevel, "")
	require.NoError(t, os.Unsetenv(EnvLogLevel))

	cfg, err := Resolve(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "debs.db"), cfg.StorePath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same separators", func(c *Config) { c.Format.ThousandsSeparator = "," }},
		{"digit separator", func(c *Config) { c.Format.DecimalSeparator = "0" }},
		{"operator separator", func(c *Config) { c.Format.ThousandsSeparator = "-" }},
		{"empty decimal", func(c *Config) { c.Format.DecimalSeparator = "" }},
		{"minus clashes", func(c *Config) { c.Format.MinusSign = "," }},
		{"page size", func(c *Config) { c.Statement.PageSize = 0 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"empty store", func(c *Config) { c.Store.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestKey(t *testing.T) {
	t.Setenv(EnvKey, "from-env")
	assert.Equal(t, "from-flag", Key("from-flag"))
	assert.Equal(t, "from-env", Key(""))
}

func TestCodec(t *testing.T) {
	cfg := Default("")
	cfg.Format = FormatConfig{DecimalSeparator: ".", ThousandsSeparator: ",", MinusSign: "-"}
	v, err := cfg.Codec().Parse("1,234.56")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), v)
}
