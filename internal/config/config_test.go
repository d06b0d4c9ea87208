package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./Raw-Backups", cfg.Snapshot.Dir)
	assert.Equal(t, "kenmei-export-", cfg.Snapshot.Prefix)
	assert.Equal(t, ".csv", cfg.Snapshot.Extension)
	assert.Empty(t, cfg.Snapshot.NullValues)
	assert.Equal(t, "MasterBackup.xlsx", cfg.Ledger.Path)
	assert.Empty(t, cfg.Journal.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
snapshot:
  dir: /data/exports
  null_values: ["NaN", "null"]
ledger:
  path: /data/Master.xlsx
journal:
  path: /data/journal.db
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/exports", cfg.Snapshot.Dir)
	assert.Equal(t, []string{"NaN", "null"}, cfg.Snapshot.NullValues)
	assert.Equal(t, "/data/Master.xlsx", cfg.Ledger.Path)
	assert.Equal(t, "/data/journal.db", cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "kenmei-export-", cfg.Snapshot.Prefix)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ledger:
  path: from-file.xlsx
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEDGER_LEDGER_PATH", "from-env.xlsx")
	t.Setenv("LEDGER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env.xlsx", cfg.Ledger.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("LEDGER_SNAPSHOT_DIR", "/exports")
	t.Setenv("LEDGER_SNAPSHOT_PREFIX", "prefix-")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/exports", cfg.Snapshot.Dir)
	assert.Equal(t, "prefix-", cfg.Snapshot.Prefix)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("snapshot: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Snapshot: SnapshotConfig{Dir: "./Raw-Backups", Extension: ".csv"},
			Ledger:   LedgerConfig{Path: "MasterBackup.xlsx"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no dir", func(c *Config) { c.Snapshot.Dir = "" }, "snapshot.dir"},
		{"no ledger", func(c *Config) { c.Ledger.Path = "" }, "ledger.path"},
		{"bad extension", func(c *Config) { c.Snapshot.Extension = "csv" }, "must start with a dot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
