package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolatedLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader().WithSearchDirs(t.TempDir())
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := isolatedLoader(t).Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.Monitor.Interval())
	require.NoError(t, NewValidator().Validate(cfg))
}

func TestLoader_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/other.db
bulk:
  mode: clone
search:
  default_limit: 25
`), 0o600))

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, BulkModeClone, cfg.Bulk.Mode)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "export.json", cfg.Exports.DefaultFilename)
	assert.Equal(t, path, loader.ConfigFile())
}

func TestLoader_SearchDirs(t *testing.T) {
	project := t.TempDir()
	user := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "config.yaml"), []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(user, "config.yaml"), []byte("log:\n  level: error\n"), 0o600))

	cfg, err := NewLoader().WithSearchDirs(project, user).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "project config must win over user config")
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("monitor:\n  max_probes: 2\n"), 0o600))
	t.Setenv("PROMPTBANK_MONITOR_MAX_PROBES", "16")

	cfg, err := NewLoader().WithSearchDirs(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Monitor.MaxProbes)
}

func TestLoader_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PROMPTBANK_DATABASE_PATH", "from-env.db")
	v := viper.New()
	v.Set("database.path", "from-flag.db")

	cfg, err := NewLoaderWithViper(v).WithSearchDirs(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.Database.Path)
}

func TestLoader_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o600))

	_, err := NewLoader().WithConfigFile(path).Load()
	assert.Error(t, err)
}

func TestDefaultYAML_RoundTrips(t *testing.T) {
	data, err := DefaultYAML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDurations_FallBack(t *testing.T) {
	assert.Equal(t, 2*time.Second, MonitorConfig{PollInterval: "nope"}.Interval())
	assert.Equal(t, 500*time.Millisecond, MonitorConfig{PollInterval: "500ms"}.Interval())
	assert.Equal(t, 5*time.Second, DatabaseConfig{BusyTimeout: "-1s"}.BusyTimeoutDuration())
}
