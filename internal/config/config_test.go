package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", `
platform: windows
store:
  kind: file
  path: /var/lib/tasks.xml
audit:
  driver: file
  path: /var/lib/audit.db
log:
  level: debug
  console: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "windows", cfg.Platform)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, "/var/lib/tasks.xml", cfg.Store.Path)
	assert.Equal(t, "file", cfg.Audit.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.Log.Console)
	assert.True(t, *cfg.Log.Console)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.json", `{"platform":"unix","store":{"user":"deploy"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "unix", cfg.Platform)
	assert.Equal(t, "deploy", cfg.Store.User)
}

func TestLoadMissingFileYieldsZero(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", "platform: unix\ntypo_field: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadPlatform(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", "platform: plan9\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadStoreKind(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", "store:\n  kind: registry\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRequiresPathForFileStore(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", "store:\n  kind: file\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBusyTimeout(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.yaml", "audit:\n  driver: sqlite\n  path: a.db\n  busy_timeout: 5s\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	d, err := cfg.Audit.BusyTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	path = writeConfig(t, "bad.yaml", "audit:\n  busy_timeout: soon\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "cfg.json", `{"platform":"unix"}{"platform":"windows"}`)
	_, err := Load(path)
	assert.Error(t, err)
}
