package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/neuronotes/internal/config"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"defaults", func(*config.Config) {}, nil},
		{"dev mode", func(c *config.Config) { c.Mode = config.ModeDev }, nil},
		{"unknown mode", func(c *config.Config) { c.Mode = "staging" }, config.ErrModeUnknown},
		{"unknown host", func(c *config.Config) { c.Host.Force = "browser" }, config.ErrHostUnknown},
		{"zero debounce", func(c *config.Config) { c.DebounceMS = 0 }, config.ErrDebounceInvalid},
		{"negative backup", func(c *config.Config) { c.Backup.AutoIntervalM = -1 }, config.ErrBackupInvalid},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, config.ErrLogLevelUnknown},
		{"dsn without user", func(c *config.Config) { c.Remote.DSN = "postgres://x" }, config.ErrRemoteIncomplete},
		{"remote complete", func(c *config.Config) { c.Remote = config.RemoteConfig{DSN: "postgres://x", UserID: "u"} }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestLoad_WritesDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	var onDisk config.Config
	require.NoError(t, yaml.Unmarshal(raw, &onDisk))
	assert.Equal(t, config.Default(), onDisk)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
mode: dev
debounce_ms: 250
backup:
  auto_interval_m: 15
log:
  level: debug
host:
  force: embedded
`), 0o644))
	t.Setenv("NEURONOTES_DEBOUNCE_MS", "500")
	t.Setenv("NEURONOTES_REMOTE_DSN", "postgres://db/notes")
	t.Setenv("NEURONOTES_REMOTE_USER_ID", "user-1")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Dev())
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 15*time.Minute, cfg.BackupInterval())
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval())
	assert.Equal(t, config.HostEmbedded, cfg.Host.Force)
	assert.Equal(t, "postgres://db/notes", cfg.Remote.DSN)
	assert.Equal(t, "user-1", cfg.Remote.UserID)
}

func TestLoad_DotEnv(t *testing.T) {
	wd := t.TempDir()
	t.Chdir(wd)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("NEURONOTES_REMOTE_DSN=postgres://from-dotenv\nNEURONOTES_REMOTE_USER_ID=u-2\n"), 0o644))
	t.Setenv("NEURONOTES_REMOTE_USER_ID", "u-env")
	t.Cleanup(func() { os.Unsetenv("NEURONOTES_REMOTE_DSN") })

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-dotenv", cfg.Remote.DSN)
	assert.Equal(t, "u-env", cfg.Remote.UserID, "existing variables win over .env")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mode: nightly\n"), 0o644))
	_, err := config.Load(dir)
	assert.ErrorIs(t, err, config.ErrModeUnknown)
}

func TestAutosaveDisabled(t *testing.T) {
	c := config.Default()
	c.AutosaveIntervalS = 0
	assert.Less(t, c.AutosaveInterval(), time.Duration(0))
}
