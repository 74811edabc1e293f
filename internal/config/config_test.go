package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newCommand(t *testing.T, args ...string) (*cobra.Command, func() (Config, error)) {
	t.Helper()
	v := NewViper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	BindOptions(cmd, v, Options())
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())
	return cmd, func() (Config, error) { return Load(v, "") }
}

func TestLoad_Defaults(t *testing.T) {
	_, load := newCommand(t)
	c, err := load()
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_FlagsAndEnv(t *testing.T) {
	t.Setenv("CELERIX_PREFS_BACKEND", "sqlite")
	t.Setenv("CELERIX_PREFS_TOKEN_CACHE_TTL", "30s")

	_, load := newCommand(t, "--page-size", "25", "--category", "devices", "--log-level", "debug")
	c, err := load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.Backend)
	assert.Equal(t, 30*time.Second, c.TokenCacheTTL)
	assert.Equal(t, 25, c.PageSize)
	assert.Equal(t, "devices", c.Category)
	assert.Equal(t, zapcore.DebugLevel, c.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: bolt\ndata-dir: /var/lib/prefs\n"), 0o644))

	v := NewViper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	BindOptions(cmd, v, Options())
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	c, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", c.Backend)
	assert.Equal(t, "/var/lib/prefs", c.DataDir)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"backend":   func(c *Config) { c.Backend = "mongo" },
		"http addr": func(c *Config) { c.HTTPAddr = "" },
		"page size": func(c *Config) { c.PageSize = 0 },
		"category":  func(c *Config) { c.Category = "_system" },
		"format":    func(c *Config) { c.LogFormat = "xml" },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
