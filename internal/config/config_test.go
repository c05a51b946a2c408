package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, warnings, err := Load(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)

	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, "full", cfg.Server.Mode)
	assert.Equal(t, 50, cfg.GitHub.IssueLimit)
	assert.Equal(t, int64(50000), cfg.Analysis.MaxFileSize)
	assert.Contains(t, cfg.Analysis.IgnoreDirs, "node_modules")
	assert.Contains(t, cfg.Analysis.KeyFiles, "go.mod")
}

func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))

	yaml := "server:\n  port: 9000\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(ConfigPath(dir), []byte(yaml), 0644))

	cfg, _, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset values fall back to defaults.
	assert.Equal(t, "full", cfg.Server.Mode)
	assert.Equal(t, 800, cfg.Search.ChunkSize)
}

func TestFastModeEnv(t *testing.T) {
	t.Setenv("FAST_MODE", "1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, _, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "fast", cfg.Server.Mode)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	// Fast mode wins over an available key.
	assert.False(t, cfg.SemanticEnabled())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, Validate(cfg))

	cfg.Server.Port = 0
	cfg.Server.Mode = "turbo"
	cfg.Logging.Level = "loud"
	errs := Validate(cfg)
	assert.Len(t, errs, 3)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.GitHub.Token = "secret"

	require.NoError(t, Save(dir, cfg))

	data, err := os.ReadFile(ConfigPath(dir))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, _, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.Server.Port)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("x", ".askrepo", "config.yaml"), ConfigPath("x"))
	assert.Equal(t, filepath.Join("x", ".askrepo", "history.db"), HistoryDBPath("x"))
	assert.Equal(t, filepath.Join("x", ".askrepo", "index.db"), IndexDBPath("x"))
}
