package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5.199", cfg.VK.APIVersion)
	assert.Equal(t, 40000.0, cfg.Parse.MinPrice)
	assert.Equal(t, 1000, cfg.Parse.FetchLimit)
	assert.Equal(t, 1, cfg.Parse.Workers)
	assert.False(t, cfg.Vision.Enabled)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 50000.0, cfg.Server.PriceComparisonRange)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
vk:
  token: secret-token
parse:
  group_ids: [111, 222]
  min_price: 55000
vision:
  enabled: true
  embed_url: http://localhost:9000
`), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.VK.Token)
	assert.Equal(t, []int64{111, 222}, cfg.Parse.GroupIDs)
	assert.Equal(t, 55000.0, cfg.Parse.MinPrice)
	assert.True(t, cfg.Vision.Enabled)
	assert.Equal(t, "http://localhost:9000", cfg.Vision.EmbedURL)
}

func TestLoadGroupIDs_MergesFileAndInline(t *testing.T) {
	dir := t.TempDir()
	groupsPath := filepath.Join(dir, "groups.yaml")
	require.NoError(t, os.WriteFile(groupsPath, []byte(`
groups:
  - id: 222
    name: Second Seller
  - id: 333
    name: Third Seller
  - id: 111
`), 0o600))

	cfg := &Config{}
	cfg.Parse.GroupIDs = []int64{111, 222}
	cfg.Parse.GroupsFile = groupsPath

	ids, err := cfg.LoadGroupIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{111, 222, 333}, ids, "inline first, duplicates dropped")
}

func TestLoadGroupIDs_NoFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Parse.GroupIDs = []int64{1, 1, 2}

	ids, err := cfg.LoadGroupIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestLoadGroupIDs_MissingFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Parse.GroupsFile = "/nonexistent/groups.yaml"

	_, err := cfg.LoadGroupIDs()
	require.Error(t, err)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
