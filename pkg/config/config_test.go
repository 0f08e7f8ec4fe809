package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ims2tif/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, 0, cfg.Selection.Channel)
	assert.Equal(t, 0, cfg.Selection.Timepoint)
	assert.True(t, cfg.Filter.Enabled)
	assert.Equal(t, 10.0, cfg.Filter.Threshold)
	assert.False(t, cfg.Filter.Auto)
	assert.Equal(t, "stack", cfg.Export.Mode)
	assert.False(t, cfg.Batch.Recursive)
	assert.False(t, cfg.Batch.Overwrite)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `selection:
  channel: 2
  timepoint: 1
filter:
  enabled: false
  threshold: 25.5
export:
  mode: ome
batch:
  recursive: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Selection.Channel)
	assert.Equal(t, 1, cfg.Selection.Timepoint)
	assert.False(t, cfg.Filter.Enabled)
	assert.Equal(t, 25.5, cfg.Filter.Threshold)
	assert.Equal(t, "ome", cfg.Export.Mode)
	assert.True(t, cfg.Batch.Recursive)
	// Keys the file omits keep their defaults.
	assert.False(t, cfg.Batch.Overwrite)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selection: [not a map"), 0644))

	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Selection.Channel = 3
	cfg.Export.Mode = "slices"
	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.CreateDefaultConfigFile(path))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), loaded)
}
