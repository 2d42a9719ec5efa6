package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "ndjson", cfg.Format)
	assert.Equal(t, 120000, cfg.Timeout.IOSBootMs)
	assert.Equal(t, 15000, cfg.Timeout.IOSDeviceReadyMs)
	assert.Equal(t, 5*1024*1024, cfg.Timeout.AppLogMaxBytes)
	assert.Equal(t, 1, cfg.Timeout.AppLogMaxFiles)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Retry.Jitter)
}

func TestLoadWithMeta(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() { require.NoError(t, os.Chdir(origDir)) })

		t.Setenv("HOME", tmpDir)
		cfg, meta, err := LoadWithMeta()
		require.NoError(t, err)
		assert.Equal(t, Default().Timeout.IOSBootMs, cfg.Timeout.IOSBootMs)
		assert.Empty(t, meta.ConfigFile)
	})

	t.Run("reads a config file in the working directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() { require.NoError(t, os.Chdir(origDir)) })
		t.Setenv("HOME", tmpDir)

		content := "timeout:\n  ios_boot_ms: 60000\n"
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".agent-device.yaml"), []byte(content), 0o644))

		cfg, meta, err := LoadWithMeta()
		require.NoError(t, err)
		assert.Equal(t, 60000, cfg.Timeout.IOSBootMs)
		assert.True(t, meta.FileValues["timeout.ios_boot_ms"])
	})
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(origDir)) })
	t.Setenv("HOME", tmpDir)

	t.Setenv("AGENT_DEVICE_IOS_BOOT_TIMEOUT_MS", "90000")
	t.Setenv("ANDROID_SERIAL", "emulator-5554")

	cfg, _, err := LoadWithMeta()
	require.NoError(t, err)
	assert.Equal(t, 90000, cfg.Timeout.IOSBootMs)
	assert.Equal(t, "emulator-5554", cfg.Device.AndroidSerial)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Timeout.IOSBootMs = 100
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestHomeDir(t *testing.T) {
	cfg := Default()
	cfg.Daemon.HomeDir = "/tmp/custom-home"
	assert.Equal(t, "/tmp/custom-home", cfg.HomeDir())

	cfg2 := Default()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".agent-device"), cfg2.HomeDir())
}

func TestComputeSources(t *testing.T) {
	sources := ComputeSources(nil, map[string]bool{"format": true})
	var formatSource, bootSource string
	for _, s := range sources {
		if s.Key == "format" {
			formatSource = s.Origin
		}
		if s.Key == "timeout.ios_boot_ms" {
			bootSource = s.Origin
		}
	}
	assert.Equal(t, "flag", formatSource)
	assert.Equal(t, "default", bootSource)
}
