package vkframe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "vkframe.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.True(t, cfg.Window.NeedsDepthBuffer())
	assert.Equal(t, DefaultDeviceConfig().Features, cfg.Features)
	assert.NoError(t, cfg.Validate())
}

func TestNeedsDepthBuffer(t *testing.T) {
	assert.False(t, WindowConfig{}.NeedsDepthBuffer())
	assert.True(t, WindowConfig{Depth: true}.NeedsDepthBuffer())
	assert.True(t, WindowConfig{Stencil: true}.NeedsDepthBuffer())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
name = "cube"
verbose = true

[window]
width = 1024
title = "Cube"
stencil = true

[features]
sampler_anisotropy = false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cube", cfg.Name)
	assert.True(t, cfg.Verbose)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height, "unset keys keep their defaults")
	assert.Equal(t, "Cube", cfg.Window.Title)
	assert.True(t, cfg.Window.Depth)
	assert.True(t, cfg.Window.Stencil)
	assert.True(t, cfg.Features.FillModeNonSolid)
	assert.False(t, cfg.Features.SamplerAnisotropy)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.toml")

	_, err = LoadConfig(writeConfig(t, dir, "name = \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	_, err = LoadConfig(writeConfig(t, dir, "[window]\nwidth = 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid window size 0x600")
}

func TestLoadConfigExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	defer func() { homedir.DisableCache = false }()

	writeConfig(t, home, "log_file = \"~/vkframe.log\"\n")
	cfg, err := LoadConfig("~/vkframe.toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "vkframe.log"), cfg.LogFile)
}
