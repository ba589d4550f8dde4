package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("vault", "", "")
	fs.String("backend-url", "", "")
	fs.String("state-path", "", "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.VaultDir)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, filepath.Join(dir, ".vaultsync", "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(dir, ".vaultsync", "settings.yaml"), cfg.SettingsPath)
	assert.False(t, cfg.Verbose)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("vaultsync.yaml", []byte(
		"backend_url: https://backend.test\nlanguage: zh-CN\nstate_path: custom/state.db\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://backend.test", cfg.BackendURL)
	assert.Equal(t, "zh-CN", cfg.Language)
	assert.Equal(t, filepath.Join(dir, "custom", "state.db"), cfg.StatePath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("vaultsync.yaml", []byte("backend_url: https://from-file.test\n"), 0o644))
	t.Setenv("VAULTSYNC_BACKEND_URL", "https://from-env.test")
	t.Setenv("VAULTSYNC_API_KEY", "sekrit")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.test", cfg.BackendURL)
	assert.Equal(t, "sekrit", cfg.APIKey)
}

func TestLoad_FlagsWinAndVaultAliases(t *testing.T) {
	dir := t.TempDir()
	vault := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(vault, 0o755))
	t.Chdir(dir)
	t.Setenv("VAULTSYNC_BACKEND_URL", "https://from-env.test")

	fs := testFlags(t)
	require.NoError(t, fs.Parse([]string{"--vault", vault, "--backend-url", "https://from-flag.test", "-v"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, vault, cfg.VaultDir)
	assert.Equal(t, "https://from-flag.test", cfg.BackendURL)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, filepath.Join(vault, ".vaultsync", "state.db"), cfg.StatePath)
}

func TestLoad_MemoryStatePathKept(t *testing.T) {
	t.Chdir(t.TempDir())

	fs := testFlags(t)
	require.NoError(t, fs.Parse([]string{"--state-path", ":memory:"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.StatePath)
}
