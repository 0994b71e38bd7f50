package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(old)
	})
}

func TestLoad_MissingBaseURLFails(t *testing.T) {
	os.Unsetenv("RELAY_UPSTREAM_BASE_URL")
	dir := t.TempDir()
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("RELAY_UPSTREAM_BASE_URL", "https://api.anthropic.com/")
	t.Setenv("RELAY_UPSTREAM_TIMEOUT_SECONDS", "45")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://api.anthropic.com", cfg.Upstream.BaseURL)
	require.Equal(t, 45, cfg.Upstream.TimeoutSeconds)
	require.Equal(t, defaultMaxStoredBodyBytes, cfg.Upstream.MaxStoredBodyBytes)
}
