package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's own config files out of the search path.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "areacalc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.ServerURL)
	assert.Equal(t, "http://127.0.0.1:5000/", cfg.ProbeURL)
	assert.Equal(t, 5*time.Second, cfg.ProbeInterval)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.File)
}

func TestLoad_FileInWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("areacalc.yaml", []byte("server_url: http://10.0.2.2:5000\nprobe_interval: 2s\n"), 0o644))

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.2.2:5000", cfg.ServerURL)
	assert.Equal(t, "http://10.0.2.2:5000/", cfg.ProbeURL)
	assert.Equal(t, 2*time.Second, cfg.ProbeInterval)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "server_url: http://from-file:5000\nlog_level: warn\n")
	t.Setenv("AREACALC_SERVER_URL", "http://from-env:5000")
	t.Setenv("AREACALC_REQUEST_TIMEOUT", "30s")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:5000", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AREACALC_SERVER_URL", "http://from-env:5000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--server", "http://from-flag:5000", "--probe-url", "http://probe/health"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:5000", cfg.ServerURL)
	assert.Equal(t, "http://probe/health", cfg.ProbeURL)
}

func TestLoad_UnsetFlagsKeepEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AREACALC_LOG_LEVEL", "DEBUG")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(nil))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(New(), writeConfig(t, "probe_interval: 0s\n"))
	assert.ErrorContains(t, err, "probe_interval")

	_, err = Load(New(), writeConfig(t, "request_timeout: -1s\n"))
	assert.ErrorContains(t, err, "request_timeout")

	_, err = Load(New(), writeConfig(t, "server_url: [unterminated\n"))
	assert.Error(t, err)
}
