package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_DefaultValues tests that hardcoded defaults are applied correctly.
// This test doesn't depend on YAML files - it only tests the defaults() function.
func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.App.Name)
	assert.Equal(t, "dev", cfg.App.Version)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultClientRetryMaxAttempts, cfg.Client.Retry.MaxAttempts)
	assert.Equal(t, DefaultClientCircuitMaxFailures, cfg.Client.CircuitBreaker.MaxFailures)

	require.NoError(t, cfg.Validate(), "defaults must be valid on their own")
}

// TestLoad_EnvVarOverrides tests that environment variables override defaults.
func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "warn")
	t.Setenv("APP_SYNC__RUN_ON_START", "true")
	t.Setenv("APP_REMOTE__FETCH_LIMIT", "12")
	t.Setenv("APP_STORAGE_DRIVER", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Sync.RunOnStart)
	assert.Equal(t, 12, cfg.Remote.FetchLimit)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"APP_SERVER_PORT":                 "server.port",
		"APP_SYNC__INTERVAL":              "sync.interval",
		"APP_SYNC__RUN_ON_START":          "sync.run_on_start",
		"APP_CLIENT__RETRY__MAX_ATTEMPTS": "client.retry.max_attempts",
	}

	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

// TestLoad_DurationParsing tests that duration strings are parsed correctly.
func TestLoad_DurationParsing(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Client.Retry.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, DefaultSyncInterval, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Sync.CycleTimeout)
}

// TestLoad_NonExistentProfile tests that a missing profile file doesn't cause errors.
func TestLoad_NonExistentProfile(t *testing.T) {
	cfg, err := Load("nonexistent")
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.App.Name)
}

// TestLoad_ProfileOverridesBase writes config files into a temp working
// directory and checks precedence between them.
func TestLoad_ProfileOverridesBase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "base.yaml"),
		[]byte("sync:\n  interval: 1m\nstorage:\n  driver: memory\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "test.yaml"),
		[]byte("sync:\n  interval: 2m\n"), 0o600))

	t.Chdir(dir)

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

// TestLoad_RemoteSyncStorageDefaults checks the reconciler-facing defaults.
func TestLoad_RemoteSyncStorageDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "quote-remote", cfg.Remote.Name)
	assert.Equal(t, "/posts", cfg.Remote.FetchPath)
	assert.Equal(t, "/posts", cfg.Remote.PostPath)
	assert.Equal(t, DefaultRemoteFetchLimit, cfg.Remote.FetchLimit)
	assert.True(t, cfg.Remote.PostUpstream)

	assert.True(t, cfg.Sync.Enabled)
	assert.False(t, cfg.Sync.RunOnStart)
	assert.Equal(t, DefaultSyncPostConcurrency, cfg.Sync.PostConcurrency)
	assert.Equal(t, DefaultNotificationFeedSize, cfg.Sync.FeedSize)

	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "./data/quotes.json", cfg.Storage.Path)
}

// TestLoad_LogFileDefaults tests that log file defaults are set correctly.
func TestLoad_LogFileDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Log.File.Enabled)
	assert.Equal(t, "./logs/quotekeeper.log", cfg.Log.File.Path)
	assert.Equal(t, DefaultLogFileMaxSizeMB, cfg.Log.File.MaxSizeMB)
	assert.Equal(t, DefaultLogFileMaxBackups, cfg.Log.File.MaxBackups)
	assert.Equal(t, DefaultLogFileMaxAgeDays, cfg.Log.File.MaxAgeDays)
	assert.True(t, cfg.Log.File.Compress)
}

// TestLoad_TelemetryDefaults tests that telemetry defaults are set correctly.
func TestLoad_TelemetryDefaults(t *testing.T) {
	t.Setenv("APP_TELEMETRY_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, DefaultAppName, cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRate)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("APP_SERVER_PORT=7070\nAPP_LOG_LEVEL=debug\n"), 0o600))

	// Already-set variables win over the file.
	t.Setenv("APP_LOG_LEVEL", "error")
	t.Setenv("APP_SERVER_PORT", "")
	require.NoError(t, os.Unsetenv("APP_SERVER_PORT"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadDotEnv_Malformed(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("A='unterminated\n"), 0o600))

	require.Error(t, LoadDotEnv(envFile))
}

// TestDefaults tests that the defaults map contains expected values.
func TestDefaults(t *testing.T) {
	d := defaults()

	assert.Equal(t, DefaultAppName, d["app.name"])
	assert.Equal(t, DefaultServerPort, d["server.port"])
	assert.Equal(t, "5m0s", d["sync.interval"])
	assert.Equal(t, DefaultRemoteFetchLimit, d["remote.fetch_limit"])
	assert.Equal(t, "file", d["storage.driver"])
}
