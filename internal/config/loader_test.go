package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(newViper(t))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 150*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify gateway defaults
		assert.Equal(t, "gemini", cfg.AILink.DefaultProvider)
		assert.Equal(t, 120*time.Second, cfg.AILink.DefaultTimeout)
		gemini, ok := cfg.AILink.Providers["gemini"]
		require.True(t, ok)
		assert.True(t, gemini.Enabled)
		assert.Equal(t, "gemini", gemini.AIProvider)
		assert.Equal(t, "gemini-2.5-flash", gemini.Models["default"])
		assert.Equal(t, "gemini-2.5-pro", gemini.Models["reasoning"])
		assert.True(t, gemini.Capabilities.Grounding)
		assert.True(t, gemini.Capabilities.Thinking)

		assert.Equal(t, DefaultMaxUploadBytes, cfg.Upload.MaxBytes)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)

		// Verify metrics defaults
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	t.Run("NilViperUsesDefaults", func(t *testing.T) {
		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(newViper(t), overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values remain default
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("STOCKLENS_PORT", "3000")
		t.Setenv("STOCKLENS_LOG_LEVEL", "warn")
		t.Setenv("STOCKLENS_METRICS_ENABLED", "false")
		t.Setenv("STOCKLENS_UPLOAD_MAX_BYTES", "2048")

		cfg, err := Load(newViper(t))
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, int64(2048), cfg.Upload.MaxBytes)
	})

	t.Run("LongFormEnv", func(t *testing.T) {
		t.Setenv("STOCKLENS_SERVER_HOST", "127.0.0.1")

		cfg, err := Load(newViper(t))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("STOCKLENS_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(newViper(t), overrides)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		body := `
server:
  port: 8181
ailink:
  routing:
    deep-dive: work
  providers:
    work:
      enabled: true
      ai_provider: openai
      models:
        reasoning: o3
      credentials:
        - label: main
          enabled: true
          api_key: sk-test
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		v := newViper(t)
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)

		assert.Equal(t, 8181, cfg.Server.Port)
		assert.Equal(t, "work", cfg.AILink.Routing["deep-dive"])
		work := cfg.AILink.Providers["work"]
		assert.Equal(t, "openai", work.AIProvider)
		assert.Equal(t, "o3", work.Models["reasoning"])
		require.Len(t, work.Credentials, 1)
		assert.Equal(t, "sk-test", work.Credentials[0].APIKey)

		// Built-in provider survives alongside the file's provider.
		assert.True(t, cfg.AILink.Providers["gemini"].Enabled)
	})
}

func TestDynamicAILinkEnv(t *testing.T) {
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_WORK_AI_PROVIDER", "openai")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_WORK_ENABLED", "true")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_WORK_MODELS_REASONING", "o3")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_WORK_CREDENTIALS_0_API_KEY", "sk-env")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_WORK_CREDENTIALS_0_PRIORITY", "5")
	t.Setenv("STOCKLENS_AILINK_ROUTING_DEEP_DIVE", "work")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	work, ok := cfg.AILink.Providers["work"]
	require.True(t, ok)
	assert.True(t, work.Enabled)
	assert.Equal(t, "openai", work.AIProvider)
	assert.Equal(t, "o3", work.Models["reasoning"])
	require.Len(t, work.Credentials, 1)
	assert.Equal(t, "sk-env", work.Credentials[0].APIKey)
	assert.Equal(t, 5, work.Credentials[0].Priority)
	assert.Equal(t, "work", cfg.AILink.Routing["deep-dive"])
}

func TestDurationParsing(t *testing.T) {
	t.Setenv("STOCKLENS_READ_TIMEOUT", "45s")
	t.Setenv("STOCKLENS_SHUTDOWN_TIMEOUT", "5m")
	t.Setenv("STOCKLENS_AILINK_DEFAULT_TIMEOUT", "90s")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 90*time.Second, cfg.AILink.DefaultTimeout)
}

func TestConfigReload(t *testing.T) {
	cfg1, err := Load(newViper(t))
	require.NoError(t, err)
	initialPort := cfg1.Server.Port

	cfg2, err := Load(newViper(t), map[string]any{
		"server": map[string]any{"port": initialPort + 1000},
	})
	require.NoError(t, err)

	assert.Equal(t, initialPort+1000, cfg2.Server.Port)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if path == "" {
		t.Skip("no config dir resolvable in this environment")
	}
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Contains(t, path, "stocklens")
}
