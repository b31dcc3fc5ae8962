// Package config provides centralized configuration management for StockLens.
// Defaults are registered on a viper instance, layered under the user config
// file and STOCKLENS_* environment variables, then decoded into Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/stocklens/stocklens/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// DefaultMaxUploadBytes caps image attachments when upload.max_bytes is unset.
const DefaultMaxUploadBytes int64 = 20 << 20

// envAlias maps a short {PREFIX}{NAME} variable onto a config key.
type envAlias struct {
	Name string
	Key  string
}

// envAliases returns the short-form environment variable names. Every key is
// also reachable through the long form, e.g. STOCKLENS_SERVER_PORT.
func envAliases(prefix string) []envAlias {
	return []envAlias{
		{Name: prefix + "HOST", Key: "server.host"},
		{Name: prefix + "PORT", Key: "server.port"},
		{Name: prefix + "READ_TIMEOUT", Key: "server.read_timeout"},
		{Name: prefix + "WRITE_TIMEOUT", Key: "server.write_timeout"},
		{Name: prefix + "IDLE_TIMEOUT", Key: "server.idle_timeout"},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Key: "server.shutdown_timeout"},

		{Name: prefix + "LOG_LEVEL", Key: "logging.level"},
		{Name: prefix + "LOG_PROFILE", Key: "logging.profile"},

		{Name: prefix + "AILINK_DEFAULT_PROVIDER", Key: "ailink.default_provider"},
		{Name: prefix + "AILINK_DEFAULT_TIMEOUT", Key: "ailink.default_timeout"},
		{Name: prefix + "AILINK_PROFILES_DIR", Key: "ailink.profiles_dir"},

		{Name: prefix + "UPLOAD_MAX_BYTES", Key: "upload.max_bytes"},

		{Name: prefix + "METRICS_ENABLED", Key: "metrics.enabled"},
		{Name: prefix + "METRICS_PORT", Key: "metrics.port"},
		{Name: prefix + "HEALTH_ENABLED", Key: "health.enabled"},
		{Name: prefix + "DEBUG_ENABLED", Key: "debug.enabled"},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Key: "debug.pprof_enabled"},
	}
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Gateway defaults: a single Gemini provider keyed from the environment.
	v.SetDefault("ailink.default_provider", "gemini")
	v.SetDefault("ailink.default_timeout", "120s")
	v.SetDefault("ailink.profiles_dir", "")
	v.SetDefault("ailink.providers.gemini.enabled", true)
	v.SetDefault("ailink.providers.gemini.ai_provider", "gemini")
	v.SetDefault("ailink.providers.gemini.models.default", "gemini-2.5-flash")
	v.SetDefault("ailink.providers.gemini.models.reasoning", "gemini-2.5-pro")
	v.SetDefault("ailink.providers.gemini.capabilities.tools", true)
	v.SetDefault("ailink.providers.gemini.capabilities.images", true)
	v.SetDefault("ailink.providers.gemini.capabilities.grounding", true)
	v.SetDefault("ailink.providers.gemini.capabilities.thinking", true)

	v.SetDefault("upload.max_bytes", DefaultMaxUploadBytes)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	prefix := envPrefix()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, alias := range envAliases(prefix) {
		long := prefix + strings.ToUpper(strings.ReplaceAll(alias.Key, ".", "_"))
		_ = v.BindEnv(alias.Key, long, alias.Name)
	}
}

// Load decodes the settings held by v into a Config.
//
// Provider and routing environment variables are applied on top of v, then
// runtime overrides in order. This function is safe to call multiple times.
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
	}

	merged := v.AllSettings()
	applyAILinkDynamicEnvOverrides(envPrefix(), merged)
	for _, override := range runtimeOverrides {
		mergeInto(merged, override)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = DefaultMaxUploadBytes
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.Get().ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

func envPrefix() string {
	prefix := appid.Get().EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// applyAILinkDynamicEnvOverrides maps provider and routing variables whose
// keys are user-defined, e.g. STOCKLENS_AILINK_PROVIDERS_WORK_CREDENTIALS_0_API_KEY
// or STOCKLENS_AILINK_ROUTING_DEEP_DIVE=openai.
func applyAILinkDynamicEnvOverrides(prefix string, settings map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(settings, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(settings, key[len(routingPrefix):], value)
		}
	}
}

func applyAILinkRoutingOverride(settings map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	ailink := ensureMap(settings, "ailink")
	routing := ensureMap(ailink, "routing")
	routing[role] = providerID
}

func applyAILinkProviderOverride(settings map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS", "DEFAULT", "SELECTION":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	if providerID == "" {
		return
	}

	ailink := ensureMap(settings, "ailink")
	providers := ensureMap(ailink, "providers")
	provider := ensureMap(providers, providerID)

	value = strings.TrimSpace(value)
	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(value, "true")
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "DEFAULT" && rest[1] == "CREDENTIAL":
		provider["default_credential"] = value
	case len(rest) == 2 && rest[0] == "SELECTION" && rest[1] == "POLICY":
		provider["selection_policy"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = value
	case len(rest) >= 2 && rest[0] == "MODELS":
		modelKey := strings.ToLower(strings.Join(rest[1:], "_"))
		models := ensureMap(provider, "models")
		models[modelKey] = value
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		if field == "" {
			return
		}

		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		switch field {
		case "priority":
			if parsed, err := strconv.Atoi(value); err == nil {
				cred[field] = parsed
				return
			}
			cred[field] = value
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

// mergeInto deep-merges src into dst; maps merge, everything else replaces.
func mergeInto(dst map[string]any, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		srcMap, ok := value.(map[string]any)
		if !ok {
			dst[key] = value
			continue
		}
		mergeInto(ensureMap(dst, key), srcMap)
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
