// Package config loads the service configuration and wraps it in a nil-safe
// accessor.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ARTIS_SERVER_PORT for server.port.
const EnvPrefix = "ARTIS"

// DefaultPassword is the shared catalog password used when none is configured.
const DefaultPassword = "artis2026"

// Config is a read-only view over a viper instance. The zero value and a
// Config built from a nil viper return zero values for every key.
type Config struct {
	v *viper.Viper
}

// New wraps v.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Viper returns the underlying instance, or a fresh empty one.
func (c *Config) Viper() *viper.Viper {
	if c == nil || c.v == nil {
		return viper.New()
	}
	return c.v
}

func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetFloat64(key string) float64 {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	if c == nil || c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole tree into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.path", "artiscatalog.db")
	v.SetDefault("catalog.data_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.password", DefaultPassword)
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.cookie_name", "artis_catalog_auth")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.login_rate_per_minute", 10)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("plugins.catalog.enabled", true)
	v.SetDefault("plugins.catalog.related_limit", 6)
	v.SetDefault("plugins.catalog.search_threshold", 0.3)
	v.SetDefault("plugins.catalog.suggest_limit", 8)

	v.SetDefault("plugins.live.enabled", true)
	v.SetDefault("plugins.live.debounce", 300*time.Millisecond)
	v.SetDefault("plugins.live.page_size", 0)
	v.SetDefault("plugins.live.origin_patterns", []string{})

	v.SetDefault("plugins.mcp.enabled", true)
}

// Load builds the configuration from defaults, an optional YAML file, and
// ARTIS_-prefixed environment variables, in increasing priority. The plain
// AUTH_PASSWORD variable is also honored for the catalog password.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("auth.password", EnvPrefix+"_AUTH_PASSWORD", "AUTH_PASSWORD"); err != nil {
		return nil, fmt.Errorf("bind auth password env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}
