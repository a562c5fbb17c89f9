package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTHD_DB_DSN.
const EnvPrefix = "AUTHD"

// Load reads path (YAML, optional) and applies environment overrides on top
// of the defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}

	switch {
	case s.DB.DSN == "":
		return nil, errors.New("db.dsn is required")
	case s.Cache.Driver != "redis" && s.Cache.Driver != "memory":
		return nil, fmt.Errorf("unknown cache driver %q", s.Cache.Driver)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "authd")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:authd.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("db.query_timeout", "5s")

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "")

	v.SetDefault("jwt.signing_method", "rs256")
	v.SetDefault("jwt.private_key", "")
	v.SetDefault("jwt.public_key", "")
	v.SetDefault("jwt.private_key_path", "")
	v.SetDefault("jwt.public_key_path", "")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.key_id", "")
	v.SetDefault("jwt.leeway", "0s")

	v.SetDefault("permission.cache_ttl", "900s")
	v.SetDefault("permission.active_invalidation", true)
	v.SetDefault("permission.expand_implied_roles", false)

	v.SetDefault("password.memory", 65536)
	v.SetDefault("password.time", 3)
	v.SetDefault("password.parallelism", 2)
	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.upgrade_on_login", true)

	v.SetDefault("login.max_attempts", 5)
	v.SetDefault("login.cooldown", "15m")
	v.SetDefault("login.ip_throttle", false)

	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.samesite", "lax")
	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.path", "/")

	v.SetDefault("ratelimit.per_second", 5.0)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.latency_histograms", false)
}
