// Package config loads authd settings from YAML and AUTHD_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/MrEthical07/authcore/internal/obs"
	"github.com/MrEthical07/authcore/jwt"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DB struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// Cache selects the cache backend: "redis" or "memory".
type Cache struct {
	Driver   string `mapstructure:"driver"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type JWT struct {
	SigningMethod  string        `mapstructure:"signing_method"`
	PrivateKey     string        `mapstructure:"private_key"`
	PublicKey      string        `mapstructure:"public_key"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	KeyID          string        `mapstructure:"key_id"`
	Leeway         time.Duration `mapstructure:"leeway"`
}

type Permission struct {
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	ActiveInvalidation bool          `mapstructure:"active_invalidation"`
	ExpandImpliedRoles bool          `mapstructure:"expand_implied_roles"`
}

type Password struct {
	Memory         uint32 `mapstructure:"memory"`
	Time           uint32 `mapstructure:"time"`
	Parallelism    uint8  `mapstructure:"parallelism"`
	MinLength      int    `mapstructure:"min_length"`
	UpgradeOnLogin bool   `mapstructure:"upgrade_on_login"`
}

type Login struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	IPThrottle  bool          `mapstructure:"ip_throttle"`
}

type Cookie struct {
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"samesite"`
	Domain   string `mapstructure:"domain"`
	Path     string `mapstructure:"path"`
}

// RateLimit throttles /v1/auth/* per client IP.
type RateLimit struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type Metrics struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

// Settings is the full authd configuration.
type Settings struct {
	App        App        `mapstructure:"app"`
	Server     Server     `mapstructure:"server"`
	Log        Log        `mapstructure:"log"`
	DB         DB         `mapstructure:"db"`
	Cache      Cache      `mapstructure:"cache"`
	JWT        JWT        `mapstructure:"jwt"`
	Permission Permission `mapstructure:"permission"`
	Password   Password   `mapstructure:"password"`
	Login      Login      `mapstructure:"login"`
	Cookie     Cookie     `mapstructure:"cookie"`
	RateLimit  RateLimit  `mapstructure:"ratelimit"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

// LogConfig adapts the log section for obs.NewLogger.
func (s *Settings) LogConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   s.Log.Level,
		Pretty:  s.Log.Pretty,
		Service: s.App.Name,
		Env:     s.App.Env,
		Version: s.App.Version,
	}
}

// AuthConfig builds the engine configuration, reading key files as needed.
func (s *Settings) AuthConfig() (authcore.Config, error) {
	cfg := authcore.DefaultConfig()

	private, err := jwt.LoadKey(s.JWT.PrivateKey, s.JWT.PrivateKeyPath)
	if err != nil {
		return cfg, fmt.Errorf("jwt private key: %w", err)
	}
	cfg.JWT.PrivateKey = private
	if s.JWT.SigningMethod != "hs256" {
		public, err := jwt.LoadKey(s.JWT.PublicKey, s.JWT.PublicKeyPath)
		if err != nil {
			return cfg, fmt.Errorf("jwt public key: %w", err)
		}
		cfg.JWT.PublicKey = public
	}

	cfg.JWT.SigningMethod = s.JWT.SigningMethod
	cfg.JWT.AccessTTL = s.JWT.AccessTTL
	cfg.JWT.RefreshTTL = s.JWT.RefreshTTL
	cfg.JWT.Issuer = s.JWT.Issuer
	cfg.JWT.Audience = s.JWT.Audience
	cfg.JWT.KeyID = s.JWT.KeyID
	cfg.JWT.Leeway = s.JWT.Leeway

	cfg.Permission.CacheTTL = s.Permission.CacheTTL
	cfg.Permission.ActiveInvalidation = s.Permission.ActiveInvalidation
	cfg.Permission.ExpandImpliedRoles = s.Permission.ExpandImpliedRoles

	cfg.Password.Memory = s.Password.Memory
	cfg.Password.Time = s.Password.Time
	cfg.Password.Parallelism = s.Password.Parallelism
	cfg.Password.MinLength = s.Password.MinLength
	cfg.Password.UpgradeOnLogin = s.Password.UpgradeOnLogin

	cfg.Login.MaxAttempts = s.Login.MaxAttempts
	cfg.Login.Cooldown = s.Login.Cooldown
	cfg.Login.EnableIPThrottle = s.Login.IPThrottle

	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CookieOptions adapts the cookie section; max-age follows the refresh TTL.
func (s *Settings) CookieOptions() (httpapi.CookieOptions, error) {
	sameSite, err := httpapi.ParseSameSite(s.Cookie.SameSite)
	if err != nil {
		return httpapi.CookieOptions{}, err
	}
	return httpapi.CookieOptions{
		Secure:   s.Cookie.Secure,
		SameSite: sameSite,
		Domain:   s.Cookie.Domain,
		Path:     s.Cookie.Path,
		MaxAge:   s.JWT.RefreshTTL,
	}, nil
}
