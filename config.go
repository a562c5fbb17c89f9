package authcore

import (
	"errors"
	"time"
)

// Config holds every tunable of the engine. Build a value with DefaultConfig,
// adjust it, and hand it to [Builder.WithConfig]. A Config is copied at Build
// time; later changes to the caller's value have no effect.
type Config struct {
	JWT        JWTConfig
	Permission PermissionConfig
	Password   PasswordConfig
	Login      LoginConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. PrivateKey and PublicKey are PEM (raw
// secret for hs256). Both lifetimes are required.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "rs256" (default), "rs384", "rs512", "es256", "ed25519", "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig controls permission resolution.
type PermissionConfig struct {
	// CacheTTL bounds the lifetime of a cached permission set.
	CacheTTL time.Duration
	// ActiveInvalidation deletes the previous version's permission entry after
	// ban, role change and logout-all. Version keying alone already makes the
	// old entry unreachable; this only frees memory early.
	ActiveInvalidation bool
	// ExpandImpliedRoles applies the role implication closure at check time,
	// to role gates and permission resolution alike. Expanded sets are cached
	// under their own key, so toggling this never serves the other mode's set.
	ExpandImpliedRoles bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost and the registration password policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxBytes       int
	UpgradeOnLogin bool
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig throttles failed logins. MaxAttempts == 0 disables throttling.
type LoginConfig struct {
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults without key material.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "rs256",
		},
		Permission: PermissionConfig{
			CacheTTL:           900 * time.Second,
			ActiveInvalidation: true,
			ExpandImpliedRoles: false,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			MaxBytes:       256,
			UpgradeOnLogin: true,
		},
		Login: LoginConfig{
			MaxAttempts:      5,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: false,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks cross-field consistency. Key parsing errors surface later,
// from Build.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "rs256", "rs384", "rs512", "es256", "ed25519":
		if len(c.JWT.PublicKey) == 0 {
			return errors.New(c.JWT.SigningMethod + " requires PublicKey")
		}
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New(c.JWT.SigningMethod + " requires PrivateKey")
		}
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Permission
	if c.Permission.CacheTTL <= 0 {
		return errors.New("Permission CacheTTL must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxBytes > 0 && c.Password.MaxBytes < c.Password.MinLength {
		return errors.New("Password MaxBytes must be >= MinLength")
	}

	// Login
	if c.Login.MaxAttempts < 0 {
		return errors.New("Login MaxAttempts must be >= 0")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Cooldown <= 0 {
		return errors.New("Login Cooldown must be > 0 when MaxAttempts is set")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Enabled")
	}

	return nil
}
