package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names the JWS algorithm used for both token kinds.
type SigningMethod string

const (
	// MethodRS256 is the default: RSA PKCS#1 v1.5 with SHA-256.
	MethodRS256 SigningMethod = "rs256"
	// MethodRS384 is RSA with SHA-384.
	MethodRS384 SigningMethod = "rs384"
	// MethodRS512 is RSA with SHA-512.
	MethodRS512 SigningMethod = "rs512"
	// MethodES256 is ECDSA P-256 with SHA-256.
	MethodES256 SigningMethod = "es256"
	// MethodEd25519 is EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is HMAC-SHA256 with a shared secret. Development and tests only.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// TypeAccess marks access tokens in the typ claim.
	TypeAccess = "access"
	// TypeRefresh marks refresh tokens in the typ claim.
	TypeRefresh = "refresh"
)

var (
	// ErrWrongTokenType is returned when a token of the other kind is presented.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingSubject is returned for tokens without a sub claim.
	ErrMissingSubject = errors.New("missing subject")
	// ErrMissingTokenID is returned for refresh tokens without a jti claim.
	ErrMissingTokenID = errors.New("missing token id")
)

// Config holds signing keys and validation policy.
//
// PrivateKey and PublicKey are PEM encoded (raw secret bytes for HS256, where the
// public key is ignored). Now overrides the clock and exists for tests.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	Now           func() time.Time
}

// Manager signs and verifies access and refresh tokens. Keys are parsed once
// in [NewManager]; a Manager is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	keys   keyPair
}

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	AuthVersion uint32 `json:"av"`
	Source      string `json:"src"`
	Type        string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token. The jti lives in
// RegisteredClaims.ID. It carries no auth version: a refresh always mints
// against the live user record.
type RefreshClaims struct {
	Source string `json:"src"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and parses its key material.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodRS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	method, err := methodFor(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	keys, err := parseKeyPair(cfg.SigningMethod, cfg.PrivateKey, cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Manager{config: cfg, method: method, keys: keys}, nil
}

// AccessTTL reports the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// CreateAccess signs an access token for userID carrying the auth version
// snapshot and client origin. It returns the token and its expiry.
func (j *Manager) CreateAccess(userID string, authVersion uint32, source string) (string, time.Time, error) {
	now := j.config.Now()
	exp := now.Add(j.config.AccessTTL)
	claims := AccessClaims{
		AuthVersion:      authVersion,
		Source:           source,
		Type:             TypeAccess,
		RegisteredClaims: j.registered(userID, "", now, exp),
	}
	token, err := j.sign(claims)
	return token, exp, err
}

// CreateRefresh signs a refresh token identified by jti.
func (j *Manager) CreateRefresh(userID, jti, source string) (string, time.Time, error) {
	if jti == "" {
		return "", time.Time{}, ErrMissingTokenID
	}
	now := j.config.Now()
	exp := now.Add(j.config.RefreshTTL)
	claims := RefreshClaims{
		Source:           source,
		Type:             TypeRefresh,
		RegisteredClaims: j.registered(userID, jti, now, exp),
	}
	token, err := j.sign(claims)
	return token, exp, err
}

// ParseAccess verifies signature, expiry and token kind. It performs no lookups.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrWrongTokenType
	}
	if err := j.checkCommon(claims.Subject, claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and requires its jti.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.ID == "" {
		return nil, ErrMissingTokenID
	}
	if err := j.checkCommon(claims.Subject, claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

func (j *Manager) registered(userID, jti string, now, exp time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	if j.keys.sign == nil {
		return "", errors.New("signing key not configured")
	}
	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(j.keys.sign)
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.keys.verify, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

func (j *Manager) checkCommon(subject string, iat *jwt.NumericDate) error {
	if subject == "" {
		return ErrMissingSubject
	}
	if iat != nil && j.config.MaxFutureIAT > 0 {
		maxAllowed := j.config.Now().Add(j.config.MaxFutureIAT)
		if iat.Time.After(maxAllowed) {
			return errors.New("token iat too far in the future")
		}
	}
	return nil
}

func methodFor(m SigningMethod) (jwt.SigningMethod, error) {
	switch m {
	case MethodRS256:
		return jwt.SigningMethodRS256, nil
	case MethodRS384:
		return jwt.SigningMethodRS384, nil
	case MethodRS512:
		return jwt.SigningMethodRS512, nil
	case MethodES256:
		return jwt.SigningMethodES256, nil
	case MethodEd25519:
		return jwt.SigningMethodEdDSA, nil
	case MethodHS256:
		return jwt.SigningMethodHS256, nil
	default:
		return nil, errors.New("unsupported signing method")
	}
}
