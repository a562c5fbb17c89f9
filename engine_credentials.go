package authcore

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/password"
	"go.uber.org/zap"
)

const maxUsernameLength = 64

// Register creates an account holding the default role and issues its first
// token pair. A taken email or username yields ErrAccountExists.
func (e *Engine) Register(ctx context.Context, req RegisterRequest, origin Origin) (TokenSet, error) {
	if !e.ready() {
		return TokenSet{}, ErrEngineNotReady
	}
	if err := checkOrigin(origin); err != nil {
		return TokenSet{}, err
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return TokenSet{}, err
	}
	username := strings.TrimSpace(req.Username)
	if len(username) > maxUsernameLength {
		return TokenSet{}, &ValidationError{Field: "username", Reason: "too long"}
	}
	if err := e.policy.Check(req.Password); err != nil {
		return TokenSet{}, passwordValidationError(err)
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return TokenSet{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := internal.NewUserID()
	if err != nil {
		return TokenSet{}, err
	}

	u, err := e.users.CreateUser(ctx, NewUser{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Roles:        []string{e.catalog.DefaultRole},
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricRegisterDuplicate)
			return TokenSet{}, ErrAccountExists
		}
		return TokenSet{}, fmt.Errorf("create user: %w", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.Info("account registered", zap.String("user_id", u.ID))

	return e.issueFor(ctx, u.ID, u.AuthVersion, origin)
}

// Login verifies an email and password and issues a token pair. Unknown
// accounts and wrong passwords both yield ErrInvalidCredentials; a banned
// account with the right password yields ErrBanned.
func (e *Engine) Login(ctx context.Context, req LoginRequest, origin Origin) (TokenSet, error) {
	if !e.ready() {
		return TokenSet{}, ErrEngineNotReady
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || req.Password == "" {
		return TokenSet{}, ErrInvalidCredentials
	}
	if err := checkOrigin(origin); err != nil {
		return TokenSet{}, err
	}

	res := flows.RunLogin(ctx, flows.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
		ClientIP:   clientIPFromContext(ctx),
	}, e.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		return TokenSet{}, ErrLoginRateLimited
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		return TokenSet{}, ErrInvalidCredentials
	case flows.LoginFailureBanned:
		e.metricInc(MetricLoginFailure)
		return TokenSet{}, ErrBanned
	case flows.LoginFailureLimiter:
		return TokenSet{}, fmt.Errorf("login throttle: %w", res.Err)
	default:
		return TokenSet{}, fmt.Errorf("login: %w", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	if res.Rehashed {
		e.logger.Info("password hash upgraded", zap.String("user_id", res.Credential.UserID))
	}

	return e.issueFor(ctx, res.Credential.UserID, res.Credential.AuthVersion, origin)
}

// Logout revokes the session behind refreshToken. See [Engine.Revoke].
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	return e.Revoke(ctx, refreshToken)
}

func checkOrigin(o Origin) error {
	if o != OriginWeb && o != OriginMobile {
		return &ValidationError{Field: "client", Reason: "must be web or mobile"}
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", &ValidationError{Field: "email", Reason: "required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return "", &ValidationError{Field: "email", Reason: "malformed"}
	}
	return email, nil
}

func passwordValidationError(err error) error {
	switch {
	case errors.Is(err, password.ErrTooShort):
		return &ValidationError{Field: "password", Reason: "too short"}
	case errors.Is(err, password.ErrTooLong):
		return &ValidationError{Field: "password", Reason: "too long"}
	default:
		return &ValidationError{Field: "password", Reason: "not valid UTF-8"}
	}
}
