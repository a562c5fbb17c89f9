package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/jwt"
)

// Origin is the client family a token pair was issued to. It decides how the
// refresh credential travels and whether refresh requires a CSRF value.
type Origin string

const (
	// OriginWeb clients keep the refresh token in an HttpOnly cookie and must
	// echo the CSRF value on refresh.
	OriginWeb Origin = "web"
	// OriginMobile clients hold both tokens themselves.
	OriginMobile Origin = "mobile"
)

// ParseOrigin maps a header value to an Origin. Empty means web.
func ParseOrigin(v string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(OriginWeb):
		return OriginWeb, nil
	case string(OriginMobile):
		return OriginMobile, nil
	default:
		return "", &ValidationError{Field: "client", Reason: "must be web or mobile"}
	}
}

// Role is a named bundle of permissions.
type Role struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// User is an account as the engine sees it. Role and permission lists are
// derived from Roles on demand and never stored separately.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	AuthVersion  uint32    `json:"auth_version"`
	Banned       bool      `json:"banned"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleSlugs returns the slugs of the directly assigned roles.
func (u *User) RoleSlugs() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Slug)
	}
	return out
}

// PermissionSlugs returns the union of permissions of the directly assigned
// roles in first-seen order.
func (u *User) PermissionSlugs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// HasRoles reports whether every slug is directly assigned.
func (u *User) HasRoles(slugs ...string) bool {
	return containsAll(u.RoleSlugs(), slugs)
}

// HasPermissions reports whether every permission is granted by a directly
// assigned role. It does not consult the permission cache.
func (u *User) HasPermissions(perms ...string) bool {
	return containsAll(u.PermissionSlugs(), perms)
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// TokenSet is the result of issuance and rotation.
type TokenSet struct {
	AccessToken      string
	RefreshToken     string
	CSRFToken        string
	Origin           Origin
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Principal is an authenticated request identity: the verified claims plus the
// live user record they were checked against.
type Principal struct {
	User   *User
	Claims *jwt.AccessClaims
	Origin Origin
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Email    string
	Username string
	Password string
}

// LoginRequest is the input of [Engine.Login]. Identifier is an email.
type LoginRequest struct {
	Identifier string
	Password   string
}

// NewUser is what the engine asks a [UserStore] to persist at registration.
type NewUser struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Roles        []string
}

// ListUsersQuery filters and pages [UserStore.ListUsers]. Cursor is opaque.
// Search matches a case-insensitive substring of email or username.
type ListUsersQuery struct {
	Banned *bool
	Search string
	Limit  int
	Cursor string
}

// UserPage is one page of users. NextCursor is empty on the last page.
type UserPage struct {
	Users      []User
	NextCursor string
}

// ErrInvalidCursor is returned by stores for cursors they did not produce.
var ErrInvalidCursor = &ValidationError{Field: "cursor", Reason: "malformed"}

// UserStore persists accounts and role assignments. Implementations must bump
// AuthVersion by exactly one, atomically with the change, in SetBanned,
// ReplaceRoles and BumpAuthVersion.
type UserStore interface {
	// GetUserByID returns ErrUserNotFound for unknown ids.
	GetUserByID(ctx context.Context, id string) (*User, error)
	// GetUserByEmail matches the normalized email; ErrUserNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// CreateUser returns ErrAccountExists when the email or username is taken.
	CreateUser(ctx context.Context, u NewUser) (*User, error)
	// FindRoles returns the subset of slugs that exist, with their permissions.
	FindRoles(ctx context.Context, slugs []string) ([]Role, error)
	SetBanned(ctx context.Context, id string, banned bool) (*User, error)
	// ReplaceRoles swaps the whole assignment set. Slugs are pre-validated.
	ReplaceRoles(ctx context.Context, id string, slugs []string) (*User, error)
	BumpAuthVersion(ctx context.Context, id string) (*User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	ListUsers(ctx context.Context, q ListUsersQuery) (UserPage, error)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
