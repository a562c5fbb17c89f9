package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
)

const (
	refreshCookieName = "refresh_token"
	csrfCookieName    = "csrf_token"
)

// CookieOptions control the attributes of the refresh and CSRF cookies.
// MaxAge should equal the refresh token lifetime.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	Path     string
	MaxAge   time.Duration
}

// DefaultCookieOptions returns Secure, SameSite=Lax cookies on "/".
func DefaultCookieOptions(maxAge time.Duration) CookieOptions {
	return CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	}
}

// ParseSameSite maps "lax", "strict" and "none" to http.SameSite.
func ParseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown samesite mode %q", v)
	}
}

func (o CookieOptions) cookie(name, value string, httpOnly bool, maxAge int) *http.Cookie {
	path := o.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   o.Domain,
		MaxAge:   maxAge,
		Secure:   o.Secure,
		HttpOnly: httpOnly,
		SameSite: o.SameSite,
	}
}

// setSessionCookies stores the refresh token (HttpOnly) and the CSRF value
// (script-readable) of a web token set.
func (o CookieOptions) setSessionCookies(w http.ResponseWriter, ts authcore.TokenSet) {
	maxAge := int(o.MaxAge / time.Second)
	http.SetCookie(w, o.cookie(refreshCookieName, ts.RefreshToken, true, maxAge))
	http.SetCookie(w, o.cookie(csrfCookieName, ts.CSRFToken, false, maxAge))
}

func (o CookieOptions) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(refreshCookieName, "", true, -1))
	http.SetCookie(w, o.cookie(csrfCookieName, "", false, -1))
}
