package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type banRequest struct {
	Banned *bool `json:"banned"`
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

// tokenResponse carries a null refresh_token for web clients.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken *string   `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username,omitempty"`
	Banned      bool      `json:"banned"`
	AuthVersion uint32    `json:"auth_version"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

type userListResponse struct {
	Users      []userResponse `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func newUserResponse(u *authcore.User, perms []string) userResponse {
	if perms == nil {
		perms = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Banned:      u.Banned,
		AuthVersion: u.AuthVersion,
		Roles:       u.RoleSlugs(),
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	origin, err := authcore.ParseOrigin(r.Header.Get("X-Client"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ts, err := a.svc.Register(r.Context(), authcore.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}, origin)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.writeTokens(w, http.StatusCreated, ts)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	origin, err := authcore.ParseOrigin(r.Header.Get("X-Client"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ts, err := a.svc.Login(r.Context(), authcore.LoginRequest{
		Identifier: req.Email,
		Password:   req.Password,
	}, origin)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.writeTokens(w, http.StatusOK, ts)
}

// handleRefresh rotates the session. The origin comes from the refresh
// token itself, so X-Client is not consulted.
func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshCredential(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "not authorized")
		return
	}

	ts, err := a.svc.Refresh(r.Context(), token, r.Header.Get("X-CSRF-Token"))
	if err != nil {
		if errors.Is(err, authcore.ErrUnauthenticated) {
			a.cookies.clearSessionCookies(w)
		}
		a.writeServiceError(w, r, err)
		return
	}
	a.writeTokens(w, http.StatusOK, ts)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := refreshCredential(r); token != "" {
		if err := a.svc.Logout(r.Context(), token); err != nil {
			a.writeServiceError(w, r, err)
			return
		}
	}
	a.cookies.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	if _, err := a.svc.LogoutAll(r.Context(), p.User.ID); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.cookies.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	perms, err := a.svc.ResolvePermissions(r.Context(), p.User)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(p.User, perms))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := authcore.ListUsersQuery{Cursor: q.Get("cursor"), Search: q.Get("search")}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	if v := q.Get("banned"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid banned filter")
			return
		}
		query.Banned = &b
	}

	page, err := a.svc.ListUsers(r.Context(), query)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	out := userListResponse{Users: make([]userResponse, 0, len(page.Users)), NextCursor: page.NextCursor}
	for i := range page.Users {
		u := &page.Users[i]
		out.Users = append(out.Users, newUserResponse(u, u.PermissionSlugs()))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u, u.PermissionSlugs()))
}

func (a *API) handleSetBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Banned == nil {
		writeError(w, http.StatusBadRequest, "banned is required")
		return
	}

	u, err := a.svc.SetBan(r.Context(), r.PathValue("id"), *req.Banned)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u, u.PermissionSlugs()))
}

func (a *API) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	var req rolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Roles == nil {
		writeError(w, http.StatusBadRequest, "roles is required")
		return
	}

	u, err := a.svc.AssignRoles(r.Context(), r.PathValue("id"), req.Roles)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u, u.PermissionSlugs()))
}

// writeTokens sets cookies for web clients and answers with the token body.
func (a *API) writeTokens(w http.ResponseWriter, code int, ts authcore.TokenSet) {
	resp := tokenResponse{
		AccessToken: ts.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   ts.AccessExpiresAt,
	}
	if ts.Origin == authcore.OriginWeb {
		a.cookies.setSessionCookies(w, ts)
	} else {
		refresh := ts.RefreshToken
		resp.RefreshToken = &refresh
	}
	writeJSON(w, code, resp)
}

// refreshCredential reads the refresh token from its cookie, falling back
// to an Authorization bearer value.
func refreshCredential(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	return token
}
