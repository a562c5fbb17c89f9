// Package middleware adapts authcore.Engine to net/http.
//
// # Guards
//
//   - [Guard] authenticates the bearer access token and stores the
//     [authcore.Principal] in the request context.
//   - [RequireRoles] and [RequirePermissions] gate on the stored principal.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the cache or user store.
//   - Reveal why authentication failed beyond unauthorized, banned or forbidden.
package middleware
