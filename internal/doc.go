// Package internal holds random material and constant-time helpers private to
// authcore.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for issue, refresh, revoke, login
//     and permission resolution
//   - rate: cache-backed failed-login counters
//   - config: viper-backed service settings for cmd/authd
//   - obs: zap logger construction
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
