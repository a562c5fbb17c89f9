// Package authcore is a stateless-token authentication and authorization core:
// short-lived JWT access tokens, rotating single-use refresh tokens with a
// CSRF binding for browser clients, and role/permission checks backed by a
// version-keyed permission cache.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Revocation model
//
// Every user carries an auth version. Tokens snapshot it at issue time;
// banning, replacing roles and logout-all bump it inside the same store
// transaction, which invalidates every outstanding token and every cached
// permission set of that user at once. Refresh sessions are single cache keys
// taken with GETDEL, so a refresh token can be redeemed at most once.
//
// # Architecture boundaries
//
// authcore is the public surface: [Engine], [Builder], [Config], the value
// types and the [UserStore] contract. Flow orchestration, random material and
// login throttling live under internal/. Storage adapters live in cache and
// userstore, the HTTP surface in httpapi and middleware.
//
// # What this package must NOT do
//
//   - Import userstore, httpapi or any other package that imports authcore.
//   - Perform I/O outside of Engine methods.
//   - Reveal which refresh check failed; all refresh failures are one error.
package authcore
