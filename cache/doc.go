// Package cache provides the key/value store behind refresh sessions, CSRF bindings,
// permission sets and attempt counters.
//
// # Backends
//
// [RedisStore] is the production backend (go-redis, any UniversalClient).
// [MemoryStore] keeps the same TTL semantics in process and is meant for tests and
// single-node development setups.
//
// # Key layout
//
//	refresh:<jti>                  -> user id
//	csrf:<jti>                     -> csrf value
//	auth:perm:<user_id>:v<version> -> JSON array of permission slugs
//
// # What this package must NOT do
//
//   - Import authcore, jwt, or permission (no upward imports).
//   - Interpret values; callers own the encoding.
package cache
