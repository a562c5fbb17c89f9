// Package rate implements the login attempt throttle on top of the shared
// cache store.
//
// # Window semantics
//
// Fixed-window counters: the first failure starts the window (Incr sets the
// TTL), later failures only increment. Keys:
//   - auth:rl:login:id:<identifier>  per login identifier
//   - auth:rl:login:ip:<ip>          per client IP, when enabled
package rate
