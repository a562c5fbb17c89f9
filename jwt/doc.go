// Package jwt signs and verifies the access/refresh token pair and loads the
// key material behind it.
//
// Access tokens carry the subject, the auth version snapshot (av) and the client
// origin (src). Refresh tokens add a jti that names their server-side session
// record. Both carry a typ claim so one kind is never accepted as the other.
//
// Verification here is stateless: signature, algorithm, expiry, issuer and
// audience. Comparing av against the live user record is the caller's job.
package jwt
