// Package httpapi exposes an authcore engine over JSON/HTTP.
//
// Handlers stay thin: they decode input, pick the client origin from the
// X-Client header, call the engine, and translate error kinds to status
// codes. Web clients receive the refresh token and CSRF value as cookies and
// a null refresh_token in the body; mobile clients receive both tokens in the
// body and no cookies.
package httpapi
