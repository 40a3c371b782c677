// Package goAccount provides email-verified account registration and
// cookie-based sessions backed by Redis and a pluggable account store.
//
// Signup never writes an account. It seals the password, emails a numeric
// code and hands back a signed activation token; VerifyAccount redeems the
// token with the code and creates the verified account. Signin checks the
// stored argon2id (or legacy bcrypt) hash and issues a short-lived access
// token in an HttpOnly cookie, optionally caching the profile in Redis for
// remember-me sessions.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Package boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config]
// and the value types shared with stores and mailers. Flow orchestration,
// the replay ledger and audit dispatch live under internal/.
//
// The token and crypto primitives ([cryptox], [otp], [jwt], [password]) do
// not import goAccount and can be used on their own.
package goAccount
