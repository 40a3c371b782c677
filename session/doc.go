// Package session is the Redis-backed remember-me cache.
//
// A remember-me sign-in stores the account's public profile under the account
// id; the HTTP layer reads it back for "me" requests and deletes it on
// sign-out or when an account is banned or disabled.
//
// # Architecture boundaries
//
// The store treats values as opaque bytes. It does not sign, verify or decode
// tokens and makes no authorization decisions.
//
// # What this package must NOT do
//
//   - Import goAccount, jwt or otp.
//   - Store password hashes or other secrets.
package session
