// Package otp issues and verifies stateless email activation tokens.
//
// An activation token is a signed JWT carrying an arbitrary payload next to a
// numeric one-time code sealed with [cryptox.Cipher]. The plaintext code leaves
// through a separate channel (email); only a caller holding both the token and
// the code can complete verification.
//
// # Architecture boundaries
//
// The package keeps no server-side state. Replay protection, when wanted, is
// layered on top using [Claims.TokenID].
//
// # What this package must NOT do
//
//   - Send email or persist accounts.
//   - Trust any payload field before the signature, expiry and code checks pass.
package otp
