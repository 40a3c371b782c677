// Package stores provides Redis-backed records for short-lived activation
// state.
//
// # Design
//
// Activation tokens are self-contained, so the only server-side state is a
// single-use mark per redeemed token. Marks are written with SET NX, which
// makes concurrent redemptions of the same token race-free, and expire with
// the token they guard.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT parse tokens or decide
// whether a redemption is allowed; those belong to the flow functions in
// internal/flows.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package.
//   - Store token bodies or codes. Only opaque token ids are written.
package stores
