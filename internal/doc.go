// Package internal contains helpers that are private to goAccount: secure
// numeric code generation and token fingerprinting.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: process configuration from TOML files and environment variables
//   - domain: account, profile and session value types
//   - flows: pure-function orchestrators for signup, verification, sign-in and session issuance
//   - metrics: lock-free counters and the sign-in latency histogram
//   - stores: the Redis ledger of redeemed activation tokens
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API.
//   - Be imported by any package outside the goAccount module.
package internal
