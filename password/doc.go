// Package password hashes and verifies account credentials.
//
// New hashes are argon2id in PHC string form. Hashes written by older
// deployments with bcrypt stay verifiable through [Hasher]; a successful
// match against a legacy or under-parameterized hash reports rehash=true so
// the caller can store a fresh argon2id hash.
//
// # What this package must NOT do
//
//   - Store or look up hashes. Callers supply plaintext and receive strings.
//   - Enforce password policy beyond rejecting the empty string.
//   - Log plaintext passwords.
package password
