// Package cryptox seals JSON-serializable values with AES-256-CBC for embedding
// inside signed activation tokens.
//
// # Key and IV policy
//
// Secrets are UTF-8 strings normalized to 32 bytes by zero-padding or truncation
// ([PadKey]). The IV is either sliced from a configured fixed value, which keeps
// ciphertexts compatible with tokens issued by earlier deployments, or drawn
// fresh from crypto/rand on every call. The IV always travels inside the
// [EncryptedBlob], so decryption works for both modes.
//
// # What this package must NOT do
//
//   - Hold secrets. Callers pass the secret on every call.
//   - Import goAccount or any sibling package.
package cryptox
