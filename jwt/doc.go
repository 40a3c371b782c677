// Package jwt signs and verifies the two HMAC token kinds used by goAccount:
// short-lived activation tokens that carry a pending registration, and access
// tokens bound to an account id. Each [Manager] owns exactly one secret.
package jwt
