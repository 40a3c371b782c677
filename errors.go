package goAccount

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/MrEthical07/goAccount/cryptox"
	"github.com/MrEthical07/goAccount/otp"
)

var (
	// ErrValidation is returned when a request is missing fields or is malformed.
	ErrValidation = errors.New("invalid request")
	// ErrDuplicateEmail is returned when an email already belongs to an account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrEncryption is returned when a value cannot be sealed.
	ErrEncryption = cryptox.ErrEncryption
	// ErrDecryption is returned when a sealed value cannot be opened.
	ErrDecryption = cryptox.ErrDecryption
	// ErrInvalidOrExpiredToken is returned for any unusable activation token.
	ErrInvalidOrExpiredToken = otp.ErrInvalidOrExpiredToken
	// ErrCodeMismatch is returned when the submitted verification code is wrong.
	ErrCodeMismatch = otp.ErrCodeMismatch
	// ErrTokenReplayed is returned when an activation token was already redeemed.
	ErrTokenReplayed = errors.New("activation token already used")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned is wrapped by AccountStateError for banned accounts.
	ErrAccountBanned = errors.New("account banned")
	// ErrAccountDisabled is wrapped by AccountStateError for disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountNotFound is returned by AccountStore lookups that match nothing.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDispatch is returned when the verification email could not be sent.
	ErrDispatch = errors.New("verification email dispatch failed")
	// ErrSessionIssuance is returned when an access token or remember-me record cannot be produced.
	ErrSessionIssuance = errors.New("session issuance failed")
	// ErrConfiguration is returned for unusable engine configuration.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrStoreUnavailable is returned when the account store fails for reasons other than a miss.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUnauthorized is returned when a request carries no usable access token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated account lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

const (
	defaultBannedMessage   = "Your account is banned."
	defaultDisabledMessage = "Your account is disabled."
)

// AccountStateError reports a sign-in refused because of the account's status.
// Reason is safe to show to the account owner.
type AccountStateError struct {
	Err    error
	Reason string
}

func (e *AccountStateError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if errors.Is(e.Err, ErrAccountDisabled) {
		return defaultDisabledMessage
	}
	return defaultBannedMessage
}

func (e *AccountStateError) Unwrap() error { return e.Err }

// ValidationError carries per-field messages. It unwraps to ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, name := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
