package otp

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/jwt"
)

const (
	// DefaultCodeLength is the number of digits when no option overrides it.
	DefaultCodeLength = 6
	// DefaultTTL is the activation token lifetime when no option overrides it.
	DefaultTTL = 3 * time.Minute
)

var (
	// ErrConfiguration is returned for an unusable code length or missing dependency.
	ErrConfiguration = errors.New("otp configuration invalid")
	// ErrInvalidOrExpiredToken is returned for any token that fails signature or expiry checks.
	ErrInvalidOrExpiredToken = errors.New("activation token invalid or expired")
	// ErrCodeMismatch is returned when a valid token is paired with the wrong code.
	ErrCodeMismatch = errors.New("verification code mismatch")
)

// Issued is the result of Issuer.Issue. Token goes back to the client; Code
// goes out through the email channel.
type Issued struct {
	Token     string
	Code      int64
	ExpiresAt time.Time
}

// Claims describes a verified activation token.
type Claims struct {
	// TokenID is a fixed-length fingerprint of the token signature.
	TokenID   string
	ExpiresAt time.Time
}

type options struct {
	ttl        time.Duration
	codeLength int
}

// Option tunes a single Issue call.
type Option func(*options)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithCodeLength overrides the number of digits; valid range is 6..10.
func WithCodeLength(n int) Option {
	return func(o *options) { o.codeLength = n }
}

// Issuer wraps a payload and a freshly generated, encrypted code into a signed token.
type Issuer struct {
	cipher     *cryptox.Cipher
	signer     *jwt.Manager
	codeSecret string
	defaults   options
	newCode    func(int) (int64, error)
}

// NewIssuer builds an Issuer. codeSecret encrypts the code; signer holds the activation secret.
func NewIssuer(cipher *cryptox.Cipher, signer *jwt.Manager, codeSecret string, opts ...Option) (*Issuer, error) {
	if cipher == nil || signer == nil {
		return nil, fmt.Errorf("%w: cipher and signer are required", ErrConfiguration)
	}
	if codeSecret == "" {
		return nil, fmt.Errorf("%w: code secret is required", ErrConfiguration)
	}
	defaults := options{ttl: DefaultTTL, codeLength: DefaultCodeLength}
	for _, opt := range opts {
		opt(&defaults)
	}
	if _, _, err := internal.CodeBounds(defaults.codeLength); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &Issuer{
		cipher:     cipher,
		signer:     signer,
		codeSecret: codeSecret,
		defaults:   defaults,
		newCode:    internal.NewNumericCode,
	}, nil
}

// Issue generates a code, encrypts it and signs {payload, encryptedOtp}.
func (i *Issuer) Issue(payload any, opts ...Option) (Issued, error) {
	o := i.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if _, _, err := internal.CodeBounds(o.codeLength); err != nil {
		return Issued{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if o.ttl <= 0 {
		return Issued{}, fmt.Errorf("%w: non-positive ttl", ErrConfiguration)
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", cryptox.ErrEncryption, err)
	}

	code, err := i.newCode(o.codeLength)
	if err != nil {
		return Issued{}, fmt.Errorf("generate code: %w", err)
	}

	blob, err := i.cipher.Encrypt(code, i.codeSecret)
	if err != nil {
		return Issued{}, err
	}
	rawBlob, err := json.Marshal(blob)
	if err != nil {
		return Issued{}, fmt.Errorf("%w: %v", cryptox.ErrEncryption, err)
	}

	token, expiresAt, err := i.signer.CreateActivation(rawPayload, rawBlob, o.ttl)
	if err != nil {
		return Issued{}, err
	}

	return Issued{Token: token, Code: code, ExpiresAt: expiresAt}, nil
}

// Verifier checks activation tokens and the codes submitted against them.
type Verifier struct {
	cipher     *cryptox.Cipher
	signer     *jwt.Manager
	codeSecret string
}

// NewVerifier builds a Verifier sharing the Issuer's secrets.
func NewVerifier(cipher *cryptox.Cipher, signer *jwt.Manager, codeSecret string) (*Verifier, error) {
	if cipher == nil || signer == nil || codeSecret == "" {
		return nil, fmt.Errorf("%w: cipher, signer and code secret are required", ErrConfiguration)
	}
	return &Verifier{cipher: cipher, signer: signer, codeSecret: codeSecret}, nil
}

// Verify validates token, compares submittedCode numerically with the embedded
// code and, on success, decodes the payload into out.
//
// Token failures of any kind return ErrInvalidOrExpiredToken and leave out untouched.
func (v *Verifier) Verify(token, submittedCode string, out any) (Claims, error) {
	claims, err := v.signer.ParseActivation(token)
	if err != nil {
		return Claims{}, ErrInvalidOrExpiredToken
	}

	var blob cryptox.EncryptedBlob
	if err := json.Unmarshal(claims.EncryptedOTP, &blob); err != nil {
		return Claims{}, ErrInvalidOrExpiredToken
	}

	var expected json.Number
	if err := v.cipher.Decrypt(blob, v.codeSecret, &expected); err != nil {
		return Claims{}, err
	}
	want, err := parseCode(string(expected))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: embedded code is not numeric", cryptox.ErrDecryption)
	}

	got, err := parseCode(submittedCode)
	if err != nil || !codesEqual(want, got) {
		return Claims{}, ErrCodeMismatch
	}

	if out != nil {
		dec := json.NewDecoder(bytes.NewReader(claims.Payload))
		if err := dec.Decode(out); err != nil {
			return Claims{}, ErrInvalidOrExpiredToken
		}
	}

	result := Claims{TokenID: internal.TokenID(jwt.Signature(token))}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}

func parseCode(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty code")
	}
	return strconv.ParseInt(s, 10, 64)
}

func codesEqual(a, b int64) bool {
	var x, y [8]byte
	binary.BigEndian.PutUint64(x[:], uint64(a))
	binary.BigEndian.PutUint64(y[:], uint64(b))
	return subtle.ConstantTimeCompare(x[:], y[:]) == 1
}
