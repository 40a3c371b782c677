package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names the HMAC variant used to sign tokens.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
)

// ErrTokenSigning is returned when a token cannot be produced.
var ErrTokenSigning = errors.New("token signing failed")

// Config defines a public type used by goAccount APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret        []byte
	TTL           time.Duration
	SigningMethod SigningMethod
	Issuer        string
	Audience      string
	Leeway        time.Duration
	Now           func() time.Time
}

// Manager signs and verifies HMAC JWTs under one secret.
//
// Activation and access tokens use separate managers so their secrets never mix.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// AccessClaims is the body of a session access token.
type AccessClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// ActivationClaims is the body of a signup activation token. Payload and
// EncryptedOTP are carried verbatim so this package stays agnostic of their shape.
type ActivationClaims struct {
	Payload      json.RawMessage `json:"payload"`
	EncryptedOTP json.RawMessage `json:"encryptedOtp"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hmac signing requires a secret")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	var method jwt.SigningMethod
	switch cfg.SigningMethod {
	case MethodHS256:
		method = jwt.SigningMethodHS256
	case MethodHS384:
		method = jwt.SigningMethodHS384
	case MethodHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg, method: method}, nil
}

// TTL returns the default lifetime applied by this manager.
func (j *Manager) TTL() time.Duration {
	return j.config.TTL
}

// CreateAccess signs an access token bound to accountID.
func (j *Manager) CreateAccess(accountID string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("%w: empty account id", ErrTokenSigning)
	}
	claims := AccessClaims{
		ID:               accountID,
		RegisteredClaims: j.registered(j.config.TTL),
	}
	return j.sign(claims)
}

// ParseAccess verifies tokenStr and returns its claims.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// CreateActivation signs an activation token carrying payload and encryptedOTP.
// A non-positive ttl falls back to the manager TTL.
func (j *Manager) CreateActivation(payload, encryptedOTP json.RawMessage, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = j.config.TTL
	}
	claims := ActivationClaims{
		Payload:          payload,
		EncryptedOTP:     encryptedOTP,
		RegisteredClaims: j.registered(ttl),
	}
	token, err := j.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseActivation verifies tokenStr and returns its claims.
func (j *Manager) ParseActivation(tokenStr string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if len(claims.Payload) == 0 || len(claims.EncryptedOTP) == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (j *Manager) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := j.config.Now()
	rc := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(j.method, claims)
	signed, err := token.SignedString(j.config.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenSigning, err)
	}
	return signed, nil
}

func (j *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		// One token, one spelling: Signature feeds the replay ledger.
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.config.Secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// Signature returns the signature segment of a compact JWT, or "" if malformed.
func Signature(tokenStr string) string {
	i := strings.LastIndexByte(tokenStr, '.')
	if i < 0 || strings.Count(tokenStr, ".") != 2 {
		return ""
	}
	return tokenStr[i+1:]
}
