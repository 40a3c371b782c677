package goAccount

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/jwt"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. Builder.Build clones the value it is given.
type Config struct {
	Crypto     CryptoConfig
	Activation ActivationConfig
	Access     AccessConfig
	Cookie     CookieConfig
	Password   PasswordConfig
	Session    SessionConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
CRYPTO CONFIG
====================================
*/

// CryptoConfig holds the symmetric key that seals pending passwords and codes.
type CryptoConfig struct {
	Secret string
	// FixedIV reproduces tokens sealed with a shared IV. Leave empty for a
	// random IV per value.
	FixedIV        string
	RequireFullKey bool
}

/*
====================================
ACTIVATION CONFIG
====================================
*/

// ActivationConfig controls the signup token and its one-time code.
type ActivationConfig struct {
	Secret        string
	TTL           time.Duration
	CodeLength    int
	SigningMethod string
	// SingleUse rejects a second redemption of the same token.
	SingleUse    bool
	LedgerPrefix string
}

/*
====================================
ACCESS CONFIG
====================================
*/

// AccessConfig controls the access token issued at sign-in.
type AccessConfig struct {
	Secret        string
	TTL           time.Duration
	SigningMethod string
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the access-token cookie.
type CookieConfig struct {
	Name             string
	Path             string
	Domain           string
	Secure           bool
	SameSite         http.SameSite
	RememberMeMaxAge time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and legacy bcrypt handling.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// AcceptBcrypt lets accounts created with bcrypt hashes sign in.
	AcceptBcrypt   bool
	BcryptCost     int
	UpgradeOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the remember-me cache record.
type SessionConfig struct {
	RedisPrefix string
	// RememberMeTTL of zero keeps the record until it is overwritten or evicted.
	RememberMeTTL time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the sign-in histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Activation: ActivationConfig{
			TTL:           3 * time.Minute,
			CodeLength:    internal.MinCodeLength,
			SigningMethod: string(jwt.MethodHS256),
			SingleUse:     true,
			LedgerPrefix:  "aat",
		},
		Access: AccessConfig{
			TTL:           5 * time.Minute,
			SigningMethod: string(jwt.MethodHS256),
		},
		Cookie: CookieConfig{
			Name:             "user_access_token",
			Path:             "/",
			Secure:           false,
			SameSite:         http.SameSiteNoneMode,
			RememberMeMaxAge: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			AcceptBcrypt:   true,
			BcryptCost:     12,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			RedisPrefix:   "",
			RememberMeTTL: 0,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the defaults. Secrets are empty and must be filled in
// before Validate succeeds.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	// All fields are value types.
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// Validate reports the first unusable setting. Every error wraps
// ErrConfiguration.
func (c *Config) Validate() error {
	// Crypto
	if c.Crypto.Secret == "" {
		return configError("Crypto Secret is required")
	}
	if c.Crypto.RequireFullKey && len(c.Crypto.Secret) < cryptox.KeyLength {
		return configError("Crypto Secret must be >= %d bytes when RequireFullKey is set", cryptox.KeyLength)
	}
	if c.Crypto.FixedIV != "" && len(c.Crypto.FixedIV) < cryptox.IVLength {
		return configError("Crypto FixedIV must be >= %d bytes", cryptox.IVLength)
	}

	// Activation
	if c.Activation.Secret == "" {
		return configError("Activation Secret is required")
	}
	if c.Activation.TTL <= 0 {
		return configError("Activation TTL must be > 0")
	}
	if _, _, err := internal.CodeBounds(c.Activation.CodeLength); err != nil {
		return configError("Activation CodeLength must be between %d and %d", internal.MinCodeLength, internal.MaxCodeLength)
	}
	if !validSigningMethod(c.Activation.SigningMethod) {
		return configError("unsupported Activation SigningMethod %q", c.Activation.SigningMethod)
	}
	if c.Activation.SingleUse && strings.TrimSpace(c.Activation.LedgerPrefix) == "" {
		return configError("Activation LedgerPrefix is required when SingleUse is set")
	}

	// Access
	if c.Access.Secret == "" {
		return configError("Access Secret is required")
	}
	if c.Access.TTL <= 0 {
		return configError("Access TTL must be > 0")
	}
	if !validSigningMethod(c.Access.SigningMethod) {
		return configError("unsupported Access SigningMethod %q", c.Access.SigningMethod)
	}
	if c.Access.Leeway < 0 || c.Access.Leeway > 2*time.Minute {
		return configError("Access Leeway must be between 0 and 2m")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return configError("Cookie Name is required")
	}
	if c.Cookie.RememberMeMaxAge <= 0 {
		return configError("Cookie RememberMeMaxAge must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return configError("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return configError("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return configError("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return configError("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return configError("Password KeyLength must be >= 16")
	}
	if c.Password.AcceptBcrypt && c.Password.BcryptCost != 0 && (c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31) {
		return configError("Password BcryptCost must be between 4 and 31")
	}

	// Session
	if c.Session.RememberMeTTL < 0 {
		return configError("Session RememberMeTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configError("Audit BufferSize must be > 0 when enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configError("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validSigningMethod(m string) bool {
	switch jwt.SigningMethod(m) {
	case jwt.MethodHS256, jwt.MethodHS384, jwt.MethodHS512:
		return true
	}
	return false
}

/*
====================================
LINT
====================================
*/

// LintSeverity ranks a lint warning.
type LintSeverity int

const (
	// LintInfo is worth knowing but usually intended.
	LintInfo LintSeverity = iota
	// LintWarn should be reviewed before production.
	LintWarn
	// LintHigh weakens a security property.
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}

// LintWarning is a configuration that validates but deserves a second look.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// AtLeast filters warnings at or above min.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint returns advisory warnings. It never fails; run Validate first.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Crypto.FixedIV != "" {
		add("fixed_iv", LintWarn, "a fixed IV makes equal plaintexts produce equal ciphertexts")
	}
	if c.Crypto.Secret != "" && len(c.Crypto.Secret) < cryptox.KeyLength {
		add("crypto_key_padded", LintWarn, "Crypto Secret is shorter than 32 bytes and will be zero-padded")
	}
	if c.Activation.Secret != "" && c.Activation.Secret == c.Access.Secret {
		add("shared_jwt_secret", LintHigh, "activation and access tokens share a signing secret")
	}
	if !c.Activation.SingleUse {
		add("activation_replay_allowed", LintWarn, "an activation token can be redeemed more than once until it expires")
	}
	if c.Activation.TTL > 15*time.Minute {
		add("activation_ttl_long", LintWarn, "activation tokens live longer than 15m")
	}
	if c.Access.TTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live longer than 15m")
	}
	if !c.Cookie.Secure {
		add("cookie_insecure", LintWarn, "the access cookie is sent over plain HTTP")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		add("samesite_none_insecure", LintHigh, "browsers drop SameSite=None cookies without Secure")
	}
	if c.Session.RememberMeTTL == 0 {
		add("remember_me_no_expiry", LintInfo, "remember-me records never expire on their own")
	}
	if c.Password.AcceptBcrypt && !c.Password.UpgradeOnLogin {
		add("bcrypt_not_upgraded", LintInfo, "legacy bcrypt hashes stay in place after sign-in")
	}
	return ws
}
