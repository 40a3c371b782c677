package goAccount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	internalaudit "github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/otp"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/session"
)

// Engine runs signup, verification, sign-in and account status operations.
//
// Engine is safe for concurrent use after Build. Its configuration and key
// material never change.
type Engine struct {
	config Config

	accounts AccountStore
	signIns  SignInRecorder
	mailer   EmailDispatcher

	cipher    *cryptox.Cipher
	issuer    *otp.Issuer
	verifier  *otp.Verifier
	accessJWT *jwt.Manager
	passwords *password.Hasher

	sessions *session.Store
	ledger   *stores.ActivationLedger

	logger  *slog.Logger
	now     func() time.Time
	audit   *internalaudit.Dispatcher
	metrics *Metrics
}

// Close drains the audit dispatcher. It does not close the Redis client or
// the account store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks that Redis answers.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	_, err := e.sessions.Ping(ctx)
	return err
}

// AuthenticateToken validates an access token and returns the account id it
// was issued for. Any failure returns ErrUnauthorized.
func (e *Engine) AuthenticateToken(token string) (string, error) {
	if e == nil || e.accessJWT == nil {
		return "", ErrEngineNotReady
	}
	if token == "" {
		return "", ErrUnauthorized
	}
	claims, err := e.accessJWT.ParseAccess(token)
	if err != nil || claims.ID == "" {
		return "", ErrUnauthorized
	}
	return claims.ID, nil
}

// AuthenticateRequest reads the access token from the configured cookie or,
// failing that, an Authorization: Bearer header.
func (e *Engine) AuthenticateRequest(r *http.Request) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if c, err := r.Cookie(e.config.Cookie.Name); err == nil && c.Value != "" {
		return e.AuthenticateToken(c.Value)
	}
	return e.AuthenticateToken(bearerToken(r.Header.Get("Authorization")))
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}

// Profile returns the profile for accountID. A remember-me record is served
// from Redis; otherwise the account store is read.
func (e *Engine) Profile(ctx context.Context, accountID string) (Profile, error) {
	if e == nil || e.accounts == nil || e.sessions == nil {
		return Profile{}, ErrEngineNotReady
	}

	raw, err := e.sessions.Get(ctx, accountID)
	switch {
	case err == nil:
		var p Profile
		if jerr := json.Unmarshal(raw, &p); jerr == nil && p.ID == accountID {
			return p, nil
		}
		e.logger.WarnContext(ctx, "discarding unreadable session record", "account_id", accountID)
	case errors.Is(err, session.ErrNotFound):
	default:
		e.logger.WarnContext(ctx, "session cache read failed", "account_id", accountID, "error", err)
	}

	account, err := e.Account(ctx, accountID)
	if err != nil {
		return Profile{}, err
	}
	if !account.Status.Active() {
		return Profile{}, accountStateError(account.Status)
	}
	return account.Profile(), nil
}

// Account reads accountID from the store, bypassing the session cache.
func (e *Engine) Account(ctx context.Context, accountID string) (Account, error) {
	if e == nil || e.accounts == nil {
		return Account{}, ErrEngineNotReady
	}
	account, err := e.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return account, nil
}

// Signout deletes the remember-me record for accountID and returns a cookie
// that clears the access token in the browser.
func (e *Engine) Signout(ctx context.Context, accountID string) (*http.Cookie, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.sessions.Delete(ctx, accountID); err != nil {
		e.emitAudit(ctx, auditEventSignout, false, accountID, err, nil)
		return nil, err
	}
	e.metricInc(MetricSignout)
	e.emitAudit(ctx, auditEventSignout, true, accountID, nil, nil)
	return e.ClearCookie(), nil
}

// ClearCookie returns an expired access-token cookie.
func (e *Engine) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	e.logger.WarnContext(ctx, msg, args...)
}

func accountStateError(status AccountStatus) error {
	if status.Banned.IsBanned {
		return bannedError(status.Banned.Reason)
	}
	return disabledError(status.Disabled.Reason)
}

func bannedError(reason string) error {
	return &AccountStateError{Err: ErrAccountBanned, Reason: reason}
}

func disabledError(reason string) error {
	return &AccountStateError{Err: ErrAccountDisabled, Reason: reason}
}
