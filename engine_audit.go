package goAccount

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignupRequest  = "signup_request"
	auditEventAccountVerify  = "account_verify"
	auditEventSignin         = "signin"
	auditEventSessionIssue   = "session_issue"
	auditEventSignout        = "signout"
	auditEventAccountBan     = "account_ban"
	auditEventAccountUnban   = "account_unban"
	auditEventAccountDisable = "account_disable"
	auditEventAccountEnable  = "account_enable"
)

// AuditErrorCode is the stable, non-sensitive error label stored on audit events.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrCodeMismatch       AuditErrorCode = "code_mismatch"
	auditErrTokenReplayed      AuditErrorCode = "token_replayed"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountBanned      AuditErrorCode = "account_banned"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrDispatch           AuditErrorCode = "dispatch_failed"
	auditErrSessionIssuance    AuditErrorCode = "session_issuance_failed"
	auditErrCrypto             AuditErrorCode = "crypto_failure"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        ClientIP(ctx),
		UserAgent: UserAgent(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrCodeMismatch):
		return auditErrCodeMismatch
	case errors.Is(err, ErrTokenReplayed):
		return auditErrTokenReplayed
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountBanned):
		return auditErrAccountBanned
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrDispatch):
		return auditErrDispatch
	case errors.Is(err, ErrSessionIssuance):
		return auditErrSessionIssuance
	case errors.Is(err, ErrEncryption),
		errors.Is(err, ErrDecryption):
		return auditErrCrypto
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.Enabled() {
		return
	}
	e.metrics.Observe(id, e.now().Sub(start))
}
