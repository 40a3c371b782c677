package goAccount

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/goAccount/internal/flows"
)

// Signin authenticates email and password and issues a session.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
// Banned and disabled accounts return *AccountStateError before the password
// is checked.
func (e *Engine) Signin(ctx context.Context, req SigninRequest) (*Session, error) {
	if e == nil || e.accessJWT == nil {
		return nil, ErrEngineNotReady
	}
	if err := req.Validate(); err != nil {
		verr := validationError(err)
		e.emitAudit(ctx, auditEventSignin, false, "", verr, nil)
		return nil, verr
	}

	return internalflows.RunSignin(ctx, internalflows.SigninRequest{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	}, e.signinFlowDeps())
}

// IssueSession signs an access token for account and builds its cookie. With
// rememberMe the profile is cached in Redis and the cookie lasts
// Cookie.RememberMeMaxAge. On error no cookie is returned.
func (e *Engine) IssueSession(ctx context.Context, account Account, rememberMe bool) (*Session, error) {
	if e == nil || e.accessJWT == nil {
		return nil, ErrEngineNotReady
	}
	return internalflows.RunIssueSession(ctx, account, rememberMe, e.issueSessionFlowDeps())
}

func (e *Engine) signinFlowDeps() internalflows.SigninDeps {
	deps := internalflows.SigninDeps{
		Now:                e.now,
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		FindByEmail:        e.accounts.FindByEmail,
		VerifyPassword:     e.passwords.Verify,
		HashPassword:       e.passwords.Hash,
		UpdatePasswordHash: e.accounts.UpdatePasswordHash,
		RecordLogin:        e.accounts.RecordLogin,
		ClientIP:           ClientIP,
		UserAgent:          UserAgent,
		BannedError:        bannedError,
		DisabledError:      disabledError,
		IssueSession:       e.IssueSession,
		LogWarn:            e.logWarn,
		MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
		ObserveSince:       func(id int, start time.Time) { e.observeSince(MetricID(id), start) },
		EmitAudit:          e.emitAudit,
		Metrics: internalflows.SigninMetrics{
			Success:  int(MetricSigninSuccess),
			Failure:  int(MetricSigninFailure),
			Blocked:  int(MetricSigninBlocked),
			Rehashed: int(MetricPasswordRehashed),
			Latency:  int(MetricSigninLatency),
		},
		Events: internalflows.SigninEvents{
			Signin: auditEventSignin,
		},
		Errors: internalflows.SigninErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountNotFound:    ErrAccountNotFound,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
	if e.signIns != nil {
		deps.RecordSignIn = e.signIns.RecordSignIn
	}
	return deps
}

func (e *Engine) issueSessionFlowDeps() internalflows.IssueSessionDeps {
	return internalflows.IssueSessionDeps{
		Now: e.now,
		Cookie: internalflows.CookiePolicy{
			Name:             e.config.Cookie.Name,
			Path:             e.config.Cookie.Path,
			Domain:           e.config.Cookie.Domain,
			Secure:           e.config.Cookie.Secure,
			SameSite:         e.config.Cookie.SameSite,
			RememberMeMaxAge: e.config.Cookie.RememberMeMaxAge,
		},
		RememberMeTTL:     e.config.Session.RememberMeTTL,
		CreateAccessToken: e.accessJWT.CreateAccess,
		PutSession:        e.sessions.Put,
		MetricInc:         func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:         e.emitAudit,
		Metrics: internalflows.IssueSessionMetrics{
			Issued:     int(MetricSessionIssued),
			Remembered: int(MetricSessionRemembered),
			Failure:    int(MetricSessionIssueFailure),
		},
		Events: internalflows.IssueSessionEvents{
			SessionIssue: auditEventSessionIssue,
		},
		Errors: internalflows.IssueSessionErrors{
			EngineNotReady:  ErrEngineNotReady,
			SessionIssuance: ErrSessionIssuance,
		},
	}
}

// IsAccountState reports whether err is a ban or disable refusal.
func IsAccountState(err error) bool {
	var stateErr *AccountStateError
	return errors.As(err, &stateErr)
}
