package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal/domain"
)

type SigninRequest struct {
	Email      string
	Password   string
	RememberMe bool
}

type SigninMetrics struct {
	Success  int
	Failure  int
	Blocked  int
	Rehashed int
	Latency  int
}

type SigninEvents struct {
	Signin string
}

type SigninErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountNotFound    error
	StoreUnavailable   error
}

type SigninDeps struct {
	Now            func() time.Time
	UpgradeOnLogin bool

	FindByEmail    func(context.Context, string) (domain.Account, error)
	VerifyPassword func(password, encoded string) (ok bool, rehash bool, err error)
	HashPassword   func(string) (string, error)
	// UpdatePasswordHash and RecordLogin write only their own columns.
	UpdatePasswordHash func(ctx context.Context, accountID, hash string) error
	RecordLogin        func(ctx context.Context, accountID, ip string) error
	// RecordSignIn is nil when the store keeps no sign-in history.
	RecordSignIn  func(context.Context, string, domain.SignInDetail) error
	ClientIP      func(context.Context) string
	UserAgent     func(context.Context) string
	BannedError   func(reason string) error
	DisabledError func(reason string) error
	IssueSession  func(context.Context, domain.Account, bool) (*domain.Session, error)

	LogWarn      func(context.Context, string, ...any)
	MetricInc    func(int)
	ObserveSince func(int, time.Time)
	EmitAudit    func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics SigninMetrics
	Events  SigninEvents
	Errors  SigninErrors
}

// RunSignin checks credentials and account status, performs best-effort login
// bookkeeping and hands the account to IssueSession.
func RunSignin(ctx context.Context, req SigninRequest, deps SigninDeps) (*domain.Session, error) {
	normalizeSigninDeps(&deps)

	if deps.FindByEmail == nil || deps.VerifyPassword == nil || deps.IssueSession == nil || deps.BannedError == nil || deps.DisabledError == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer deps.ObserveSince(deps.Metrics.Latency, start)

	email := NormalizeEmail(req.Email)
	auditMeta := func() map[string]string {
		return map[string]string{
			"email": email,
		}
	}

	account, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Signin, false, "", deps.Errors.InvalidCredentials, auditMeta)
			return nil, deps.Errors.InvalidCredentials
		}
		wrapped := fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		deps.EmitAudit(ctx, deps.Events.Signin, false, "", wrapped, auditMeta)
		return nil, wrapped
	}

	if account.Status.Banned.IsBanned {
		stateErr := deps.BannedError(account.Status.Banned.Reason)
		deps.MetricInc(deps.Metrics.Blocked)
		deps.EmitAudit(ctx, deps.Events.Signin, false, account.ID, stateErr, nil)
		return nil, stateErr
	}
	if account.Status.Disabled.IsDisabled {
		stateErr := deps.DisabledError(account.Status.Disabled.Reason)
		deps.MetricInc(deps.Metrics.Blocked)
		deps.EmitAudit(ctx, deps.Events.Signin, false, account.ID, stateErr, nil)
		return nil, stateErr
	}

	ok, rehash, err := deps.VerifyPassword(req.Password, account.PasswordHash)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Signin, false, account.ID, err, nil)
		return nil, err
	}
	if !ok {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Signin, false, account.ID, deps.Errors.InvalidCredentials, nil)
		return nil, deps.Errors.InvalidCredentials
	}

	if rehash && deps.UpgradeOnLogin && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		upgraded, err := deps.HashPassword(req.Password)
		if err == nil {
			err = deps.UpdatePasswordHash(ctx, account.ID, upgraded)
		}
		if err != nil {
			deps.LogWarn(ctx, "password rehash failed", "account_id", account.ID, "error", err)
		} else {
			account.PasswordHash = upgraded
			deps.MetricInc(deps.Metrics.Rehashed)
		}
	}

	ip := deps.ClientIP(ctx)
	if ip != "" && deps.RecordLogin != nil {
		if err := deps.RecordLogin(ctx, account.ID, ip); err != nil {
			deps.LogWarn(ctx, "login ip not recorded", "account_id", account.ID, "error", err)
		} else {
			if account.LoginIP.First == "" {
				account.LoginIP.First = ip
			}
			account.LoginIP.Last = ip
		}
	}

	if deps.RecordSignIn != nil {
		detail := domain.SignInDetail{
			IP:         ip,
			UserAgent:  deps.UserAgent(ctx),
			SignedInAt: deps.Now().UTC(),
		}
		if err := deps.RecordSignIn(ctx, account.ID, detail); err != nil {
			deps.LogWarn(ctx, "sign-in detail not recorded", "account_id", account.ID, "error", err)
		}
	}

	session, err := deps.IssueSession(ctx, account, req.RememberMe)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Signin, false, account.ID, err, nil)
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Signin, true, account.ID, nil, nil)
	return session, nil
}

func normalizeSigninDeps(deps *SigninDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.UserAgent == nil {
		deps.UserAgent = func(context.Context) string { return "" }
	}
	if deps.LogWarn == nil {
		deps.LogWarn = func(context.Context, string, ...any) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ObserveSince == nil {
		deps.ObserveSince = func(int, time.Time) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
