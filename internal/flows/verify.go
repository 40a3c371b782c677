package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	"github.com/MrEthical07/goAccount/internal/domain"
)

type VerifyRequest struct {
	Token string
	Code  string
}

// VerifiedToken identifies a token that passed signature, expiry and code checks.
type VerifiedToken struct {
	TokenID   string
	ExpiresAt time.Time
}

type VerifyMetrics struct {
	Success   int
	Failure   int
	Replay    int
	Duplicate int
}

type VerifyEvents struct {
	AccountVerify string
}

type VerifyErrors struct {
	EngineNotReady   error
	TokenReplayed    error
	DuplicateEmail   error
	AccountNotFound  error
	StoreUnavailable error
}

type VerifyDeps struct {
	Now       func() time.Time
	SingleUse bool

	VerifyToken   func(token, code string, out *domain.PendingRegistration) (VerifiedToken, error)
	MarkToken     func(context.Context, string, time.Duration) (bool, error)
	ReleaseToken  func(context.Context, string) error
	FindByEmail   func(context.Context, string) (domain.Account, error)
	OpenPassword  func(cryptox.EncryptedBlob) (string, error)
	HashPassword  func(string) (string, error)
	NormalizeName func(string) string
	CreateAccount func(context.Context, domain.AccountInput) (domain.Account, error)

	LogWarn   func(context.Context, string, ...any)
	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics VerifyMetrics
	Events  VerifyEvents
	Errors  VerifyErrors
}

// RunVerifyAccount redeems an activation token and creates the verified account.
//
// With SingleUse set the token id is claimed before any account work. A
// duplicate-email outcome keeps the claim; every other failure after it
// releases the claim so the same token can be retried.
func RunVerifyAccount(ctx context.Context, req VerifyRequest, deps VerifyDeps) (domain.Account, error) {
	normalizeVerifyDeps(&deps)

	if deps.VerifyToken == nil || deps.FindByEmail == nil || deps.OpenPassword == nil || deps.HashPassword == nil || deps.CreateAccount == nil {
		return domain.Account{}, deps.Errors.EngineNotReady
	}
	if deps.SingleUse && (deps.MarkToken == nil || deps.ReleaseToken == nil) {
		return domain.Account{}, deps.Errors.EngineNotReady
	}

	fail := func(err error, accountID string, metric int) (domain.Account, error) {
		if metric >= 0 {
			deps.MetricInc(metric)
		}
		deps.EmitAudit(ctx, deps.Events.AccountVerify, false, accountID, err, nil)
		return domain.Account{}, err
	}

	var pending domain.PendingRegistration
	claims, err := deps.VerifyToken(req.Token, req.Code, &pending)
	if err != nil {
		return fail(err, "", deps.Metrics.Failure)
	}

	marked := false
	if deps.SingleUse {
		ttl := claims.ExpiresAt.Sub(deps.Now())
		ok, err := deps.MarkToken(ctx, claims.TokenID, ttl)
		if err != nil {
			return fail(err, "", -1)
		}
		if !ok {
			return fail(deps.Errors.TokenReplayed, "", deps.Metrics.Replay)
		}
		marked = true
	}

	release := func() {
		if !marked {
			return
		}
		if err := deps.ReleaseToken(context.WithoutCancel(ctx), claims.TokenID); err != nil {
			deps.LogWarn(ctx, "activation token release failed", "error", err)
		}
	}

	email := NormalizeEmail(pending.Email)
	if err := checkEmailFree(ctx, email, deps.FindByEmail, deps.Errors.DuplicateEmail, deps.Errors.AccountNotFound, deps.Errors.StoreUnavailable); err != nil {
		if errors.Is(err, deps.Errors.DuplicateEmail) {
			return fail(err, "", deps.Metrics.Duplicate)
		}
		release()
		return fail(err, "", -1)
	}

	plain, err := deps.OpenPassword(pending.Password)
	if err != nil {
		release()
		return fail(err, "", -1)
	}

	hash, err := deps.HashPassword(plain)
	if err != nil {
		release()
		return fail(err, "", -1)
	}

	created, err := deps.CreateAccount(ctx, domain.AccountInput{
		FirstName:    deps.NormalizeName(pending.FirstName),
		LastName:     deps.NormalizeName(pending.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, deps.Errors.DuplicateEmail) {
			return fail(deps.Errors.DuplicateEmail, "", deps.Metrics.Duplicate)
		}
		release()
		return fail(fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err), "", -1)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.AccountVerify, true, created.ID, nil, nil)
	return created, nil
}

func normalizeVerifyDeps(deps *VerifyDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NormalizeName == nil {
		deps.NormalizeName = func(s string) string { return s }
	}
	if deps.LogWarn == nil {
		deps.LogWarn = func(context.Context, string, ...any) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
