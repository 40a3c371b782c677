package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/cryptox"
	"github.com/MrEthical07/goAccount/internal/domain"
)

type SignupRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type SignupResult struct {
	Token     string
	ExpiresAt time.Time
}

// IssuedToken is the activation token plus the code that must travel out of band.
type IssuedToken struct {
	Token     string
	Code      int64
	ExpiresAt time.Time
}

type SignupMetrics struct {
	Requested       int
	Duplicate       int
	DispatchFailure int
}

type SignupEvents struct {
	SignupRequest string
}

type SignupErrors struct {
	EngineNotReady   error
	DuplicateEmail   error
	AccountNotFound  error
	StoreUnavailable error
	Dispatch         error
}

type SignupDeps struct {
	FindByEmail  func(context.Context, string) (domain.Account, error)
	SealPassword func(string) (cryptox.EncryptedBlob, error)
	IssueToken   func(domain.PendingRegistration) (IssuedToken, error)
	SendCode     func(context.Context, domain.VerificationMessage) error
	DisplayName  func(string) string

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics SignupMetrics
	Events  SignupEvents
	Errors  SignupErrors
}

// NormalizeEmail trims and lowercases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RunSignup checks the email is free, seals the password into an activation
// token and sends the code. Nothing is persisted.
func RunSignup(ctx context.Context, req SignupRequest, deps SignupDeps) (*SignupResult, error) {
	normalizeSignupDeps(&deps)

	if deps.FindByEmail == nil || deps.SealPassword == nil || deps.IssueToken == nil || deps.SendCode == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := NormalizeEmail(req.Email)

	if err := checkEmailFree(ctx, email, deps.FindByEmail, deps.Errors.DuplicateEmail, deps.Errors.AccountNotFound, deps.Errors.StoreUnavailable); err != nil {
		if errors.Is(err, deps.Errors.DuplicateEmail) {
			deps.MetricInc(deps.Metrics.Duplicate)
		}
		deps.EmitAudit(ctx, deps.Events.SignupRequest, false, "", err, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return nil, err
	}

	sealed, err := deps.SealPassword(req.Password)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SignupRequest, false, "", err, nil)
		return nil, err
	}

	issued, err := deps.IssueToken(domain.PendingRegistration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Password:  sealed,
	})
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.SignupRequest, false, "", err, nil)
		return nil, err
	}

	msg := domain.VerificationMessage{
		To:        email,
		Name:      deps.DisplayName(req.FirstName),
		Code:      strconv.FormatInt(issued.Code, 10),
		ExpiresAt: issued.ExpiresAt,
	}
	if err := deps.SendCode(ctx, msg); err != nil {
		wrapped := fmt.Errorf("%w: %v", deps.Errors.Dispatch, err)
		deps.MetricInc(deps.Metrics.DispatchFailure)
		deps.EmitAudit(ctx, deps.Events.SignupRequest, false, "", wrapped, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return nil, wrapped
	}

	deps.MetricInc(deps.Metrics.Requested)
	deps.EmitAudit(ctx, deps.Events.SignupRequest, true, "", nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return &SignupResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func checkEmailFree(
	ctx context.Context,
	email string,
	find func(context.Context, string) (domain.Account, error),
	errDuplicate, errNotFound, errUnavailable error,
) error {
	_, err := find(ctx, email)
	switch {
	case err == nil:
		return errDuplicate
	case errors.Is(err, errNotFound):
		return nil
	default:
		return fmt.Errorf("%w: %v", errUnavailable, err)
	}
}

func normalizeSignupDeps(deps *SignupDeps) {
	if deps.DisplayName == nil {
		deps.DisplayName = func(s string) string { return s }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
