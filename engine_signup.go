package goAccount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goAccount/cryptox"
	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Signup validates req, confirms the email is unused and emails a one-time
// code. The returned token must accompany the code in VerifyAccount. No
// account exists until then.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	if err := req.Validate(); err != nil {
		verr := validationError(err)
		e.emitAudit(ctx, auditEventSignupRequest, false, "", verr, nil)
		return nil, verr
	}

	res, err := internalflows.RunSignup(ctx, internalflows.SignupRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
	}, e.signupFlowDeps())
	if err != nil {
		return nil, err
	}
	return &SignupResult{Token: res.Token, ExpiresAt: res.ExpiresAt}, nil
}

// VerifyAccount redeems an activation token with the emailed code and creates
// the verified account.
func (e *Engine) VerifyAccount(ctx context.Context, token, code string) (Account, error) {
	if e == nil || e.verifier == nil {
		return Account{}, ErrEngineNotReady
	}
	req := VerifyRequest{ActivationToken: token, Code: code}
	if err := req.Validate(); err != nil {
		verr := validationError(err)
		e.emitAudit(ctx, auditEventAccountVerify, false, "", verr, nil)
		return Account{}, verr
	}

	return internalflows.RunVerifyAccount(ctx, internalflows.VerifyRequest{
		Token: req.ActivationToken,
		Code:  req.Code,
	}, e.verifyFlowDeps())
}

func (e *Engine) signupFlowDeps() internalflows.SignupDeps {
	return internalflows.SignupDeps{
		FindByEmail: e.accounts.FindByEmail,
		SealPassword: func(pw string) (cryptox.EncryptedBlob, error) {
			return e.cipher.Encrypt(pw, e.config.Crypto.Secret)
		},
		IssueToken: func(p PendingRegistration) (internalflows.IssuedToken, error) {
			issued, err := e.issuer.Issue(p)
			if err != nil {
				return internalflows.IssuedToken{}, err
			}
			return internalflows.IssuedToken{
				Token:     issued.Token,
				Code:      issued.Code,
				ExpiresAt: issued.ExpiresAt,
			}, nil
		},
		SendCode:    e.mailer.SendVerificationCode,
		DisplayName: capitalizeName,
		MetricInc:   func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:   e.emitAudit,
		Metrics: internalflows.SignupMetrics{
			Requested:       int(MetricSignupRequested),
			Duplicate:       int(MetricSignupDuplicate),
			DispatchFailure: int(MetricSignupDispatchFailure),
		},
		Events: internalflows.SignupEvents{
			SignupRequest: auditEventSignupRequest,
		},
		Errors: internalflows.SignupErrors{
			EngineNotReady:   ErrEngineNotReady,
			DuplicateEmail:   ErrDuplicateEmail,
			AccountNotFound:  ErrAccountNotFound,
			StoreUnavailable: ErrStoreUnavailable,
			Dispatch:         ErrDispatch,
		},
	}
}

func (e *Engine) verifyFlowDeps() internalflows.VerifyDeps {
	deps := internalflows.VerifyDeps{
		Now:       e.now,
		SingleUse: e.ledger != nil,
		VerifyToken: func(token, code string, out *PendingRegistration) (internalflows.VerifiedToken, error) {
			claims, err := e.verifier.Verify(token, code, out)
			if err != nil {
				return internalflows.VerifiedToken{}, err
			}
			return internalflows.VerifiedToken{TokenID: claims.TokenID, ExpiresAt: claims.ExpiresAt}, nil
		},
		FindByEmail: e.accounts.FindByEmail,
		OpenPassword: func(blob cryptox.EncryptedBlob) (string, error) {
			var pw string
			if err := e.cipher.Decrypt(blob, e.config.Crypto.Secret, &pw); err != nil {
				return "", err
			}
			return pw, nil
		},
		HashPassword:  e.passwords.Hash,
		NormalizeName: capitalizeName,
		CreateAccount: e.accounts.Create,
		LogWarn:       e.logWarn,
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:     e.emitAudit,
		Metrics: internalflows.VerifyMetrics{
			Success:   int(MetricVerifySuccess),
			Failure:   int(MetricVerifyFailure),
			Replay:    int(MetricVerifyReplay),
			Duplicate: int(MetricVerifyDuplicate),
		},
		Events: internalflows.VerifyEvents{
			AccountVerify: auditEventAccountVerify,
		},
		Errors: internalflows.VerifyErrors{
			EngineNotReady:   ErrEngineNotReady,
			TokenReplayed:    ErrTokenReplayed,
			DuplicateEmail:   ErrDuplicateEmail,
			AccountNotFound:  ErrAccountNotFound,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
	if e.ledger != nil {
		deps.MarkToken = e.ledger.Mark
		deps.ReleaseToken = e.ledger.Release
	}
	return deps
}

// capitalizeName upper-cases the first letter of every word and leaves the
// rest untouched, so "mcDonald" stays "McDonald".
func capitalizeName(name string) string {
	// A Caser is stateful; build one per call.
	return cases.Title(language.Und, cases.NoLower).String(name)
}

func validationError(err error) error {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, ferr := range fieldErrs {
			if ferr != nil {
				fields[name] = ferr.Error()
			}
		}
		return &ValidationError{Fields: fields}
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
