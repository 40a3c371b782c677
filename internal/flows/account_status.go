package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal/domain"
)

// StatusMutation edits status in place and reports whether cached sessions
// for the account must be evicted.
type StatusMutation func(status *domain.AccountStatus, now time.Time) (evict bool)

type AccountStatusErrors struct {
	EngineNotReady   error
	AccountNotFound  error
	StoreUnavailable error
}

type AccountStatusDeps struct {
	Now          func() time.Time
	FindByID     func(context.Context, string) (domain.Account, error)
	SaveStatus   func(context.Context, string, domain.AccountStatus) (domain.Account, error)
	EvictSession func(context.Context, string) error
	LogWarn      func(context.Context, string, ...any)

	Errors AccountStatusErrors
}

// Ban sets the ban state with reason.
func Ban(reason string) StatusMutation {
	return func(s *domain.AccountStatus, now time.Time) bool {
		s.Banned = domain.BanState{IsBanned: true, Reason: reason, At: now}
		return true
	}
}

// Unban clears the ban state.
func Unban() StatusMutation {
	return func(s *domain.AccountStatus, _ time.Time) bool {
		s.Banned = domain.BanState{}
		return false
	}
}

// Disable sets the disabled state with reason.
func Disable(reason string) StatusMutation {
	return func(s *domain.AccountStatus, now time.Time) bool {
		s.Disabled = domain.DisableState{IsDisabled: true, Reason: reason, At: now}
		return true
	}
}

// Enable clears the disabled state.
func Enable() StatusMutation {
	return func(s *domain.AccountStatus, _ time.Time) bool {
		s.Disabled = domain.DisableState{}
		return false
	}
}

// RunUpdateAccountStatus loads the account, applies mutate, stores the status and
// evicts the remember-me record when the mutation blocks sign-in.
func RunUpdateAccountStatus(ctx context.Context, accountID string, mutate StatusMutation, deps AccountStatusDeps) (domain.Account, error) {
	if deps.FindByID == nil || deps.SaveStatus == nil || mutate == nil {
		return domain.Account{}, deps.Errors.EngineNotReady
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.LogWarn == nil {
		deps.LogWarn = func(context.Context, string, ...any) {}
	}
	if accountID == "" {
		return domain.Account{}, deps.Errors.AccountNotFound
	}

	account, err := deps.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return domain.Account{}, deps.Errors.AccountNotFound
		}
		return domain.Account{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	evict := mutate(&account.Status, deps.Now().UTC())

	saved, err := deps.SaveStatus(ctx, accountID, account.Status)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return domain.Account{}, deps.Errors.AccountNotFound
		}
		return domain.Account{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	if evict && deps.EvictSession != nil {
		if err := deps.EvictSession(ctx, accountID); err != nil {
			deps.LogWarn(ctx, "session eviction failed", "account_id", accountID, "error", err)
		}
	}

	return saved, nil
}
