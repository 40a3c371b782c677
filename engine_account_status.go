package goAccount

import (
	"context"

	internalflows "github.com/MrEthical07/goAccount/internal/flows"
)

// BanAccount marks the account banned with reason and evicts its
// remember-me record. Signin returns the reason to the account owner.
func (e *Engine) BanAccount(ctx context.Context, accountID, reason string) (Account, error) {
	return e.updateAccountStatus(ctx, accountID, internalflows.Ban(reason), auditEventAccountBan, MetricAccountBanned)
}

// UnbanAccount clears the ban state.
func (e *Engine) UnbanAccount(ctx context.Context, accountID string) (Account, error) {
	return e.updateAccountStatus(ctx, accountID, internalflows.Unban(), auditEventAccountUnban, MetricAccountUnbanned)
}

// DisableAccount marks the account disabled and evicts its remember-me record.
func (e *Engine) DisableAccount(ctx context.Context, accountID, reason string) (Account, error) {
	return e.updateAccountStatus(ctx, accountID, internalflows.Disable(reason), auditEventAccountDisable, MetricAccountDisabled)
}

// EnableAccount clears the disabled state.
func (e *Engine) EnableAccount(ctx context.Context, accountID string) (Account, error) {
	return e.updateAccountStatus(ctx, accountID, internalflows.Enable(), auditEventAccountEnable, MetricAccountEnabled)
}

func (e *Engine) updateAccountStatus(
	ctx context.Context,
	accountID string,
	mutate internalflows.StatusMutation,
	event string,
	metric MetricID,
) (Account, error) {
	if e == nil || e.accounts == nil {
		return Account{}, ErrEngineNotReady
	}

	account, err := internalflows.RunUpdateAccountStatus(ctx, accountID, mutate, internalflows.AccountStatusDeps{
		Now:          e.now,
		FindByID:     e.accounts.FindByID,
		SaveStatus:   e.accounts.UpdateStatus,
		EvictSession: e.sessions.Delete,
		LogWarn:      e.logWarn,
		Errors: internalflows.AccountStatusErrors{
			EngineNotReady:   ErrEngineNotReady,
			AccountNotFound:  ErrAccountNotFound,
			StoreUnavailable: ErrStoreUnavailable,
		},
	})
	if err == nil {
		e.metricInc(metric)
	}
	e.emitAudit(ctx, event, err == nil, accountID, err, nil)
	return account, err
}
