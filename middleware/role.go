package middleware

import (
	"context"
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

// AccountSource is satisfied by *goAccount.Engine.
type AccountSource interface {
	Account(ctx context.Context, accountID string) (goAccount.Account, error)
}

type accountContextKey struct{}

// AccountFromContext returns the account loaded by RequireRole.
func AccountFromContext(ctx context.Context) (goAccount.Account, bool) {
	a, ok := ctx.Value(accountContextKey{}).(goAccount.Account)
	return a, ok
}

// RequireRole must be mounted inside Guard. It reloads the account from the
// store, so a demotion or ban takes effect before the access token expires.
func RequireRole(accounts AccountSource, role goAccount.Role, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := AccountIDFromContext(r.Context())
			if !ok || accounts == nil {
				o.onError(w, r, goAccount.ErrUnauthorized)
				return
			}

			account, err := accounts.Account(r.Context(), id)
			switch {
			case errors.Is(err, goAccount.ErrAccountNotFound):
				o.onError(w, r, goAccount.ErrUnauthorized)
				return
			case err != nil:
				o.onError(w, r, err)
				return
			}

			if account.Role != role || !account.Status.Active() {
				o.onError(w, r, goAccount.ErrForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey{}, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
