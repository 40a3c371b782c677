package middleware

import (
	"context"
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
)

// Authenticator is satisfied by *goAccount.Engine.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (string, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures Guard and RequireRole.
type Option func(*options)

type options struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the default plain-text error response.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		if h != nil {
			o.onError = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, goAccount.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, goAccount.ErrForbidden), goAccount.IsAccountState(err):
		status = http.StatusForbidden
	}
	http.Error(w, http.StatusText(status), status)
}

type accountIDContextKey struct{}

// AccountIDFromContext returns the id stored by Guard.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDContextKey{}).(string)
	return id, ok && id != ""
}

// WithAccountID stores id the way Guard does. It is meant for tests and for
// callers that authenticate by other means.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDContextKey{}, id)
}

// Guard rejects requests without a valid access token.
func Guard(auth Authenticator, opts ...Option) func(http.Handler) http.Handler {
	o := buildOptions(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				o.onError(w, r, goAccount.ErrEngineNotReady)
				return
			}
			id, err := auth.AuthenticateRequest(r)
			if err != nil {
				o.onError(w, r, goAccount.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
		})
	}
}
