package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goAccount/internal/domain"
)

type CookiePolicy struct {
	Name             string
	Path             string
	Domain           string
	Secure           bool
	SameSite         http.SameSite
	RememberMeMaxAge time.Duration
}

type IssueSessionMetrics struct {
	Issued     int
	Remembered int
	Failure    int
}

type IssueSessionEvents struct {
	SessionIssue string
}

type IssueSessionErrors struct {
	EngineNotReady  error
	SessionIssuance error
}

type IssueSessionDeps struct {
	Now           func() time.Time
	Cookie        CookiePolicy
	RememberMeTTL time.Duration

	CreateAccessToken func(string) (string, error)
	PutSession        func(context.Context, string, []byte, time.Duration) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics IssueSessionMetrics
	Events  IssueSessionEvents
	Errors  IssueSessionErrors
}

// RunIssueSession signs an access token for account and wraps it in a cookie.
// With rememberMe the profile is cached under the account id and the cookie
// becomes persistent; a cache failure fails the whole issuance.
func RunIssueSession(ctx context.Context, account domain.Account, rememberMe bool, deps IssueSessionDeps) (*domain.Session, error) {
	normalizeIssueSessionDeps(&deps)

	if deps.CreateAccessToken == nil || (rememberMe && deps.PutSession == nil) {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(err error) (*domain.Session, error) {
		wrapped := fmt.Errorf("%w: %v", deps.Errors.SessionIssuance, err)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.SessionIssue, false, account.ID, wrapped, nil)
		return nil, wrapped
	}

	if account.ID == "" {
		return fail(errors.New("account id is required"))
	}

	profile := account.Profile()

	token, err := deps.CreateAccessToken(account.ID)
	if err != nil {
		return fail(err)
	}

	cookie := &http.Cookie{
		Name:     deps.Cookie.Name,
		Value:    token,
		Path:     deps.Cookie.Path,
		Domain:   deps.Cookie.Domain,
		HttpOnly: true,
		Secure:   deps.Cookie.Secure,
		SameSite: deps.Cookie.SameSite,
	}

	if rememberMe {
		cookie.Expires = deps.Now().Add(deps.Cookie.RememberMeMaxAge)
		cookie.MaxAge = int(deps.Cookie.RememberMeMaxAge / time.Second)

		data, err := json.Marshal(profile)
		if err != nil {
			return fail(err)
		}
		if err := deps.PutSession(ctx, account.ID, data, deps.RememberMeTTL); err != nil {
			return fail(err)
		}
		deps.MetricInc(deps.Metrics.Remembered)
	}

	deps.MetricInc(deps.Metrics.Issued)
	deps.EmitAudit(ctx, deps.Events.SessionIssue, true, account.ID, nil, func() map[string]string {
		if rememberMe {
			return map[string]string{"remember_me": "true"}
		}
		return map[string]string{"remember_me": "false"}
	})

	return &domain.Session{
		AccessToken: token,
		Cookie:      cookie,
		Profile:     profile,
		RememberMe:  rememberMe,
	}, nil
}

func normalizeIssueSessionDeps(deps *IssueSessionDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Cookie.Path == "" {
		deps.Cookie.Path = "/"
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
