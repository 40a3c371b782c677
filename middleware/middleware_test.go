package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
)

type stubAuth struct {
	id  string
	err error
}

func (s stubAuth) AuthenticateRequest(*http.Request) (string, error) { return s.id, s.err }

type stubAccounts map[string]goAccount.Account

func (s stubAccounts) Account(_ context.Context, id string) (goAccount.Account, error) {
	a, ok := s[id]
	if !ok {
		return goAccount.Account{}, goAccount.ErrAccountNotFound
	}
	return a, nil
}

func echoID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := AccountIDFromContext(r.Context())
		_, _ = w.Write([]byte(id))
	})
}

func serve(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestGuardInjectsAccountID(t *testing.T) {
	rec := serve(Guard(stubAuth{id: "acc-1"})(echoID()))
	if rec.Code != http.StatusOK || rec.Body.String() != "acc-1" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestGuardRejects(t *testing.T) {
	rec := serve(Guard(stubAuth{err: errors.New("bad token")})(echoID()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = serve(Guard(nil)(echoID()))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without an authenticator, got %d", rec.Code)
	}
}

func TestGuardCustomErrorHandler(t *testing.T) {
	var got error
	h := Guard(stubAuth{err: errors.New("x")}, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))(echoID())

	rec := serve(h)
	if rec.Code != http.StatusTeapot || !errors.Is(got, goAccount.ErrUnauthorized) {
		t.Fatalf("unexpected %d %v", rec.Code, got)
	}
}

func TestRequireRole(t *testing.T) {
	accounts := stubAccounts{
		"admin":  {ID: "admin", Role: goAccount.RoleAdmin},
		"user":   {ID: "user", Role: goAccount.RoleUser},
		"banned": {ID: "banned", Role: goAccount.RoleAdmin, Status: goAccount.AccountStatus{Banned: goAccount.BanState{IsBanned: true}}},
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := AccountFromContext(r.Context())
		if !ok {
			t.Error("expected account in context")
		}
		_, _ = w.Write([]byte(a.ID))
	})

	cases := []struct {
		id     string
		status int
	}{
		{"admin", http.StatusOK},
		{"user", http.StatusForbidden},
		{"banned", http.StatusForbidden},
		{"ghost", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			h := Guard(stubAuth{id: tc.id})(RequireRole(accounts, goAccount.RoleAdmin)(inner))
			if rec := serve(h); rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestRequireRoleWithoutGuard(t *testing.T) {
	rec := serve(RequireRole(stubAccounts{}, goAccount.RoleAdmin)(echoID()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
