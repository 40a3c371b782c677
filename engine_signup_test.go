package goAccount

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

func TestSignupVerifyCreatesVerifiedAccount(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{
		FirstName: "ada",
		LastName:  "lovelace",
		Email:     " Ada@Example.com ",
		Password:  "hunter2-hunter2",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if !res.ExpiresAt.Equal(f.clock.Now().Add(3 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", res.ExpiresAt)
	}
	if f.store.count() != 0 {
		t.Fatal("signup must not persist anything")
	}

	msg := f.mailer.last(t)
	if msg.To != "ada@example.com" || msg.Name != "Ada" || len(msg.Code) != 6 {
		t.Fatalf("unexpected message %+v", msg)
	}

	parts := strings.Split(res.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected compact JWT, got %q", res.Token)
	}
	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	if strings.Contains(string(body), "hunter2") {
		t.Fatal("token claims must not carry the password in clear")
	}

	acc, err := f.engine.VerifyAccount(ctx, res.Token, msg.Code)
	if err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if !acc.IsVerified || acc.Role != RoleUser {
		t.Fatalf("unexpected account %+v", acc)
	}
	if acc.FirstName != "Ada" || acc.LastName != "Lovelace" || acc.Email != "ada@example.com" {
		t.Fatalf("unexpected normalized fields %+v", acc)
	}
	if !strings.HasPrefix(acc.PasswordHash, "$argon2id$") || strings.Contains(acc.PasswordHash, "hunter2") {
		t.Fatalf("expected argon2id hash, got %q", acc.PasswordHash)
	}
	if acc.Profile().FullName != "Ada Lovelace" {
		t.Fatalf("unexpected full name %q", acc.Profile().FullName)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected one account, got %d", f.store.count())
	}
}

func TestVerifyExpiredTokenCreatesNothing(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := f.mailer.last(t).Code

	f.clock.Advance(3*time.Minute + time.Second)

	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if f.store.count() != 0 {
		t.Fatal("expired token must not create an account")
	}
}

func TestVerifyWrongCodeThenRightCode(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := f.mailer.last(t).Code
	wrong := "1" + code[1:]
	if wrong == code {
		wrong = "2" + code[1:]
	}

	if _, err := f.engine.VerifyAccount(ctx, res.Token, wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	if _, err := f.engine.VerifyAccount(ctx, res.Token, " "+code+" "); err != nil {
		t.Fatalf("correct code after a miss must succeed: %v", err)
	}
}

func TestVerifyReplayRejected(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := f.mailer.last(t).Code

	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); !errors.Is(err, ErrTokenReplayed) {
		t.Fatalf("expected ErrTokenReplayed, got %v", err)
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricVerifyReplay]; got != 1 {
		t.Fatalf("expected one replay metric, got %d", got)
	}
}

func TestVerifyRejectsRespelledToken(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := f.mailer.last(t).Code

	// Flip an unused low bit of the final base64url character.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, res.Token[len(res.Token)-1])
	alt := res.Token[:len(res.Token)-1] + string(alphabet[last^1])

	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if _, err := f.engine.VerifyAccount(ctx, alt, code); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected one account, got %d", f.store.count())
	}
}

func TestVerifyWithoutSingleUseFallsBackToDuplicateCheck(t *testing.T) {
	f := newEngineFixture(t, func(c *Config) { c.Activation.SingleUse = false })
	ctx := context.Background()

	res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := f.mailer.last(t).Code

	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if _, err := f.engine.VerifyAccount(ctx, res.Token, code); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestConcurrentSignupsCreateOneAccount(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	var tokens []string
	var codes []string
	for i := 0; i < 2; i++ {
		res, err := f.engine.Signup(ctx, SignupRequest{FirstName: "a", LastName: "b", Email: "race@example.com", Password: "pw"})
		if err != nil {
			t.Fatalf("Signup %d failed: %v", i, err)
		}
		tokens = append(tokens, res.Token)
		codes = append(codes, f.mailer.last(t).Code)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range tokens {
		wg.Go(func() {
			_, errs[i] = f.engine.VerifyAccount(ctx, tokens[i], codes[i])
		})
	}
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("expected one success and one duplicate, got ok=%d dup=%d", ok, dup)
	}
	if f.store.count() != 1 {
		t.Fatalf("expected one account, got %d", f.store.count())
	}
}

func TestSignupRejectsExistingEmail(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.signupAndVerify(t, "taken@example.com", "pw")
	sent := len(f.mailer.sent)

	_, err := f.engine.Signup(context.Background(), SignupRequest{FirstName: "x", LastName: "y", Email: "TAKEN@example.com", Password: "pw"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if len(f.mailer.sent) != sent {
		t.Fatal("no email may be sent for a taken address")
	}
}

func TestSignupValidation(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.Signup(context.Background(), SignupRequest{FirstName: "a", Email: "not-an-email"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	for _, field := range []string{"lname", "email", "password"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("expected field %q in %v", field, verr.Fields)
		}
	}
	if _, ok := verr.Fields["fname"]; ok {
		t.Fatal("fname was provided")
	}

	if _, err := f.engine.VerifyAccount(context.Background(), "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty verify, got %v", err)
	}
}

func TestSignupRequestValidateTrims(t *testing.T) {
	tests := []struct {
		name  string
		req   SignupRequest
		field string
	}{
		{name: "padded email", req: SignupRequest{FirstName: "Ada", LastName: "L", Email: "  ada@example.com\t", Password: "pw"}},
		{name: "blank first name", req: SignupRequest{FirstName: "   ", LastName: "L", Email: "ada@example.com", Password: "pw"}, field: "fname"},
		{name: "padded bad email", req: SignupRequest{FirstName: "Ada", LastName: "L", Email: " ada@ ", Password: "pw"}, field: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var fieldErrs validation.Errors
			if !errors.As(err, &fieldErrs) || fieldErrs[tt.field] == nil {
				t.Fatalf("expected %s error, got %v", tt.field, err)
			}
		})
	}
}

func TestSignupDispatchFailure(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.mailer.err = errBoom

	_, err := f.engine.Signup(context.Background(), SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if !errors.Is(err, ErrDispatch) {
		t.Fatalf("expected ErrDispatch, got %v", err)
	}
	if got := f.engine.MetricsSnapshot().Counters[MetricSignupDispatchFailure]; got != 1 {
		t.Fatalf("expected dispatch failure metric, got %d", got)
	}
}

func TestSignupStoreUnavailable(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.store.failFind = errBoom

	_, err := f.engine.Signup(context.Background(), SignupRequest{FirstName: "a", LastName: "b", Email: "a@b.co", Password: "pw"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCapitalizeName(t *testing.T) {
	cases := map[string]string{
		"ada":      "Ada",
		"mcDonald": "McDonald",
		"mary ann": "Mary Ann",
		"":         "",
		"élodie":   "Élodie",
	}
	for in, want := range cases {
		if got := capitalizeName(in); got != want {
			t.Fatalf("capitalizeName(%q)=%q want %q", in, got, want)
		}
	}
}
