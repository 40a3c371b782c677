package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("activation-secret-activation-secret")

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = testSecret
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Minute
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{Secret: testSecret}},
		{"empty secret", Config{TTL: time.Minute}},
		{"negative leeway", Config{Secret: testSecret, TTL: time.Minute, Leeway: -time.Second}},
		{"unknown method", Config{Secret: testSecret, TTL: time.Minute, SigningMethod: "rs256"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestAccessRoundTrip(t *testing.T) {
	for _, method := range []SigningMethod{MethodHS256, MethodHS384, MethodHS512} {
		m := newTestManager(t, Config{SigningMethod: method, Issuer: "goaccount"})

		token, err := m.CreateAccess("acct-1")
		if err != nil {
			t.Fatalf("create access: %v", err)
		}
		claims, err := m.ParseAccess(token)
		if err != nil {
			t.Fatalf("parse access: %v", err)
		}
		if claims.ID != "acct-1" {
			t.Fatalf("expected id acct-1, got %q", claims.ID)
		}
		if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Minute {
			t.Fatalf("expected 1m lifetime, got %s", got)
		}
	}
}

func TestCreateAccessRejectsEmptyID(t *testing.T) {
	m := newTestManager(t, Config{})
	if _, err := m.CreateAccess(""); err == nil {
		t.Fatal("expected empty id to fail")
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	a := newTestManager(t, Config{})
	b := newTestManager(t, Config{Secret: []byte("another-secret")})

	token, err := a.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := b.ParseAccess(token); err == nil {
		t.Fatal("expected foreign signature to be rejected")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t, Config{SigningMethod: MethodHS256})

	claims := AccessClaims{ID: "acct-1", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected algorithm mismatch to fail")
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.ParseAccess(none); err == nil {
		t.Fatal("expected alg=none to fail")
	}
}

func TestParseRequiresExpiry(t *testing.T) {
	m := newTestManager(t, Config{})
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, AccessClaims{ID: "acct-1"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestActivationRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := newTestManager(t, Config{TTL: 3 * time.Minute, Now: clock})

	payload := json.RawMessage(`{"email":"jane@x.com"}`)
	otp := json.RawMessage(`{"iv":"00","encryptedData":"ff"}`)

	token, exp, err := m.CreateActivation(payload, otp, 0)
	if err != nil {
		t.Fatalf("create activation: %v", err)
	}
	if !exp.Equal(now.Add(3 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", exp)
	}

	claims, err := m.ParseActivation(token)
	if err != nil {
		t.Fatalf("parse activation: %v", err)
	}
	if string(claims.Payload) != string(payload) || string(claims.EncryptedOTP) != string(otp) {
		t.Fatalf("claims mismatch: %s %s", claims.Payload, claims.EncryptedOTP)
	}

	now = now.Add(3*time.Minute + time.Second)
	if _, err := m.ParseActivation(token); err == nil {
		t.Fatal("expected expired activation token to fail")
	}
}

func TestActivationCustomTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, Config{TTL: 3 * time.Minute, Now: func() time.Time { return now }})

	_, exp, err := m.CreateActivation(json.RawMessage(`1`), json.RawMessage(`2`), 10*time.Minute)
	if err != nil {
		t.Fatalf("create activation: %v", err)
	}
	if !exp.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("expected custom ttl, got %s", exp)
	}
}

func TestParseActivationRejectsAccessToken(t *testing.T) {
	m := newTestManager(t, Config{})
	access, err := m.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseActivation(access); err == nil {
		t.Fatal("expected access token to be rejected as activation token")
	}
}

// respellSignature flips an unused low bit of the last signature character.
// Lenient base64 decodes both spellings to the same bytes.
func respellSignature(token string) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	i := strings.IndexByte(alphabet, token[len(token)-1])
	return token[:len(token)-1] + string(alphabet[i^1])
}

func TestParseRejectsNonCanonicalSignature(t *testing.T) {
	m := newTestManager(t, Config{})
	token, _, err := m.CreateActivation(json.RawMessage(`{}`), json.RawMessage(`{}`), 0)
	if err != nil {
		t.Fatalf("create activation: %v", err)
	}
	alt := respellSignature(token)

	orig, err := base64.RawURLEncoding.DecodeString(Signature(token))
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	same, err := base64.RawURLEncoding.DecodeString(Signature(alt))
	if err != nil || !bytes.Equal(orig, same) {
		t.Fatalf("respelled signature must decode leniently to the same bytes: %v", err)
	}

	if _, err := m.ParseActivation(token); err != nil {
		t.Fatalf("parse canonical token: %v", err)
	}
	if _, err := m.ParseActivation(alt); err == nil {
		t.Fatal("expected non-canonical signature to be rejected")
	}
}

func TestSignature(t *testing.T) {
	if got := Signature("a.b.c"); got != "c" {
		t.Fatalf("expected c, got %q", got)
	}
	for _, bad := range []string{"", "abc", "a.b", "a.b.c.d"} {
		if got := Signature(bad); got != "" {
			t.Fatalf("expected empty signature for %q, got %q", bad, got)
		}
	}
}
