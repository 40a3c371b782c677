package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) (*Hasher, *Argon2, *Bcrypt) {
	t.Helper()
	a := newTestArgon2(t, fastArgon2Config())
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	h, err := NewHasher(a, b)
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h, a, b
}

func TestHasherHashesWithPrimary(t *testing.T) {
	h, _, _ := newTestHasher(t)

	hash, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %s", hash)
	}

	ok, rehash, err := h.Verify("secret", hash)
	if err != nil || !ok || rehash {
		t.Fatalf("expected ok without rehash, got ok=%v rehash=%v err=%v", ok, rehash, err)
	}
}

func TestHasherRejectsEmptyPassword(t *testing.T) {
	h, _, _ := newTestHasher(t)
	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestHasherAcceptsLegacyBcrypt(t *testing.T) {
	h, _, b := newTestHasher(t)

	legacy, err := b.Hash("secret")
	if err != nil {
		t.Fatalf("bcrypt Hash failed: %v", err)
	}

	ok, rehash, err := h.Verify("secret", legacy)
	if err != nil || !ok || !rehash {
		t.Fatalf("expected ok with rehash, got ok=%v rehash=%v err=%v", ok, rehash, err)
	}

	ok, rehash, err = h.Verify("wrong", legacy)
	if err != nil || ok || rehash {
		t.Fatalf("expected mismatch, got ok=%v rehash=%v err=%v", ok, rehash, err)
	}
}

func TestHasherFlagsWeakArgon2(t *testing.T) {
	weak := newTestArgon2(t, fastArgon2Config())
	old, err := weak.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	cfg := fastArgon2Config()
	cfg.Time = 2
	h, err := NewHasher(newTestArgon2(t, cfg))
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	ok, rehash, err := h.Verify("secret", old)
	if err != nil || !ok || !rehash {
		t.Fatalf("expected ok with rehash, got ok=%v rehash=%v err=%v", ok, rehash, err)
	}
}

func TestHasherUnknownPrefix(t *testing.T) {
	h, _, _ := newTestHasher(t)
	if _, _, err := h.Verify("secret", "plaintext-secret"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestBcryptCostValidation(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	b, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt(0) failed: %v", err)
	}
	if b.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost, got %d", b.cost)
	}
	if _, err := NewHasher(nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
