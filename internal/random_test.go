package internal

import (
	"bytes"
	"errors"
	"testing"
)

func TestNewNumericCodeBounds(t *testing.T) {
	for n := MinCodeLength; n <= MaxCodeLength; n++ {
		lo, hi, err := CodeBounds(n)
		if err != nil {
			t.Fatalf("CodeBounds(%d) failed: %v", n, err)
		}
		for i := 0; i < 200; i++ {
			code, err := NewNumericCode(n)
			if err != nil {
				t.Fatalf("NewNumericCode(%d) failed: %v", n, err)
			}
			if code < lo || code > hi {
				t.Fatalf("code %d outside [%d, %d]", code, lo, hi)
			}
		}
	}
}

func TestNewNumericCodeRejectsLength(t *testing.T) {
	for _, n := range []int{-1, 0, 5, 11, 20} {
		if _, err := NewNumericCode(n); !errors.Is(err, ErrCodeLength) {
			t.Fatalf("length %d: expected ErrCodeLength, got %v", n, err)
		}
	}
}

func TestNewNumericCodeInclusiveBounds(t *testing.T) {
	lo, hi, _ := CodeBounds(6)

	// rand.Int reads three bytes for a 900000-wide range; all zero bytes map to
	// the lower bound and 0x0dbb9f (899999) maps to the upper bound.
	code, err := newNumericCode(bytes.NewReader([]byte{0, 0, 0}), 6)
	if err != nil {
		t.Fatalf("newNumericCode failed: %v", err)
	}
	if code != lo {
		t.Fatalf("expected %d, got %d", lo, code)
	}

	code, err = newNumericCode(bytes.NewReader([]byte{0x0d, 0xbb, 0x9f}), 6)
	if err != nil {
		t.Fatalf("newNumericCode failed: %v", err)
	}
	if code != hi {
		t.Fatalf("expected %d, got %d", hi, code)
	}
}

func TestTokenID(t *testing.T) {
	a := TokenID("sig")
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != TokenID("sig") {
		t.Fatal("expected deterministic id")
	}
	if a == TokenID("other") {
		t.Fatal("expected distinct ids")
	}
}
