package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
)

const (
	MinCodeLength = 6
	MaxCodeLength = 10
)

// ErrCodeLength is returned for code lengths outside [MinCodeLength, MaxCodeLength].
var ErrCodeLength = errors.New("otp length must be between 6 and 10 digits")

var pow10 = [...]int64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000,
	100_000_000, 1_000_000_000, 10_000_000_000,
}

// CodeBounds returns the inclusive range of codes with exactly length digits.
func CodeBounds(length int) (int64, int64, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return 0, 0, ErrCodeLength
	}
	return pow10[length-1], pow10[length] - 1, nil
}

// NewNumericCode draws a uniformly random code in [10^(length-1), 10^length-1].
func NewNumericCode(length int) (int64, error) {
	return newNumericCode(rand.Reader, length)
}

func newNumericCode(r io.Reader, length int) (int64, error) {
	lo, hi, err := CodeBounds(length)
	if err != nil {
		return 0, err
	}
	n, err := rand.Int(r, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, err
	}
	return lo + n.Int64(), nil
}

// TokenID derives a stable, fixed-length identifier from a token signature.
func TokenID(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:])
}
