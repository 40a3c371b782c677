package password

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrConfiguration is returned for unusable scheme parameters.
	ErrConfiguration = errors.New("password hasher configuration invalid")
)

// Scheme is one hash encoding the Hasher can verify.
type Scheme interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsUpgrade(encoded string) (bool, error)
	Owns(encoded string) bool
}

// Hasher produces new hashes with its primary scheme and verifies hashes of
// every registered scheme.
type Hasher struct {
	primary Scheme
	legacy  []Scheme
}

// NewHasher returns a Hasher that hashes with primary and additionally
// accepts hashes produced by any legacy scheme.
func NewHasher(primary Scheme, legacy ...Scheme) (*Hasher, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: primary scheme is required", ErrConfiguration)
	}
	return &Hasher{primary: primary, legacy: legacy}, nil
}

// Hash encodes password with the primary scheme.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return h.primary.Hash(password)
}

// Verify checks password against encoded. rehash is true when the match
// succeeded but encoded should be replaced by a fresh primary hash.
func (h *Hasher) Verify(password, encoded string) (ok bool, rehash bool, err error) {
	scheme := h.schemeFor(encoded)
	if scheme == nil {
		return false, false, fmt.Errorf("%w: unrecognized hash prefix", ErrMalformedHash)
	}

	ok, err = scheme.Verify(password, encoded)
	if err != nil || !ok {
		return false, false, err
	}

	if scheme != h.primary {
		return true, true, nil
	}
	rehash, err = scheme.NeedsUpgrade(encoded)
	if err != nil {
		return true, false, nil
	}
	return true, rehash, nil
}

func (h *Hasher) schemeFor(encoded string) Scheme {
	if h.primary.Owns(encoded) {
		return h.primary
	}
	for _, s := range h.legacy {
		if s.Owns(encoded) {
			return s
		}
	}
	return nil
}
