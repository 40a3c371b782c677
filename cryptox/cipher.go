package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// KeyLength is the AES-256 key size every secret is normalized to.
	KeyLength = 32
	// IVLength is the CBC initialization vector size.
	IVLength = aes.BlockSize
)

var (
	// ErrEncryption wraps any failure while sealing a payload.
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption wraps any failure while opening an EncryptedBlob.
	ErrDecryption = errors.New("decryption failed")
	// ErrWeakKey is returned when RequireFullKey is set and a secret is shorter than KeyLength.
	ErrWeakKey = errors.New("encryption key shorter than 32 bytes")
	// ErrInvalidIVSource is returned when a configured fixed IV is shorter than IVLength.
	ErrInvalidIVSource = errors.New("fixed iv source shorter than 16 bytes")
)

// EncryptedBlob is the serialized output of Cipher.Encrypt. Both fields are hex.
type EncryptedBlob struct {
	IV   string `json:"iv"`
	Data string `json:"encryptedData"`
}

// Config controls IV and key policy.
type Config struct {
	// FixedIV, when non-empty, supplies the IV for every call (first 16 bytes).
	// Empty means a fresh random IV per Encrypt.
	FixedIV string
	// RequireFullKey rejects secrets shorter than KeyLength instead of zero-padding them.
	RequireFullKey bool
}

// Cipher seals JSON-serializable values with AES-256-CBC.
//
// Cipher is immutable after construction and safe for concurrent use.
type Cipher struct {
	fixedIV        []byte
	requireFullKey bool
	random         io.Reader
}

// NewCipher validates cfg and returns a Cipher.
func NewCipher(cfg Config) (*Cipher, error) {
	c := &Cipher{
		requireFullKey: cfg.RequireFullKey,
		random:         rand.Reader,
	}
	if cfg.FixedIV != "" {
		raw := []byte(cfg.FixedIV)
		if len(raw) < IVLength {
			return nil, ErrInvalidIVSource
		}
		c.fixedIV = append([]byte(nil), raw[:IVLength]...)
	}
	return c, nil
}

// FixedIV reports whether the cipher reuses a configured IV.
func (c *Cipher) FixedIV() bool {
	return c != nil && len(c.fixedIV) == IVLength
}

// PadKey returns the UTF-8 bytes of key zero-padded or truncated to KeyLength.
func PadKey(key string) []byte {
	out := make([]byte, KeyLength)
	copy(out, key)
	return out
}

func (c *Cipher) key(secret string) ([]byte, error) {
	if c.requireFullKey && len(secret) < KeyLength {
		return nil, ErrWeakKey
	}
	return PadKey(secret), nil
}

func (c *Cipher) iv() ([]byte, error) {
	if len(c.fixedIV) == IVLength {
		return append([]byte(nil), c.fixedIV...), nil
	}
	iv := make([]byte, IVLength)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// Encrypt JSON-encodes value and seals it under secret.
func (c *Cipher) Encrypt(value any, secret string) (EncryptedBlob, error) {
	if c == nil {
		return EncryptedBlob{}, fmt.Errorf("%w: nil cipher", ErrEncryption)
	}
	plaintext, err := json.Marshal(value)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	key, err := c.key(secret)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	iv, err := c.iv()
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	sealed := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed, padded)

	return EncryptedBlob{
		IV:   hex.EncodeToString(iv),
		Data: hex.EncodeToString(sealed),
	}, nil
}

// Decrypt opens blob under secret and JSON-decodes the plaintext into out.
func (c *Cipher) Decrypt(blob EncryptedBlob, secret string, out any) error {
	if c == nil {
		return fmt.Errorf("%w: nil cipher", ErrDecryption)
	}
	key, err := c.key(secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	iv, err := hex.DecodeString(blob.IV)
	if err != nil {
		return fmt.Errorf("%w: invalid iv encoding", ErrDecryption)
	}
	if len(iv) != IVLength {
		return fmt.Errorf("%w: invalid iv length %d", ErrDecryption, len(iv))
	}
	sealed, err := hex.DecodeString(blob.Data)
	if err != nil {
		return fmt.Errorf("%w: invalid ciphertext encoding", ErrDecryption)
	}
	if len(sealed) == 0 || len(sealed)%aes.BlockSize != 0 {
		return fmt.Errorf("%w: invalid ciphertext length %d", ErrDecryption, len(sealed))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	plain := make([]byte, len(sealed))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, sealed)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("bad decrypt")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("bad decrypt")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("bad decrypt")
		}
	}
	return data[:len(data)-n], nil
}
