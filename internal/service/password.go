package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. Changing them invalidates every stored hash.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 16
)

// PasswordHasher derives and verifies scrypt password hashes stored as
// "hex(salt):hex(key)". The hex-encoded salt string, not the raw bytes, is
// the KDF salt.
type PasswordHasher struct {
	rand io.Reader
}

// NewPasswordHasher returns a hasher drawing salts from crypto/rand.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{rand: rand.Reader}
}

// Hash returns a fresh salted hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	key, err := derive(password, saltHex)
	if err != nil {
		return "", err
	}
	return saltHex + ":" + hex.EncodeToString(key), nil
}

// Verify reports whether password matches stored. A malformed stored value
// is a mismatch, not an error; only a KDF failure returns an error.
func (h *PasswordHasher) Verify(password, stored string) (bool, error) {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok || saltHex == "" || keyHex == "" {
		return false, nil
	}
	if _, err := hex.DecodeString(saltHex); err != nil {
		return false, nil
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, nil
	}

	got, err := derive(password, saltHex)
	if err != nil {
		return false, err
	}
	if len(got) != len(want) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func derive(password, saltHex string) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), []byte(saltHex), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}
