package hash

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	keyLen     = 32
	iterations = 100000
)

// HashPassword derives a key from the password with a fresh random salt and
// returns base64(salt || key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)

	combined := make([]byte, 0, saltLen+keyLen)
	combined = append(combined, salt...)
	combined = append(combined, key...)

	return base64.StdEncoding.EncodeToString(combined), nil
}

// CheckPassword re-derives the key with the stored salt and compares in
// constant time. A malformed stored hash counts as a mismatch, never an error.
func CheckPassword(encoded, password string) bool {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	if len(combined) != saltLen+keyLen {
		return false
	}

	salt, stored := combined[:saltLen], combined[saltLen:]
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)

	return subtle.ConstantTimeCompare(key, stored) == 1
}
