package vendoradapter

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 10
	bcryptInputLimit = 72
)

// ErrServiceKeyMismatch is returned by Init when the adapter was configured
// with an expected service-key hash and the key handed to Init does not
// match it — a misconfigured operator typo is caught before it is ever
// sent to the vendor session.
var ErrServiceKeyMismatch = errors.New("vendoradapter: service key does not match configured hash")

// HashServiceKey produces a bcrypt hash of key suitable for storing in
// configuration in place of the plaintext key (VENDOR_SERVICE_KEY_HASH).
// Keys longer than bcrypt's 72-byte input limit are pre-hashed with
// SHA-256, matching CompareServiceKey's preparation.
func HashServiceKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("vendoradapter: empty service key")
	}

	hash, err := bcrypt.GenerateFromPassword(prepareServiceKey(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("vendoradapter: hashing service key: %w", err)
	}

	return string(hash), nil
}

// CompareServiceKey reports whether key matches the bcrypt hash produced
// by HashServiceKey, in constant time.
func CompareServiceKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), prepareServiceKey(key)) == nil
}

func prepareServiceKey(key string) []byte {
	if len(key) <= bcryptInputLimit {
		return []byte(key)
	}

	sum := sha256.Sum256([]byte(key))

	return sum[:]
}
