package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret returns a one-way bcrypt hash of raw with a per-call random
// salt embedded in the output. Used for both passwords and raw API keys.
func HashSecret(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether raw hashes to digest under the salt and cost
// embedded in digest. A mismatch is an ordinary false, never an error.
func VerifySecret(raw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}
