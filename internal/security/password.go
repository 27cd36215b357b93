package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxInput = 72

// HashPassword hashes password with the application pepper appended.
func HashPassword(password, pepper string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password+pepper), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks password against hash. Hashes created before the
// pepper was introduced are still accepted.
func VerifyPassword(password, hash, pepper string) bool {
	if bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password+pepper)) == nil {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

// bcryptInput truncates to the 72 byte window other bcrypt implementations
// silently apply, so existing hashes keep verifying.
func bcryptInput(s string) []byte {
	b := []byte(s)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}
