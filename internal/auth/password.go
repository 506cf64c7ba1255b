package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned for passwords under MinPasswordLength bytes.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ValidatePassword applies the account password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword hashes a plaintext password with the configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// NeedsRehash reports whether hashed was produced with a cost other than cost.
func NeedsRehash(hashed string, cost int) bool {
	current, err := bcrypt.Cost([]byte(hashed))
	return err != nil || current != cost
}
