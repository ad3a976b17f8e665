package library

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxLoginAttempts bounds the number of credential pairs read at login.
const MaxLoginAttempts = 3

// CredentialSource supplies one username/secret pair per login attempt.
// attempt counts from 1.
type CredentialSource interface {
	Credentials(attempt int) (name, secret string, err error)
}

// RejectionNotifier is implemented by credential sources that want to hear
// about failed attempts.
type RejectionNotifier interface {
	Rejected(attemptsLeft int)
}

// Authenticate matches credentials against users, first match wins. It
// gives up after MaxLoginAttempts or when src returns an error.
func Authenticate(users []*User, src CredentialSource) (*Session, error) {
	for attempt := 1; attempt <= MaxLoginAttempts; attempt++ {
		name, secret, err := src.Credentials(attempt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		for _, u := range users {
			if u.Name == name && CheckSecret(u.Secret, secret) {
				return &Session{User: u}, nil
			}
		}
		if n, ok := src.(RejectionNotifier); ok {
			n.Rejected(MaxLoginAttempts - attempt)
		}
	}
	return nil, ErrAuthFailed
}

// CheckSecret compares a supplied secret with the stored one. Stored bcrypt
// hashes are verified as such, anything else is compared verbatim.
func CheckSecret(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// HashSecret returns a bcrypt hash suitable for the users file.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
