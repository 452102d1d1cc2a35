// Package auth holds credential rules, password hashing, token generation and
// the request context helpers for the signed-in user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 150
	// bcrypt ignores input past 72 bytes; longer passwords are rejected.
	maxPasswordBytes = 72
)

var (
	ErrInvalidUsername    = errors.New("username should only contain alphanumeric characters")
	ErrUsernameTaken      = errors.New("sorry, username in use, choose another one")
	ErrInvalidEmail       = errors.New("email is invalid")
	ErrEmailTaken         = errors.New("sorry, email in use, choose another one")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	ErrInvalidCredentials = errors.New("invalid credentials, try again")
	ErrInactiveAccount    = errors.New("account is not active, please check your email")
	ErrInvalidToken       = errors.New("link is invalid or has expired")
	ErrUnauthenticated    = errors.New("authentication required")
)

// ValidateUsername accepts 1 to 150 letters or digits.
func ValidateUsername(username string) error {
	if username == "" || len([]rune(username)) > MaxUsernameLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}

// ValidateEmail accepts a bare address with a dotted domain, no display name.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	_, domain, ok := strings.Cut(email, "@")
	if !ok || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewToken returns an unguessable single-use token for emailed links.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

type ctxKey struct{}

// WithUser stores the signed-in user in ctx.
func WithUser(ctx context.Context, u core.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the signed-in user, if any.
func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(core.User)
	return u, ok
}
