package authcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/panyam/authcore/providers"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced by HashPassword.
const MinPasswordLength = 8

// PasswordRecord is a stored login: who it belongs to and the bcrypt hash
// of their password.
type PasswordRecord struct {
	Profile      *providers.Profile
	PasswordHash string
}

// PasswordLookup finds the record for a login name. usernameType is
// "email", "phone" or "username". A nil record means no such login.
type PasswordLookup func(ctx context.Context, username, usernameType string) (*PasswordRecord, error)

// HashPassword returns the bcrypt hash to store for password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// NewPasswordAuthorizer builds a Credentials provider's Authorize from a
// lookup. Unknown logins and wrong passwords are both plain rejections, so
// callers cannot tell them apart.
func NewPasswordAuthorizer(lookup PasswordLookup) providers.AuthorizeFunc {
	return func(ctx context.Context, creds map[string]string) (*providers.Profile, error) {
		username := strings.TrimSpace(creds["username"])
		password := creds["password"]
		if username == "" || password == "" {
			return nil, nil
		}
		rec, err := lookup(ctx, username, DetectUsernameType(username))
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", username, err)
		}
		if rec == nil || rec.Profile == nil {
			return nil, nil
		}
		if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
			return nil, nil
		}
		return rec.Profile, nil
	}
}

// DetectUsernameType guesses what kind of login name was typed.
func DetectUsernameType(username string) string {
	if strings.Contains(username, "@") {
		return "email"
	}
	if len(username) > 0 && (username[0] == '+' || (username[0] >= '0' && username[0] <= '9')) {
		return "phone"
	}
	return "username"
}
