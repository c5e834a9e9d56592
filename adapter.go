package authcore

import (
	"context"
	"time"
)

// AccountType tags how an account authenticates.
type AccountType string

const (
	AccountOAuth       AccountType = "oauth"
	AccountOIDC        AccountType = "oidc"
	AccountEmail       AccountType = "email"
	AccountCredentials AccountType = "credentials"
	AccountWebAuthn    AccountType = "webauthn"
)

// User is a person known to the application.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	Image         string     `json:"image,omitempty"`
}

// Account links a user to one identity at one provider. The pair
// (Provider, ProviderAccountID) is unique.
type Account struct {
	UserID            string      `json:"user_id"`
	Type              AccountType `json:"type"`
	Provider          string      `json:"provider"`
	ProviderAccountID string      `json:"provider_account_id"`
	AccessToken       string      `json:"access_token,omitempty"`
	RefreshToken      string      `json:"refresh_token,omitempty"`
	ExpiresAt         int64       `json:"expires_at,omitempty"` // unix seconds
	TokenType         string      `json:"token_type,omitempty"`
	Scope             string      `json:"scope,omitempty"`
	IDToken           string      `json:"id_token,omitempty"`
}

// Session is a database-backed session. Its token is what the session
// cookie carries.
type Session struct {
	SessionToken string    `json:"session_token"`
	UserID       string    `json:"user_id"`
	Expires      time.Time `json:"expires"`
}

// IsExpired reports whether the session has passed its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// VerificationToken is a single-use email sign-in token. Token holds the
// hashed form.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"token"`
	Expires    time.Time `json:"expires"`
}

//go:generate mockgen -source=adapter.go -destination=mocks/adapter_mock.go -package=mocks

// Adapter persists users, accounts, sessions and verification tokens. The
// engine never stores anything itself.
//
// Lookups return (nil, nil) when nothing matches; an error always means the
// backend failed. Any error is reported to the caller as AdapterError.
type Adapter interface {
	// CreateUser stores a new user. Implementations assign ID when it is empty.
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*User, error)

	// UpdateUser applies the non-zero fields of user to the stored user.
	UpdateUser(ctx context.Context, user *User) (*User, error)

	// LinkAccount attaches an account to account.UserID. Linking a pair that
	// already exists overwrites it.
	LinkAccount(ctx context.Context, account *Account) error
	UnlinkAccount(ctx context.Context, provider, providerAccountID string) error

	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSessionAndUser(ctx context.Context, sessionToken string) (*Session, *User, error)
	UpdateSession(ctx context.Context, session *Session) (*Session, error)

	// DeleteSession removes a session. Deleting a missing session is not an
	// error.
	DeleteSession(ctx context.Context, sessionToken string) error

	CreateVerificationToken(ctx context.Context, token *VerificationToken) error

	// UseVerificationToken returns and deletes the matching token, so a token
	// can be used once.
	UseVerificationToken(ctx context.Context, identifier, token string) (*VerificationToken, error)
}
