//go:build !wasm
// +build !wasm

package datastore

import (
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/panyam/authcore"
)

// Kind constants for Datastore entities
const (
	KindUser              = "User"
	KindAccount           = "Account"
	KindSession           = "Session"
	KindVerificationToken = "VerificationToken"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key           *datastore.Key `datastore:"__key__"`
	Name          string         `datastore:"name,noindex"`
	Email         string         `datastore:"email,noindex"`
	EmailKey      string         `datastore:"email_key"` // lower-cased Email
	EmailVerified time.Time      `datastore:"email_verified,noindex"` // zero when unverified
	Image         string         `datastore:"image,noindex"`
	CreatedAt     time.Time      `datastore:"created_at"`
	UpdatedAt     time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *authcore.User {
	u := &authcore.User{
		ID:    e.Key.Name,
		Name:  e.Name,
		Email: e.Email,
		Image: e.Image,
	}
	if !e.EmailVerified.IsZero() {
		t := e.EmailVerified
		u.EmailVerified = &t
	}
	return u
}

func UserToEntity(u *authcore.User, key *datastore.Key) *UserEntity {
	e := &UserEntity{
		Key:      key,
		Name:     u.Name,
		Email:    u.Email,
		EmailKey: strings.ToLower(u.Email),
		Image:    u.Image,
	}
	if u.EmailVerified != nil {
		e.EmailVerified = *u.EmailVerified
	}
	return e
}

// AccountEntity is the Datastore entity for provider accounts
// Key format: Provider + ":" + ProviderAccountID
type AccountEntity struct {
	Key               *datastore.Key `datastore:"__key__"`
	UserID            string         `datastore:"user_id"`
	Type              string         `datastore:"type,noindex"`
	Provider          string         `datastore:"provider"`
	ProviderAccountID string         `datastore:"provider_account_id"`
	AccessToken       string         `datastore:"access_token,noindex"`
	RefreshToken      string         `datastore:"refresh_token,noindex"`
	ExpiresAt         int64          `datastore:"expires_at,noindex"`
	TokenType         string         `datastore:"token_type,noindex"`
	Scope             string         `datastore:"scope,noindex"`
	IDToken           string         `datastore:"id_token,noindex"`
	UpdatedAt         time.Time      `datastore:"updated_at"`
}

func (e *AccountEntity) ToAccount() *authcore.Account {
	return &authcore.Account{
		UserID:            e.UserID,
		Type:              authcore.AccountType(e.Type),
		Provider:          e.Provider,
		ProviderAccountID: e.ProviderAccountID,
		AccessToken:       e.AccessToken,
		RefreshToken:      e.RefreshToken,
		ExpiresAt:         e.ExpiresAt,
		TokenType:         e.TokenType,
		Scope:             e.Scope,
		IDToken:           e.IDToken,
	}
}

func AccountToEntity(a *authcore.Account, key *datastore.Key) *AccountEntity {
	return &AccountEntity{
		Key:               key,
		UserID:            a.UserID,
		Type:              string(a.Type),
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		ExpiresAt:         a.ExpiresAt,
		TokenType:         a.TokenType,
		Scope:             a.Scope,
		IDToken:           a.IDToken,
	}
}

// SessionEntity is the Datastore entity for sessions, keyed by token
type SessionEntity struct {
	Key     *datastore.Key `datastore:"__key__"`
	UserID  string         `datastore:"user_id"`
	Expires time.Time      `datastore:"expires"`
}

func (e *SessionEntity) ToSession() *authcore.Session {
	return &authcore.Session{
		SessionToken: e.Key.Name,
		UserID:       e.UserID,
		Expires:      e.Expires,
	}
}

// VerificationTokenEntity is the Datastore entity for email sign-in tokens
// Key format: Identifier + ":" + Token
type VerificationTokenEntity struct {
	Key        *datastore.Key `datastore:"__key__"`
	Identifier string         `datastore:"identifier"`
	Token      string         `datastore:"token,noindex"`
	Expires    time.Time      `datastore:"expires"`
}

func (e *VerificationTokenEntity) ToVerificationToken() *authcore.VerificationToken {
	return &authcore.VerificationToken{
		Identifier: e.Identifier,
		Token:      e.Token,
		Expires:    e.Expires,
	}
}
