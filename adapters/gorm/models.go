//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"github.com/panyam/authcore"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID            string  `gorm:"primaryKey;size:64"`
	Name          string  `gorm:"size:255"`
	Email         *string `gorm:"size:320;uniqueIndex"`
	EmailVerified *time.Time
	Image         string    `gorm:"size:1024"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *authcore.User {
	u := &authcore.User{
		ID:            m.ID,
		Name:          m.Name,
		EmailVerified: m.EmailVerified,
		Image:         m.Image,
	}
	if m.Email != nil {
		u.Email = *m.Email
	}
	return u
}

// UserToModel maps an empty email to NULL so the unique index only covers
// users that have one.
func UserToModel(u *authcore.User) *UserModel {
	m := &UserModel{
		ID:            u.ID,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
	}
	if u.Email != "" {
		email := u.Email
		m.Email = &email
	}
	return m
}

// AccountModel is the GORM model for provider accounts
type AccountModel struct {
	Provider          string `gorm:"primaryKey;size:64"`
	ProviderAccountID string `gorm:"primaryKey;size:255"`
	UserID            string `gorm:"size:64;index"`
	Type              string `gorm:"size:32"`
	AccessToken       string `gorm:"type:text"`
	RefreshToken      string `gorm:"type:text"`
	ExpiresAt         int64
	TokenType         string    `gorm:"size:32"`
	Scope             string    `gorm:"size:1024"`
	IDToken           string    `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *authcore.Account {
	return &authcore.Account{
		UserID:            m.UserID,
		Type:              authcore.AccountType(m.Type),
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		ExpiresAt:         m.ExpiresAt,
		TokenType:         m.TokenType,
		Scope:             m.Scope,
		IDToken:           m.IDToken,
	}
}

func AccountToModel(a *authcore.Account) *AccountModel {
	return &AccountModel{
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		UserID:            a.UserID,
		Type:              string(a.Type),
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		ExpiresAt:         a.ExpiresAt,
		TokenType:         a.TokenType,
		Scope:             a.Scope,
		IDToken:           a.IDToken,
	}
}

// SessionModel is the GORM model for database sessions
type SessionModel struct {
	SessionToken string    `gorm:"primaryKey;size:128"`
	UserID       string    `gorm:"size:64;index"`
	Expires      time.Time `gorm:"index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *authcore.Session {
	return &authcore.Session{
		SessionToken: m.SessionToken,
		UserID:       m.UserID,
		Expires:      m.Expires,
	}
}

func SessionToModel(s *authcore.Session) *SessionModel {
	return &SessionModel{
		SessionToken: s.SessionToken,
		UserID:       s.UserID,
		Expires:      s.Expires,
	}
}

// VerificationTokenModel is the GORM model for email sign-in tokens
type VerificationTokenModel struct {
	Identifier string    `gorm:"primaryKey;size:320"`
	Token      string    `gorm:"primaryKey;size:128"`
	Expires    time.Time `gorm:"index"`
}

func (VerificationTokenModel) TableName() string {
	return "verification_tokens"
}

func (m *VerificationTokenModel) ToVerificationToken() *authcore.VerificationToken {
	return &authcore.VerificationToken{
		Identifier: m.Identifier,
		Token:      m.Token,
		Expires:    m.Expires,
	}
}

func VerificationTokenToModel(t *authcore.VerificationToken) *VerificationTokenModel {
	return &VerificationTokenModel{
		Identifier: t.Identifier,
		Token:      t.Token,
		Expires:    t.Expires,
	}
}
