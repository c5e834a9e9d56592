// Package fs stores users, accounts, sessions and verification tokens as JSON
// files under one directory. It suits development, tests and single-process
// deployments.
//
// # Layout
//
//	users/<id>.json
//	emails/<hash>.json         email -> user id
//	accounts/<hash>.json       (provider, providerAccountId) -> account
//	sessions/<hash>.json
//	verification/<hash>.json
//
// Lookup keys are hashed into file names so no caller-supplied value ever
// becomes a path.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panyam/authcore"
)

// Adapter implements authcore.Adapter on the local file system. A single
// mutex serializes writes so compound updates are atomic within a process.
type Adapter struct {
	StoragePath string

	mu sync.Mutex
}

var _ authcore.Adapter = (*Adapter)(nil)

func New(storagePath string) *Adapter {
	return &Adapter{StoragePath: storagePath}
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

func (a *Adapter) path(dir, name string) string {
	return filepath.Join(a.StoragePath, dir, filepath.Base(name)+".json")
}

// readJSON loads path into v. A missing file reports false with no error.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("corrupt record %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// writeAtomicFile writes data to a temp file and renames it over path.
func writeAtomicFile(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

type emailIndex struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

func (a *Adapter) emailPath(email string) string {
	return a.path("emails", hashKey(strings.ToLower(email)))
}

func (a *Adapter) accountPath(provider, providerAccountID string) string {
	return a.path("accounts", hashKey(provider, providerAccountID))
}

// Users

func (a *Adapter) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Email != "" {
		var idx emailIndex
		found, err := readJSON(a.emailPath(u.Email), &idx)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, fmt.Errorf("email %s already belongs to user %s", u.Email, idx.UserID)
		}
	}
	if err := writeJSON(a.path("users", u.ID), &u); err != nil {
		return nil, err
	}
	if u.Email != "" {
		if err := writeJSON(a.emailPath(u.Email), &emailIndex{Email: u.Email, UserID: u.ID}); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*authcore.User, error) {
	var u authcore.User
	found, err := readJSON(a.path("users", id), &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	var idx emailIndex
	found, err := readJSON(a.emailPath(email), &idx)
	if err != nil || !found {
		return nil, err
	}
	return a.GetUser(ctx, idx.UserID)
}

func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*authcore.User, error) {
	var acc authcore.Account
	found, err := readJSON(a.accountPath(provider, providerAccountID), &acc)
	if err != nil || !found {
		return nil, err
	}
	return a.GetUser(ctx, acc.UserID)
}

func (a *Adapter) UpdateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var u authcore.User
	found, err := readJSON(a.path("users", user.ID), &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user not found: %s", user.ID)
	}
	oldEmail := u.Email
	if user.Name != "" {
		u.Name = user.Name
	}
	if user.Email != "" {
		u.Email = user.Email
	}
	if user.EmailVerified != nil {
		u.EmailVerified = user.EmailVerified
	}
	if user.Image != "" {
		u.Image = user.Image
	}
	if err := writeJSON(a.path("users", u.ID), &u); err != nil {
		return nil, err
	}
	if !strings.EqualFold(oldEmail, u.Email) {
		if oldEmail != "" {
			if err := removeFile(a.emailPath(oldEmail)); err != nil {
				return nil, err
			}
		}
		if err := writeJSON(a.emailPath(u.Email), &emailIndex{Email: u.Email, UserID: u.ID}); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

// Accounts

func (a *Adapter) LinkAccount(ctx context.Context, account *authcore.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return writeJSON(a.accountPath(account.Provider, account.ProviderAccountID), account)
}

func (a *Adapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return removeFile(a.accountPath(provider, providerAccountID))
}

// Sessions

func (a *Adapter) sessionPath(token string) string {
	return a.path("sessions", hashKey(token))
}

func (a *Adapter) CreateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := *session
	if err := writeJSON(a.sessionPath(s.SessionToken), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*authcore.Session, *authcore.User, error) {
	var s authcore.Session
	found, err := readJSON(a.sessionPath(sessionToken), &s)
	if err != nil || !found {
		return nil, nil, err
	}
	u, err := a.GetUser(ctx, s.UserID)
	if err != nil || u == nil {
		return nil, nil, err
	}
	return &s, u, nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var s authcore.Session
	found, err := readJSON(a.sessionPath(session.SessionToken), &s)
	if err != nil || !found {
		return nil, err
	}
	if !session.Expires.IsZero() {
		s.Expires = session.Expires
	}
	if session.UserID != "" {
		s.UserID = session.UserID
	}
	if err := writeJSON(a.sessionPath(s.SessionToken), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return removeFile(a.sessionPath(sessionToken))
}

// Verification tokens

func (a *Adapter) verificationPath(identifier, token string) string {
	return a.path("verification", hashKey(identifier, token))
}

func (a *Adapter) CreateVerificationToken(ctx context.Context, token *authcore.VerificationToken) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return writeJSON(a.verificationPath(token.Identifier, token.Token), token)
}

func (a *Adapter) UseVerificationToken(ctx context.Context, identifier, token string) (*authcore.VerificationToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := a.verificationPath(identifier, token)
	var vt authcore.VerificationToken
	found, err := readJSON(path, &vt)
	if err != nil || !found {
		return nil, err
	}
	if err := removeFile(path); err != nil {
		return nil, err
	}
	return &vt, nil
}
