//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/panyam/authcore"
)

// AutoMigrate runs database migrations for all authcore tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AccountModel{},
		&SessionModel{},
		&VerificationTokenModel{},
	)
}

// Adapter implements authcore.Adapter using GORM
type Adapter struct {
	db *gorm.DB
}

var _ authcore.Adapter = (*Adapter)(nil)

func New(db *gorm.DB) *Adapter {
	return &Adapter{db: db}
}

// first loads one row into dest. found is false when no row matched.
func first(db *gorm.DB, dest any, query string, args ...any) (bool, error) {
	if err := db.Where(query, args...).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// =============================================================================
// Users
// =============================================================================

func (a *Adapter) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	model := UserToModel(user)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*authcore.User, error) {
	var model UserModel
	found, err := first(a.db.WithContext(ctx), &model, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	var model UserModel
	found, err := first(a.db.WithContext(ctx), &model, "LOWER(email) = LOWER(?)", email)
	if err != nil || !found {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*authcore.User, error) {
	db := a.db.WithContext(ctx)
	var account AccountModel
	found, err := first(db, &account, "provider = ? AND provider_account_id = ?", provider, providerAccountID)
	if err != nil || !found {
		return nil, err
	}
	var model UserModel
	found, err = first(db, &model, "id = ?", account.UserID)
	if err != nil || !found {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) UpdateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	var out *authcore.User
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model UserModel
		found, err := first(tx, &model, "id = ?", user.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("user not found: %s", user.ID)
		}
		// Updates with a struct skips zero fields.
		if err := tx.Model(&model).Updates(UserToModel(user)).Error; err != nil {
			return err
		}
		if _, err := first(tx, &model, "id = ?", user.ID); err != nil {
			return err
		}
		out = model.ToUser()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Accounts
// =============================================================================

func (a *Adapter) LinkAccount(ctx context.Context, account *authcore.Account) error {
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(AccountToModel(account)).Error
}

func (a *Adapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	return a.db.WithContext(ctx).
		Where("provider = ? AND provider_account_id = ?", provider, providerAccountID).
		Delete(&AccountModel{}).Error
}

// =============================================================================
// Sessions
// =============================================================================

func (a *Adapter) CreateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	model := SessionToModel(session)
	if err := a.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*authcore.Session, *authcore.User, error) {
	db := a.db.WithContext(ctx)
	var session SessionModel
	found, err := first(db, &session, "session_token = ?", sessionToken)
	if err != nil || !found {
		return nil, nil, err
	}
	var user UserModel
	found, err = first(db, &user, "id = ?", session.UserID)
	if err != nil || !found {
		return nil, nil, err
	}
	return session.ToSession(), user.ToUser(), nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	db := a.db.WithContext(ctx)
	var model SessionModel
	found, err := first(db, &model, "session_token = ?", session.SessionToken)
	if err != nil || !found {
		return nil, err
	}
	if err := db.Model(&model).Updates(SessionToModel(session)).Error; err != nil {
		return nil, err
	}
	if _, err := first(db, &model, "session_token = ?", session.SessionToken); err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	return a.db.WithContext(ctx).Where("session_token = ?", sessionToken).Delete(&SessionModel{}).Error
}

// =============================================================================
// Verification tokens
// =============================================================================

func (a *Adapter) CreateVerificationToken(ctx context.Context, token *authcore.VerificationToken) error {
	return a.db.WithContext(ctx).Create(VerificationTokenToModel(token)).Error
}

// UseVerificationToken reads and deletes the row in one transaction. Only
// the caller whose delete removed the row gets the token back.
func (a *Adapter) UseVerificationToken(ctx context.Context, identifier, token string) (*authcore.VerificationToken, error) {
	var out *authcore.VerificationToken
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model VerificationTokenModel
		found, err := first(tx, &model, "identifier = ? AND token = ?", identifier, token)
		if err != nil || !found {
			return err
		}
		res := tx.Where("identifier = ? AND token = ?", identifier, token).Delete(&VerificationTokenModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		out = model.ToVerificationToken()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
