//go:build !wasm
// +build !wasm

package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/panyam/authcore"
)

// Adapter implements authcore.Adapter using Google Cloud Datastore
type Adapter struct {
	client    *datastore.Client
	namespace string
	now       func() time.Time
}

var _ authcore.Adapter = (*Adapter)(nil)

// New creates an adapter writing into namespace ("" is the default
// namespace).
func New(client *datastore.Client, namespace string) *Adapter {
	return &Adapter{client: client, namespace: namespace, now: time.Now}
}

func (a *Adapter) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = a.namespace
	return key
}

func accountKeyName(provider, providerAccountID string) string {
	return provider + ":" + providerAccountID
}

// get loads key into dst. found is false when there is no such entity.
func (a *Adapter) get(ctx context.Context, key *datastore.Key, dst any) (bool, error) {
	if err := a.client.Get(ctx, key, dst); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *Adapter) deleteKey(ctx context.Context, key *datastore.Key) error {
	if err := a.client.Delete(ctx, key); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
		return err
	}
	return nil
}

// ============================================================================
// Users
// ============================================================================

func (a *Adapter) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	key := a.namespacedKey(KindUser, id)
	entity := UserToEntity(user, key)
	now := a.now()
	entity.CreatedAt = now
	entity.UpdatedAt = now
	if _, err := a.client.Put(ctx, key, entity); err != nil {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (*authcore.User, error) {
	var entity UserEntity
	found, err := a.get(ctx, a.namespacedKey(KindUser, id), &entity)
	if err != nil || !found {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	query := datastore.NewQuery(KindUser).
		FilterField("email_key", "=", strings.ToLower(email)).
		Limit(1)
	if a.namespace != "" {
		query = query.Namespace(a.namespace)
	}

	it := a.client.Run(ctx, query)
	var entity UserEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (a *Adapter) GetUserByAccount(ctx context.Context, provider, providerAccountID string) (*authcore.User, error) {
	var account AccountEntity
	found, err := a.get(ctx, a.namespacedKey(KindAccount, accountKeyName(provider, providerAccountID)), &account)
	if err != nil || !found {
		return nil, err
	}
	return a.GetUser(ctx, account.UserID)
}

func (a *Adapter) UpdateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	key := a.namespacedKey(KindUser, user.ID)
	var entity UserEntity
	_, err := a.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("user not found: %s", user.ID)
			}
			return err
		}
		if user.Name != "" {
			entity.Name = user.Name
		}
		if user.Email != "" {
			entity.Email = user.Email
			entity.EmailKey = strings.ToLower(user.Email)
		}
		if user.EmailVerified != nil {
			entity.EmailVerified = *user.EmailVerified
		}
		if user.Image != "" {
			entity.Image = user.Image
		}
		entity.UpdatedAt = a.now()
		_, err := tx.Put(key, &entity)
		return err
	})
	if err != nil {
		return nil, err
	}
	entity.Key = key
	return entity.ToUser(), nil
}

// ============================================================================
// Accounts
// ============================================================================

func (a *Adapter) LinkAccount(ctx context.Context, account *authcore.Account) error {
	key := a.namespacedKey(KindAccount, accountKeyName(account.Provider, account.ProviderAccountID))
	entity := AccountToEntity(account, key)
	entity.UpdatedAt = a.now()
	_, err := a.client.Put(ctx, key, entity)
	return err
}

func (a *Adapter) UnlinkAccount(ctx context.Context, provider, providerAccountID string) error {
	return a.deleteKey(ctx, a.namespacedKey(KindAccount, accountKeyName(provider, providerAccountID)))
}

// ============================================================================
// Sessions
// ============================================================================

func (a *Adapter) CreateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	key := a.namespacedKey(KindSession, session.SessionToken)
	entity := &SessionEntity{Key: key, UserID: session.UserID, Expires: session.Expires}
	if _, err := a.client.Put(ctx, key, entity); err != nil {
		return nil, err
	}
	return entity.ToSession(), nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionToken string) (*authcore.Session, *authcore.User, error) {
	var entity SessionEntity
	found, err := a.get(ctx, a.namespacedKey(KindSession, sessionToken), &entity)
	if err != nil || !found {
		return nil, nil, err
	}
	user, err := a.GetUser(ctx, entity.UserID)
	if err != nil || user == nil {
		return nil, nil, err
	}
	return entity.ToSession(), user, nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session *authcore.Session) (*authcore.Session, error) {
	key := a.namespacedKey(KindSession, session.SessionToken)
	var entity SessionEntity
	var found bool
	_, err := a.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				found = false
				return nil
			}
			return err
		}
		found = true
		if !session.Expires.IsZero() {
			entity.Expires = session.Expires
		}
		if session.UserID != "" {
			entity.UserID = session.UserID
		}
		_, err := tx.Put(key, &entity)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	entity.Key = key
	return entity.ToSession(), nil
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionToken string) error {
	return a.deleteKey(ctx, a.namespacedKey(KindSession, sessionToken))
}

// ============================================================================
// Verification tokens
// ============================================================================

func (a *Adapter) verificationKey(identifier, token string) *datastore.Key {
	return a.namespacedKey(KindVerificationToken, identifier+":"+token)
}

func (a *Adapter) CreateVerificationToken(ctx context.Context, token *authcore.VerificationToken) error {
	key := a.verificationKey(token.Identifier, token.Token)
	entity := &VerificationTokenEntity{
		Key:        key,
		Identifier: token.Identifier,
		Token:      token.Token,
		Expires:    token.Expires,
	}
	_, err := a.client.Put(ctx, key, entity)
	return err
}

// UseVerificationToken reads and deletes the token in one transaction.
func (a *Adapter) UseVerificationToken(ctx context.Context, identifier, token string) (*authcore.VerificationToken, error) {
	key := a.verificationKey(identifier, token)
	var out *authcore.VerificationToken
	_, err := a.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		out = nil
		var entity VerificationTokenEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return nil
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		out = entity.ToVerificationToken()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
