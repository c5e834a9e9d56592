package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/oauth"
	"github.com/panyam/authcore/providers"
)

// allowSignIn runs the SignIn callback.
func (f *flow) allowSignIn(ctx context.Context, p SignInParams) error {
	if f.cfg.Callbacks.SignIn == nil {
		return nil
	}
	ok, err := f.cfg.Callbacks.SignIn(ctx, p)
	if err != nil {
		return errs.New(errs.AccessDenied, p.Provider.ID(), err)
	}
	if !ok {
		return errs.Newf(errs.AccessDenied, p.Provider.ID(), "sign in rejected")
	}
	return nil
}

func userFromProfile(profile *providers.Profile, now time.Time) *User {
	u := &User{ID: profile.ID, Name: profile.Name, Email: profile.Email, Image: profile.Image}
	if profile.EmailVerified {
		u.EmailVerified = &now
	}
	return u
}

func accountFromOutcome(p *providers.OAuth, out *oauth.Outcome) *Account {
	acc := &Account{
		Type:              AccountType(p.Type()),
		Provider:          p.ID(),
		ProviderAccountID: out.Profile.ID,
	}
	if tok := out.Token; tok != nil {
		acc.AccessToken = tok.AccessToken
		acc.RefreshToken = tok.RefreshToken
		acc.TokenType = tok.TokenType
		if !tok.Expiry.IsZero() {
			acc.ExpiresAt = tok.Expiry.Unix()
		}
		if s, ok := tok.Extra("scope").(string); ok {
			acc.Scope = s
		}
		if s, ok := tok.Extra("id_token").(string); ok {
			acc.IDToken = s
		}
	}
	return acc
}

// sessionUser returns the user signed in on the current request, or nil.
// A broken session reads as no session.
func (f *flow) sessionUser(ctx context.Context) (*User, error) {
	raw, ok := f.Auth.cookies.SessionToken.Read(f.req.Cookies)
	if !ok {
		return nil, nil
	}
	if f.cfg.Session.Strategy == StrategyJWT {
		res := f.codec.Decode(raw)
		if res.Absent() || res.Claims.Subject() == "" {
			return nil, nil
		}
		if f.cfg.Adapter == nil {
			return &User{ID: res.Claims.Subject()}, nil
		}
		u, err := f.cfg.Adapter.GetUser(ctx, res.Claims.Subject())
		if err != nil {
			return nil, adapterError("GetUser", err)
		}
		return u, nil
	}
	sess, u, err := f.cfg.Adapter.GetSessionAndUser(ctx, raw)
	if err != nil {
		return nil, adapterError("GetSessionAndUser", err)
	}
	if sess == nil || sess.IsExpired(f.now) {
		return nil, nil
	}
	return u, nil
}

// handleLogin resolves the user an account signs in as, creating and
// linking records as needed. An account already linked always resolves to
// its own user, so signing in twice never duplicates it.
func (f *flow) handleLogin(ctx context.Context, profile *providers.Profile, account *Account, allowEmailLinking bool) (*User, bool, error) {
	candidate := userFromProfile(profile, f.now)
	db := f.cfg.Adapter
	if db == nil {
		account.UserID = candidate.ID
		return candidate, false, nil
	}

	current, err := f.sessionUser(ctx)
	if err != nil {
		return nil, false, err
	}

	existing, err := db.GetUserByAccount(ctx, account.Provider, account.ProviderAccountID)
	if err != nil {
		return nil, false, adapterError("GetUserByAccount", err)
	}
	if existing != nil {
		if current != nil && current.ID != existing.ID {
			return nil, false, errs.Newf(errs.OAuthAccountNotLinked, account.Provider, "account belongs to another user")
		}
		account.UserID = existing.ID
		return existing, false, nil
	}

	if current != nil {
		if err := f.linkAccount(ctx, current, account); err != nil {
			return nil, false, err
		}
		return current, false, nil
	}

	if candidate.Email != "" {
		byEmail, err := db.GetUserByEmail(ctx, candidate.Email)
		if err != nil {
			return nil, false, adapterError("GetUserByEmail", err)
		}
		if byEmail != nil {
			if !allowEmailLinking {
				return nil, false, errs.Newf(errs.OAuthAccountNotLinked, account.Provider, "email already used by another account")
			}
			if err := f.linkAccount(ctx, byEmail, account); err != nil {
				return nil, false, err
			}
			return byEmail, false, nil
		}
	}

	candidate.ID = ""
	user, err := f.createUser(ctx, candidate)
	if err != nil {
		return nil, false, err
	}
	if err := f.linkAccount(ctx, user, account); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// handleEmailLogin signs in the owner of a verified address, marking it
// verified and creating the user on first sign-in.
func (f *flow) handleEmailLogin(ctx context.Context, existing *User, email string) (*User, bool, error) {
	now := f.now
	if existing != nil {
		if existing.EmailVerified != nil {
			return existing, false, nil
		}
		updated, err := f.cfg.Adapter.UpdateUser(ctx, &User{ID: existing.ID, EmailVerified: &now})
		if err != nil {
			return nil, false, adapterError("UpdateUser", err)
		}
		if updated == nil {
			updated = existing
			updated.EmailVerified = &now
		}
		if fn := f.cfg.Events.UpdateUser; fn != nil {
			f.emit(ctx, "updateUser", func() error { return fn(ctx, updated) })
		}
		return updated, false, nil
	}
	user, err := f.createUser(ctx, &User{Email: email, EmailVerified: &now})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (f *flow) createUser(ctx context.Context, u *User) (*User, error) {
	created, err := f.cfg.Adapter.CreateUser(ctx, u)
	if err != nil {
		return nil, adapterError("CreateUser", err)
	}
	if created == nil {
		return nil, adapterError("CreateUser", fmt.Errorf("adapter returned no user"))
	}
	if fn := f.cfg.Events.CreateUser; fn != nil {
		f.emit(ctx, "createUser", func() error { return fn(ctx, created) })
	}
	return created, nil
}

func (f *flow) linkAccount(ctx context.Context, u *User, account *Account) error {
	account.UserID = u.ID
	if err := f.cfg.Adapter.LinkAccount(ctx, account); err != nil {
		return adapterError("LinkAccount", err)
	}
	if fn := f.cfg.Events.LinkAccount; fn != nil {
		f.emit(ctx, "linkAccount", func() error { return fn(ctx, u, account) })
	}
	return nil
}

// establishSession mints the session for user and stores it in the session
// cookie.
func (f *flow) establishSession(ctx context.Context, user *User, account *Account, profile *providers.Profile, isNewUser bool) error {
	sc := f.Auth.cookies.SessionToken
	if f.cfg.Session.Strategy == StrategyDatabase {
		token, err := f.newSessionToken()
		if err != nil {
			return configError("generating session token: %v", err)
		}
		sess, err := f.cfg.Adapter.CreateSession(ctx, &Session{
			SessionToken: token,
			UserID:       user.ID,
			Expires:      f.now.Add(f.cfg.Session.MaxAge),
		})
		if err != nil {
			return adapterError("CreateSession", err)
		}
		if sess == nil {
			return adapterError("CreateSession", fmt.Errorf("adapter returned no session"))
		}
		f.setCookie(sc.Chunk(sess.SessionToken, f.now, sess.Expires, f.req.Cookies)...)
		return nil
	}

	claims := defaultClaims(user)
	if fn := f.cfg.Callbacks.JWT; fn != nil {
		trigger := TriggerSignIn
		if isNewUser {
			trigger = TriggerSignUp
		}
		var err error
		claims, err = fn(ctx, JWTParams{
			Token:     claims,
			User:      user,
			Account:   account,
			Profile:   profile,
			Trigger:   trigger,
			IsNewUser: isNewUser,
		})
		if err != nil {
			return errs.New(errs.AccessDenied, account.Provider, err)
		}
		if claims == nil {
			f.setCookie(sc.Clear(f.req.Cookies)...)
			return nil
		}
	}
	token, err := f.codec.Encode(claims)
	if err != nil {
		return configError("encoding session token: %v", err)
	}
	f.setCookie(sc.Chunk(token, f.now, f.now.Add(f.cfg.JWT.MaxAge), f.req.Cookies)...)
	return nil
}

func (f *flow) newSessionToken() (string, error) {
	if gen := f.cfg.Session.GenerateSessionToken; gen != nil {
		return gen()
	}
	return crypto.RandomToken()
}

// completeSignIn mints the session, notifies listeners and sends the
// browser on.
func (f *flow) completeSignIn(ctx context.Context, user *User, account *Account, profile *providers.Profile, isNewUser bool) (*Response, error) {
	if err := f.establishSession(ctx, user, account, profile, isNewUser); err != nil {
		return nil, err
	}
	if fn := f.cfg.Events.SignIn; fn != nil {
		f.emit(ctx, "signIn", func() error { return fn(ctx, user, account, isNewUser) })
	}
	f.logger.InfoContext(ctx, "signed in", "provider", account.Provider, "userId", user.ID, "newUser", isNewUser)

	target := f.callbackURL(ctx)
	if _, ok := f.req.Cookies[f.Auth.cookies.CallbackURL.Name]; ok {
		f.setCookie(f.Auth.cookies.CallbackURL.Expire())
	}
	if isNewUser && f.cfg.Pages.NewUser != "" {
		target = withQuery(f.pageURL(f.cfg.Pages.NewUser, ActionSignIn), "callbackUrl", target)
	}
	resp := redirectResponse(target)
	resp.signedInUser = user.ID
	return resp, nil
}

// callbackURL is where to go after signing in: the request's callbackUrl,
// then the one remembered at sign-in, then the base URL.
func (f *flow) callbackURL(ctx context.Context) string {
	if v := f.req.Param("callbackUrl"); v != "" {
		return f.redirectTo(ctx, v)
	}
	if v := f.req.Cookies[f.Auth.cookies.CallbackURL.Name]; v != "" {
		return f.redirectTo(ctx, v)
	}
	return f.cfg.BaseURL
}
