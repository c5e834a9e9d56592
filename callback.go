package authcore

import (
	"context"
	"net/http"
	"net/url"

	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/oauth"
	"github.com/panyam/authcore/providers"
)

// reserved body fields are never handed to providers.
var reservedFields = map[string]bool{"csrfToken": true, "callbackUrl": true, "json": true}

func (f *flow) callback(ctx context.Context) (*Response, error) {
	p, err := f.provider()
	if err != nil {
		return nil, err
	}
	switch p := p.(type) {
	case *providers.OAuth:
		return f.callbackOAuth(ctx, p)
	case *providers.Email:
		return f.callbackEmail(ctx, p)
	case *providers.Credentials:
		if err := f.requirePostWithCSRF(p); err != nil {
			return nil, err
		}
		return f.callbackCredentials(ctx, p)
	case *providers.WebAuthn:
		if err := f.requirePostWithCSRF(p); err != nil {
			return nil, err
		}
		return f.callbackWebAuthn(ctx, p)
	}
	return nil, errs.Newf(errs.InvalidProvider, p.ID(), "unsupported provider type %s", p.Type())
}

func (f *flow) requirePostWithCSRF(p providers.Provider) error {
	if f.req.Method != http.MethodPost {
		return errs.Newf(errs.MethodNotAllowed, p.ID(), "%s callback requires POST", p.Type())
	}
	if !f.csrfVerified {
		return errs.Newf(errs.InvalidCSRF, p.ID(), "csrf token missing or invalid")
	}
	return nil
}

func (f *flow) callbackOAuth(ctx context.Context, p *providers.OAuth) (*Response, error) {
	params := url.Values{}
	for k, v := range f.req.Query {
		params[k] = v
	}
	for k, v := range f.req.Body {
		params[k] = v
	}

	m := f.client.NewMachine(p, f.checks)
	out, err := m.Callback(ctx, oauth.Callback{Params: params, Cookies: f.req.Cookies})
	f.setCookie(m.Cookies()...)
	if err != nil {
		return nil, err
	}

	account := accountFromOutcome(p, out)
	err = f.allowSignIn(ctx, SignInParams{
		User:     userFromProfile(out.Profile, f.now),
		Account:  account,
		Profile:  out.Profile,
		Provider: p,
	})
	if err != nil {
		return nil, m.Fail(err)
	}
	user, isNewUser, err := f.handleLogin(ctx, out.Profile, account, p.AllowDangerousEmailAccountLinking)
	if err != nil {
		return nil, m.Fail(err)
	}
	if err := m.Link(); err != nil {
		return nil, err
	}
	return f.completeSignIn(ctx, user, account, out.Profile, isNewUser)
}

// callbackEmail consumes a sign-in link. Tokens are hashed with each secret
// in turn so links survive a secret rotation.
func (f *flow) callbackEmail(ctx context.Context, p *providers.Email) (*Response, error) {
	token := f.req.Param("token")
	identifier, err := p.NormalizeIdentifier(f.req.Param("email"))
	if token == "" || err != nil {
		return nil, errs.Newf(errs.Verification, p.ID(), "missing token or email")
	}

	var vt *VerificationToken
	for _, secret := range f.cfg.Secret {
		vt, err = f.cfg.Adapter.UseVerificationToken(ctx, identifier, crypto.HashToken(token, secret))
		if err != nil {
			return nil, adapterError("UseVerificationToken", err)
		}
		if vt != nil {
			break
		}
	}
	if vt == nil {
		return nil, errs.Newf(errs.Verification, p.ID(), "token not found or already used")
	}
	if !f.now.Before(vt.Expires) {
		return nil, errs.Newf(errs.Verification, p.ID(), "token expired")
	}

	existing, err := f.cfg.Adapter.GetUserByEmail(ctx, identifier)
	if err != nil {
		return nil, adapterError("GetUserByEmail", err)
	}
	account := &Account{Type: AccountEmail, Provider: p.ID(), ProviderAccountID: identifier}
	candidate := existing
	if candidate == nil {
		candidate = &User{Email: identifier}
	}
	if err := f.allowSignIn(ctx, SignInParams{User: candidate, Account: account, Provider: p}); err != nil {
		return nil, err
	}
	user, isNewUser, err := f.handleEmailLogin(ctx, existing, identifier)
	if err != nil {
		return nil, err
	}
	account.UserID = user.ID
	return f.completeSignIn(ctx, user, account, nil, isNewUser)
}

func (f *flow) fields() map[string]string {
	out := make(map[string]string, len(f.req.Body))
	for k := range f.req.Body {
		if !reservedFields[k] {
			out[k] = f.req.Body.Get(k)
		}
	}
	return out
}

func (f *flow) callbackCredentials(ctx context.Context, p *providers.Credentials) (*Response, error) {
	profile, err := p.Authorize(ctx, f.fields())
	if err != nil {
		return nil, errs.New(errs.CredentialsSignin, p.ID(), err)
	}
	if profile == nil || profile.ID == "" {
		return nil, errs.Newf(errs.CredentialsSignin, p.ID(), "credentials rejected")
	}
	user := userFromProfile(profile, f.now)
	account := &Account{
		UserID:            user.ID,
		Type:              AccountCredentials,
		Provider:          p.ID(),
		ProviderAccountID: profile.ID,
	}
	if err := f.allowSignIn(ctx, SignInParams{User: user, Account: account, Profile: profile, Provider: p}); err != nil {
		return nil, err
	}
	return f.completeSignIn(ctx, user, account, profile, false)
}

func (f *flow) callbackWebAuthn(ctx context.Context, p *providers.WebAuthn) (*Response, error) {
	checks := f.challengeChecks(p)
	challenge, ok := checks.Open(f.Auth.cookies.WebAuthnChallenge, f.req.Cookies)
	f.setCookie(f.Auth.cookies.WebAuthnChallenge.Expire())
	if !ok {
		return nil, errs.Newf(errs.InvalidCheck, p.ID(), "challenge cookie missing or expired")
	}

	res, err := p.Verify(ctx, providers.WebAuthnAssertion{Challenge: challenge, Response: f.fields()})
	if err != nil {
		return nil, errs.New(errs.AccessDenied, p.ID(), err)
	}
	if res == nil || res.Profile == nil || res.CredentialID == "" {
		return nil, errs.Newf(errs.AccessDenied, p.ID(), "assertion rejected")
	}
	if res.Profile.ID == "" {
		res.Profile.ID = res.CredentialID
	}
	account := &Account{Type: AccountWebAuthn, Provider: p.ID(), ProviderAccountID: res.CredentialID}
	err = f.allowSignIn(ctx, SignInParams{
		User:     userFromProfile(res.Profile, f.now),
		Account:  account,
		Profile:  res.Profile,
		Provider: p,
	})
	if err != nil {
		return nil, err
	}
	user, isNewUser, err := f.handleLogin(ctx, res.Profile, account, false)
	if err != nil {
		return nil, err
	}
	return f.completeSignIn(ctx, user, account, res.Profile, isNewUser)
}

// challengeChecks seals challenges with the provider's own lifetime.
func (f *flow) challengeChecks(p *providers.WebAuthn) *oauth.Checks {
	checks := *f.checks
	checks.MaxAge = p.ChallengeMaxAge
	return &checks
}
