package authcore

import (
	"context"
	"net/http"

	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/providers"
)

type signInPage struct {
	CSRFToken string                  `json:"csrfToken"`
	Providers map[string]providerInfo `json:"providers"`
}

// signIn shows the sign-in page on GET and starts a provider's flow on
// POST.
func (f *flow) signIn(ctx context.Context) (*Response, error) {
	if f.req.Method == http.MethodGet {
		if f.cfg.Pages.SignIn != "" && f.req.Param("json") != "true" {
			target := f.pageURL(f.cfg.Pages.SignIn, ActionSignIn)
			if cb := f.req.Param("callbackUrl"); cb != "" {
				target = withQuery(target, "callbackUrl", f.redirectTo(ctx, cb))
			}
			return redirectResponse(target), nil
		}
		return jsonResponse(http.StatusOK, signInPage{CSRFToken: f.csrfToken, Providers: f.providerInfos()}), nil
	}

	p, err := f.provider()
	if err != nil {
		return nil, err
	}
	if cb := f.req.Param("callbackUrl"); cb != "" {
		f.setCookie(f.Auth.cookies.CallbackURL.New(f.redirectTo(ctx, cb), f.now, f.now.Add(f.cfg.Session.MaxAge)))
	}
	switch p := p.(type) {
	case *providers.OAuth:
		return f.signInOAuth(ctx, p)
	case *providers.Email:
		return f.signInEmail(ctx, p)
	case *providers.Credentials:
		return f.callbackCredentials(ctx, p)
	case *providers.WebAuthn:
		return f.callbackWebAuthn(ctx, p)
	}
	return nil, errs.Newf(errs.InvalidProvider, p.ID(), "unsupported provider type %s", p.Type())
}

func (f *flow) signInOAuth(ctx context.Context, p *providers.OAuth) (*Response, error) {
	m := f.client.NewMachine(p, f.checks)
	auth, err := m.Authorize(ctx, nil)
	if err != nil {
		return nil, err
	}
	f.setCookie(auth.Cookies...)
	f.logger.DebugContext(ctx, "redirecting to provider", "provider", p.ID(), "state", m.State())
	return redirectResponse(auth.URL), nil
}

// signInEmail stores a hashed single-use token and mails the sign-in link.
func (f *flow) signInEmail(ctx context.Context, p *providers.Email) (*Response, error) {
	identifier, err := p.NormalizeIdentifier(f.req.Param("email"))
	if err != nil {
		return nil, errs.New(errs.Verification, p.ID(), err)
	}
	existing, err := f.cfg.Adapter.GetUserByEmail(ctx, identifier)
	if err != nil {
		return nil, adapterError("GetUserByEmail", err)
	}
	user := existing
	if user == nil {
		user = &User{Email: identifier}
	}
	if err := f.allowSignIn(ctx, SignInParams{User: user, Provider: p, VerificationRequest: true}); err != nil {
		return nil, err
	}

	token, err := p.GenerateToken()
	if err != nil {
		return nil, configError("generating verification token: %v", err)
	}
	expires := f.now.Add(p.MaxAge)
	err = f.cfg.Adapter.CreateVerificationToken(ctx, &VerificationToken{
		Identifier: identifier,
		Token:      crypto.HashToken(token, f.cfg.Secret[0]),
		Expires:    expires,
	})
	if err != nil {
		return nil, adapterError("CreateVerificationToken", err)
	}

	link := withQuery(p.CallbackURL, "callbackUrl", f.callbackURL(ctx), "token", token, "email", identifier)
	err = p.Sender.SendVerificationRequest(ctx, providers.VerificationRequest{
		Identifier: identifier,
		URL:        link,
		Token:      token,
		Expires:    expires,
		Provider:   p,
	})
	if err != nil {
		return nil, errs.Newf(errs.Configuration, p.ID(), "sending verification request: %w", err)
	}
	return redirectResponse(withQuery(f.pageURL(f.cfg.Pages.VerifyRequest, ActionVerifyRequest), "provider", p.ID(), "type", string(p.Type()))), nil
}
