package authcore

import (
	"context"
	"net/http"

	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/providers"
)

type providerInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        providers.Type `json:"type"`
	SignInURL   string         `json:"signinUrl"`
	CallbackURL string         `json:"callbackUrl"`
}

func (a *Auth) providerInfos() map[string]providerInfo {
	out := make(map[string]providerInfo, a.registry.Len())
	for _, p := range a.registry.List() {
		out[p.ID()] = providerInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Type:        p.Type(),
			SignInURL:   a.actionURL(ActionSignIn, p.ID()),
			CallbackURL: a.actionURL(ActionCallback, p.ID()),
		}
	}
	return out
}

func (f *flow) providers(ctx context.Context) (*Response, error) {
	return jsonResponse(http.StatusOK, f.providerInfos()), nil
}

func (f *flow) verifyRequest(ctx context.Context) (*Response, error) {
	if f.cfg.Pages.VerifyRequest != "" && f.req.Param("json") != "true" {
		target := f.pageURL(f.cfg.Pages.VerifyRequest, ActionVerifyRequest)
		return redirectResponse(withQuery(target, "provider", f.req.Query.Get("provider"), "type", f.req.Query.Get("type"))), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"provider": f.req.Query.Get("provider"),
		"type":     f.req.Query.Get("type"),
		"message":  "A sign in link has been sent to your email address.",
		"url":      f.cfg.BaseURL,
	}), nil
}

// errorPage describes the error named in the query, with the status that
// error carries.
func (f *flow) errorPage(ctx context.Context) (*Response, error) {
	kind := errs.Kind(f.req.Query.Get("error"))
	if kind == "" {
		kind = errs.Configuration
	}
	if f.cfg.Pages.Error != "" && f.req.Param("json") != "true" {
		return redirectResponse(withQuery(f.pageURL(f.cfg.Pages.Error, ActionError), "error", string(kind))), nil
	}
	return jsonResponse(kind.Status(), errorBody{Error: kind, Message: errorDescription(kind)}), nil
}

// webAuthnOptions mints a challenge, seals it into the challenge cookie and
// returns the provider's options for the browser.
func (f *flow) webAuthnOptions(ctx context.Context) (*Response, error) {
	p, err := f.provider()
	if err != nil {
		return nil, err
	}
	wp, ok := p.(*providers.WebAuthn)
	if !ok {
		return nil, errs.Newf(errs.InvalidProvider, p.ID(), "not a webauthn provider")
	}
	challenge, err := crypto.RandomString(32)
	if err != nil {
		return nil, configError("generating challenge: %v", err)
	}
	hc, err := f.challengeChecks(wp).Seal(f.Auth.cookies.WebAuthnChallenge, challenge)
	if err != nil {
		return nil, configError("sealing challenge: %v", err)
	}
	opts, err := wp.Options(ctx, challenge, f.req.Query)
	if err != nil {
		return nil, errs.New(errs.Configuration, wp.ID(), err)
	}
	f.setCookie(hc)
	action := "authenticate"
	u, err := f.sessionUser(ctx)
	if err != nil {
		f.logger.WarnContext(ctx, "loading session for webauthn options failed", "component", "adapter", "error", err)
	}
	if u != nil {
		action = "register"
	}
	return jsonResponse(http.StatusOK, map[string]any{"options": opts, "action": action}), nil
}
