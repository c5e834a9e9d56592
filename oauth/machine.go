package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/panyam/authcore/cookies"
	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/providers"
	"golang.org/x/oauth2"
)

// Authorization is where to send the browser and what to remember.
type Authorization struct {
	URL     string
	Cookies []*http.Cookie
}

// Callback is what the provider sent back. Params merges query and form
// values, so form_post responses work too.
type Callback struct {
	Params  url.Values
	Cookies map[string]string
}

// Outcome is the result of a successful callback.
type Outcome struct {
	Profile       *providers.Profile
	Token         *oauth2.Token
	IDTokenClaims map[string]any
}

// Machine drives one sign-in attempt against one provider. It is not safe
// for concurrent use; create one per request.
type Machine struct {
	client   *Client
	provider *providers.OAuth
	checks   *Checks

	state   State
	err     error
	cookies []*http.Cookie
}

// NewMachine starts a flow in Idle.
func (c *Client) NewMachine(p *providers.OAuth, checks *Checks) *Machine {
	return &Machine{client: c, provider: p, checks: checks}
}

func (m *Machine) State() State { return m.state }

// Err is the failure that moved the machine to Errored.
func (m *Machine) Err() error { return m.err }

// Cookies lists cookies to set on the response: the check cookies after
// Authorize, or their removal after Callback, whether or not it succeeded.
func (m *Machine) Cookies() []*http.Cookie { return m.cookies }

// Link records that the profile was attached to a user.
func (m *Machine) Link() error {
	if m.state != ProfileFetched {
		return m.transitionError(Linked)
	}
	m.state = Linked
	return nil
}

// Fail moves the machine to Errored with err.
func (m *Machine) Fail(err error) error {
	m.state = Errored
	m.err = err
	m.client.Logger.Debug("flow failed", "provider", m.provider.ProviderID, "error", err)
	return err
}

func (m *Machine) transitionError(to State) error {
	return m.Fail(errs.Newf(errs.Configuration, m.provider.ProviderID, "invalid transition %s -> %s", m.state, to))
}

func (m *Machine) fail(kind errs.Kind, err error) error {
	return m.Fail(errs.New(kind, m.provider.ProviderID, err))
}

// Authorize builds the authorization URL, generating whatever values the
// provider's checks need and sealing each into its cookie. extra is appended
// to the query after the provider's own parameters.
func (m *Machine) Authorize(ctx context.Context, extra url.Values) (*Authorization, error) {
	if m.state != Idle {
		return nil, m.transitionError(AuthorizationRequested)
	}
	p := m.provider
	var opts []oauth2.AuthCodeOption
	for _, params := range []url.Values{p.Authorization.Params, extra} {
		for k, vs := range params {
			if len(vs) > 0 {
				opts = append(opts, oauth2.SetAuthURLParam(k, vs[0]))
			}
		}
	}

	var state string
	if p.HasCheck(providers.CheckState) {
		v, err := m.seal(m.checks.Cookies.State, 32)
		if err != nil {
			return nil, m.fail(errs.Configuration, err)
		}
		state = v
	}
	if p.HasCheck(providers.CheckPKCE) {
		verifier := oauth2.GenerateVerifier()
		if err := m.sealValue(m.checks.Cookies.PKCECodeVerifier, verifier); err != nil {
			return nil, m.fail(errs.Configuration, err)
		}
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	if p.HasCheck(providers.CheckNonce) {
		nonce, err := m.seal(m.checks.Cookies.Nonce, 32)
		if err != nil {
			return nil, m.fail(errs.Configuration, err)
		}
		opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
	}

	m.state = AuthorizationRequested
	return &Authorization{URL: p.Config().AuthCodeURL(state, opts...), Cookies: m.cookies}, nil
}

func (m *Machine) seal(cookie cookies.Cookie, n int) (string, error) {
	v, err := crypto.RandomString(n)
	if err != nil {
		return "", err
	}
	return v, m.sealValue(cookie, v)
}

func (m *Machine) sealValue(cookie cookies.Cookie, v string) error {
	hc, err := m.checks.Seal(cookie, v)
	if err != nil {
		return err
	}
	m.cookies = append(m.cookies, hc)
	return nil
}

// expireChecks schedules removal of every check cookie the provider uses.
func (m *Machine) expireChecks() {
	set := m.checks.Cookies
	for _, c := range []struct {
		check  providers.Check
		cookie cookies.Cookie
	}{
		{providers.CheckState, set.State},
		{providers.CheckPKCE, set.PKCECodeVerifier},
		{providers.CheckNonce, set.Nonce},
	} {
		if m.provider.HasCheck(c.check) {
			m.cookies = append(m.cookies, c.cookie.Expire())
		}
	}
}

// Callback validates the provider's response, exchanges the code, verifies
// the id_token of OIDC providers and maps the profile.
func (m *Machine) Callback(ctx context.Context, cb Callback) (*Outcome, error) {
	if m.state != Idle && m.state != AuthorizationRequested {
		return nil, m.transitionError(CallbackReceived)
	}
	m.state = CallbackReceived
	p := m.provider
	m.expireChecks()

	var verifier, nonce string
	if p.HasCheck(providers.CheckState) {
		stored, ok := m.checks.Open(m.checks.Cookies.State, cb.Cookies)
		if !ok {
			return nil, m.fail(errs.StateMismatch, fmt.Errorf("state cookie missing or expired"))
		}
		if cb.Params.Get("state") != stored {
			return nil, m.fail(errs.StateMismatch, fmt.Errorf("state does not match"))
		}
	}
	if p.HasCheck(providers.CheckPKCE) {
		v, ok := m.checks.Open(m.checks.Cookies.PKCECodeVerifier, cb.Cookies)
		if !ok {
			return nil, m.fail(errs.InvalidCheck, fmt.Errorf("pkce code_verifier cookie missing or expired"))
		}
		verifier = v
	}
	if p.HasCheck(providers.CheckNonce) {
		v, ok := m.checks.Open(m.checks.Cookies.Nonce, cb.Cookies)
		if !ok {
			return nil, m.fail(errs.InvalidCheck, fmt.Errorf("nonce cookie missing or expired"))
		}
		nonce = v
	}
	// Checks run first: a provider error is only trusted on a response
	// that carries our state.
	if e := cb.Params.Get("error"); e != "" {
		desc := cb.Params.Get("error_description")
		return nil, m.fail(errs.OAuthCallback, fmt.Errorf("provider returned %s: %s", e, desc))
	}
	code := cb.Params.Get("code")
	if code == "" {
		return nil, m.fail(errs.OAuthCallback, fmt.Errorf("missing code"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client.HTTPClient)
	token, err := m.exchange(ctx, code, verifier)
	if err != nil {
		return nil, m.fail(errs.OAuthToken, err)
	}
	m.state = TokenExchanged

	out := &Outcome{Token: token}
	if p.OIDC {
		raw, _ := token.Extra("id_token").(string)
		if raw == "" {
			return nil, m.fail(errs.OIDCIDTokenInvalid, fmt.Errorf("token response has no id_token"))
		}
		var claims gojwt.MapClaims
		err := m.client.observe(ctx, p.ProviderID, "id_token", func(ctx context.Context) error {
			var err error
			claims, err = m.client.verifyIDToken(ctx, p, raw, nonce)
			return err
		})
		if err != nil {
			return nil, m.fail(errs.OIDCIDTokenInvalid, err)
		}
		out.IDTokenClaims = claims
	}

	raw := out.IDTokenClaims
	if raw == nil || !p.IDTokenProfile {
		info, err := m.userInfo(ctx, token)
		if err != nil {
			return nil, m.fail(errs.OAuthProfile, err)
		}
		if out.IDTokenClaims != nil {
			if sub := providers.Claim(info, "sub"); sub != "" && sub != providers.Claim(out.IDTokenClaims, "sub") {
				return nil, m.fail(errs.OAuthProfile, fmt.Errorf("userinfo subject does not match id_token"))
			}
		}
		raw = info
	}

	profile, err := p.Profile(ctx, raw, token)
	if err != nil {
		return nil, m.fail(errs.OAuthProfile, err)
	}
	if profile == nil || profile.ID == "" {
		return nil, m.fail(errs.OAuthProfile, fmt.Errorf("profile has no id"))
	}
	out.Profile = profile
	m.state = ProfileFetched
	return out, nil
}

func (m *Machine) exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	p := m.provider
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	for k, vs := range p.Token.Params {
		if len(vs) > 0 {
			opts = append(opts, oauth2.SetAuthURLParam(k, vs[0]))
		}
	}
	var token *oauth2.Token
	err := m.client.observe(ctx, p.ProviderID, "token", func(ctx context.Context) error {
		var err error
		token, err = p.Config().Exchange(ctx, code, opts...)
		return err
	})
	return token, err
}

func (m *Machine) userInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	p := m.provider
	u, err := url.Parse(p.UserInfo.URL)
	if err != nil {
		return nil, fmt.Errorf("bad userinfo url: %w", err)
	}
	if len(p.UserInfo.Params) > 0 {
		q := u.Query()
		for k, vs := range p.UserInfo.Params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}

	var info map[string]any
	err = m.client.observe(ctx, p.ProviderID, "userinfo", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := p.Config().Client(ctx, token).Do(req)
		if err != nil {
			return fmt.Errorf("failed getting user info: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, body)
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return fmt.Errorf("failed to parse user info: %w", err)
		}
		return nil
	})
	return info, err
}
