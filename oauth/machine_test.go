package oauth_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/panyam/authcore/cookies"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/oauth"
	"github.com/panyam/authcore/oauthtest"
	"github.com/panyam/authcore/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv    *oauthtest.Server
	client *oauth.Client
	checks *oauth.Checks
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := oauthtest.NewServer()
	t.Cleanup(srv.Close)
	return &harness{
		srv:    srv,
		client: oauth.NewClient(srv.Client(), nil),
		checks: &oauth.Checks{Secrets: []string{"secret"}, Cookies: cookies.Defaults("", false)},
	}
}

func (h *harness) provider(t *testing.T, p *providers.OAuth) *providers.OAuth {
	t.Helper()
	reg, err := providers.NewRegistry(context.Background(), providers.Options{
		BaseURL:    "http://localhost:3000",
		BasePath:   "/auth",
		HTTPClient: h.srv.Client(),
	}, p)
	require.NoError(t, err)
	got, _ := reg.Get(p.ProviderID)
	return got.(*providers.OAuth)
}

func jar(cs []*http.Cookie) map[string]string {
	m := map[string]string{}
	for _, c := range cs {
		if c.MaxAge >= 0 {
			m[c.Name] = c.Value
		}
	}
	return m
}

// authorize runs the first leg and the user's consent.
func (h *harness) authorize(t *testing.T, p *providers.OAuth) (url.Values, map[string]string) {
	t.Helper()
	m := h.client.NewMachine(p, h.checks)
	auth, err := m.Authorize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, oauth.AuthorizationRequested, m.State())
	params, err := h.srv.Approve(auth.URL)
	require.NoError(t, err)
	return params, jar(auth.Cookies)
}

func TestOAuthFlowReachesLinked(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, h.srv.OAuthProvider("mock"))

	params, cookieJar := h.authorize(t, p)
	m := h.client.NewMachine(p, h.checks)
	out, err := m.Callback(context.Background(), oauth.Callback{Params: params, Cookies: cookieJar})
	require.NoError(t, err)
	assert.Equal(t, oauth.ProfileFetched, m.State())
	assert.Equal(t, "12345", out.Profile.ID)
	assert.Equal(t, "testuser@example.com", out.Profile.Email)
	assert.Equal(t, "mock_access_token", out.Token.AccessToken)
	assert.Nil(t, out.IDTokenClaims)

	require.NoError(t, m.Link())
	assert.Equal(t, oauth.Linked, m.State())
	assert.True(t, m.State().Terminal())

	// the consumed check cookies are expired
	expired := 0
	for _, c := range m.Cookies() {
		if c.MaxAge < 0 {
			expired++
		}
	}
	assert.Equal(t, 2, expired)
}

func TestAuthorizeURL(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, h.srv.OIDCProvider("oidc"))
	m := h.client.NewMachine(p, h.checks)

	auth, err := m.Authorize(context.Background(), url.Values{"login_hint": {"ann@example.com"}})
	require.NoError(t, err)
	u, err := url.Parse(auth.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, oauthtest.ClientID, q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/auth/callback/oidc", q.Get("redirect_uri"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEmpty(t, q.Get("state"))
	assert.NotEmpty(t, q.Get("nonce"))
	assert.Equal(t, "ann@example.com", q.Get("login_hint"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Len(t, auth.Cookies, 3)

	// the state in the URL is the one sealed in the cookie
	stored, ok := h.checks.Open(h.checks.Cookies.State, jar(auth.Cookies))
	require.True(t, ok)
	assert.Equal(t, q.Get("state"), stored)

	_, err = m.Authorize(context.Background(), nil)
	assert.ErrorIs(t, err, errs.Configuration)
	assert.Equal(t, oauth.Errored, m.State())
}

func TestStateMismatch(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, h.srv.OAuthProvider("mock"))

	tests := []struct {
		name   string
		mutate func(params url.Values, cookieJar map[string]string)
	}{
		{"different state", func(params url.Values, _ map[string]string) { params.Set("state", "forged") }},
		{"missing state param", func(params url.Values, _ map[string]string) { params.Del("state") }},
		{"missing state cookie", func(_ url.Values, cookieJar map[string]string) { delete(cookieJar, "authcore.state") }},
		{"garbled state cookie", func(_ url.Values, cookieJar map[string]string) { cookieJar["authcore.state"] = "junk" }},
		{"forged state with provider error", func(params url.Values, _ map[string]string) {
			params.Set("state", "forged")
			params.Set("error", "access_denied")
		}},
		{"provider error without state cookie", func(params url.Values, cookieJar map[string]string) {
			params.Set("error", "access_denied")
			delete(cookieJar, "authcore.state")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, cookieJar := h.authorize(t, p)
			tt.mutate(params, cookieJar)
			before := h.srv.TokenCalls.Load()

			m := h.client.NewMachine(p, h.checks)
			_, err := m.Callback(context.Background(), oauth.Callback{Params: params, Cookies: cookieJar})
			assert.ErrorIs(t, err, errs.StateMismatch)
			assert.Equal(t, oauth.Errored, m.State())
			assert.Equal(t, before, h.srv.TokenCalls.Load(), "no token call after a state mismatch")
		})
	}
}

func TestCallbackFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		edit  func(params url.Values, cookieJar map[string]string)
		oidc  bool
		want  errs.Kind
	}{
		{
			name: "provider error",
			edit: func(params url.Values, _ map[string]string) { params.Set("error", "access_denied") },
			want: errs.OAuthCallback,
		},
		{
			name: "missing pkce cookie",
			edit: func(_ url.Values, cookieJar map[string]string) { delete(cookieJar, "authcore.pkce.code_verifier") },
			want: errs.InvalidCheck,
		},
		{
			name:  "token endpoint failure",
			setup: func(h *harness) { h.srv.TokenError = true },
			want:  errs.OAuthToken,
		},
		{
			name:  "userinfo failure",
			setup: func(h *harness) { h.srv.UserInfoError = true },
			want:  errs.OAuthProfile,
		},
		{
			name:  "profile without id",
			setup: func(h *harness) { h.srv.UserInfo = map[string]any{"email": "x@example.com"} },
			want:  errs.OAuthProfile,
		},
		{
			name:  "wrong nonce",
			setup: func(h *harness) { h.srv.IDTokenNonce = "other-nonce" },
			oidc:  true,
			want:  errs.OIDCIDTokenInvalid,
		},
		{
			name: "missing nonce cookie",
			edit: func(_ url.Values, cookieJar map[string]string) { delete(cookieJar, "authcore.nonce") },
			oidc: true,
			want: errs.InvalidCheck,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			desc := h.srv.OAuthProvider("mock")
			if tt.oidc {
				desc = h.srv.OIDCProvider("mock")
			}
			p := h.provider(t, desc)
			params, cookieJar := h.authorize(t, p)
			if tt.setup != nil {
				tt.setup(h)
			}
			if tt.edit != nil {
				tt.edit(params, cookieJar)
			}
			m := h.client.NewMachine(p, h.checks)
			_, err := m.Callback(context.Background(), oauth.Callback{Params: params, Cookies: cookieJar})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, oauth.Errored, m.State())
			assert.Equal(t, err, m.Err())
		})
	}
}

func TestOIDCFlowVerifiesIDToken(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, h.srv.OIDCProvider("oidc"))

	for i := 0; i < 2; i++ {
		params, cookieJar := h.authorize(t, p)
		m := h.client.NewMachine(p, h.checks)
		out, err := m.Callback(context.Background(), oauth.Callback{Params: params, Cookies: cookieJar})
		require.NoError(t, err)
		assert.Equal(t, "12345", out.Profile.ID)
		assert.Equal(t, h.srv.Issuer(), out.IDTokenClaims["iss"])
		assert.NotEmpty(t, out.IDTokenClaims["nonce"])
	}
	assert.Equal(t, int32(1), h.srv.JWKSCalls.Load(), "jwks is cached across flows")
}

func TestIDTokenProfileSkipsUserInfo(t *testing.T) {
	h := newHarness(t)
	desc := h.srv.OIDCProvider("oidc")
	desc.IDTokenProfile = true
	p := h.provider(t, desc)

	params, cookieJar := h.authorize(t, p)
	m := h.client.NewMachine(p, h.checks)
	out, err := m.Callback(context.Background(), oauth.Callback{Params: params, Cookies: cookieJar})
	require.NoError(t, err)
	assert.Equal(t, "testuser@example.com", out.Profile.Email)
	assert.Equal(t, int32(0), h.srv.UserInfoCalls.Load())
}

func TestLinkRequiresProfile(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, h.srv.OAuthProvider("mock"))
	m := h.client.NewMachine(p, h.checks)
	assert.Error(t, m.Link())
	assert.Equal(t, oauth.Errored, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", oauth.Idle.String())
	assert.Equal(t, "Linked", oauth.Linked.String())
	assert.Equal(t, "Unknown", oauth.State(42).String())
}
