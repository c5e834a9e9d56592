package authcore_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/panyam/authcore"
	"github.com/panyam/authcore/adapters/fs"
	"github.com/panyam/authcore/oauthtest"
	"github.com/panyam/authcore/providers"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "http://app.test"
	testSecret  = "test-secret-that-is-long-enough-0123456789"
)

// clock is a settable time source shared by the engine under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Now().Truncate(time.Second)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mailbox collects verification requests instead of sending them.
type mailbox struct {
	mu   sync.Mutex
	sent []providers.VerificationRequest
}

func (m *mailbox) SendVerificationRequest(ctx context.Context, req providers.VerificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, req)
	return nil
}

func (m *mailbox) last(t *testing.T) providers.VerificationRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no verification request sent")
	return m.sent[len(m.sent)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv bundles an engine with its collaborators.
type testEnv struct {
	auth     *authcore.Auth
	adapter  *fs.Adapter
	provider *oauthtest.Server
	mail     *mailbox
	clock    *clock
}

// newEnv builds an engine backed by a file adapter in a temp dir, with an
// OAuth provider "mock", an OIDC provider "oidc" and an email provider
// "email". mutate adjusts the config before New.
func newEnv(t *testing.T, mutate func(*authcore.Config)) *testEnv {
	t.Helper()
	env := &testEnv{
		adapter:  fs.New(t.TempDir()),
		provider: oauthtest.NewServer(),
		mail:     &mailbox{},
		clock:    newClock(),
	}
	t.Cleanup(env.provider.Close)

	cfg := authcore.Config{
		BaseURL: testBaseURL,
		Secret:  []string{testSecret},
		Adapter: env.adapter,
		Providers: []providers.Provider{
			env.provider.OAuthProvider("mock"),
			env.provider.OIDCProvider("oidc"),
			&providers.Email{ProviderID: "email", Sender: env.mail},
		},
		Logger: quietLogger(),
		Now:    env.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	auth, err := authcore.New(context.Background(), cfg)
	require.NoError(t, err)
	env.auth = auth
	return env
}

// browser keeps cookies between engine calls the way a user agent would.
type browser struct {
	t    *testing.T
	auth *authcore.Auth
	jar  map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, auth: e.auth, jar: map[string]string{}}
}

// do sends one request. target is a path under the base URL or an
// absolute URL on it.
func (b *browser) do(method, target string, body url.Values) *authcore.Response {
	b.t.Helper()
	if !strings.HasPrefix(target, "http") {
		target = testBaseURL + target
	}
	h := http.Header{}
	for k, v := range b.jar {
		h.Add("Cookie", (&http.Cookie{Name: k, Value: v}).String())
	}
	req, err := authcore.NewRequest(method, target, b.auth.BasePath(), h, body)
	require.NoError(b.t, err)
	resp := b.auth.Handle(context.Background(), req)
	require.NotNil(b.t, resp)
	for _, c := range resp.Cookies {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.jar, c.Name)
		} else {
			b.jar[c.Name] = c.Value
		}
	}
	return resp
}

func (b *browser) get(target string) *authcore.Response {
	b.t.Helper()
	return b.do(http.MethodGet, target, nil)
}

// post submits body with the browser's csrf token.
func (b *browser) post(target string, body url.Values) *authcore.Response {
	b.t.Helper()
	if body == nil {
		body = url.Values{}
	}
	body.Set("csrfToken", b.csrfToken())
	return b.do(http.MethodPost, target, body)
}

func (b *browser) csrfToken() string {
	b.t.Helper()
	resp := b.get("/auth/csrf")
	require.Equal(b.t, http.StatusOK, resp.Status)
	token, _ := decodeBody(b.t, resp)["csrfToken"].(string)
	require.NotEmpty(b.t, token)
	return token
}

// session returns the decoded session body, nil when there is none.
func (b *browser) session() map[string]any {
	b.t.Helper()
	resp := b.get("/auth/session")
	require.Equal(b.t, http.StatusOK, resp.Status)
	return decodeBody(b.t, resp)
}

func (b *browser) sessionCookieNames() []string {
	var out []string
	name := b.auth.Cookies().SessionToken.Name
	for k := range b.jar {
		if k == name || strings.HasPrefix(k, name+".") {
			out = append(out, k)
		}
	}
	return out
}

// oauthSignIn runs the full redirect dance against the mock provider and
// returns the final callback response.
func (b *browser) oauthSignIn(srv *oauthtest.Server, providerID string) *authcore.Response {
	b.t.Helper()
	resp := b.post("/auth/signin/"+providerID, nil)
	require.Equal(b.t, http.StatusFound, resp.Status)
	require.True(b.t, strings.HasPrefix(resp.Redirect, srv.URL+"/authorize"), "redirect %q", resp.Redirect)

	params, err := srv.Approve(resp.Redirect)
	require.NoError(b.t, err)
	return b.get("/auth/callback/" + providerID + "?" + params.Encode())
}

// decodeBody round-trips the response body through JSON so tests see what
// a client would.
func decodeBody(t *testing.T, resp *authcore.Response) map[string]any {
	t.Helper()
	if resp.Body == nil {
		return nil
	}
	data, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func sessionUser(t *testing.T, sess map[string]any) map[string]any {
	t.Helper()
	require.NotNil(t, sess, "expected a session")
	user, ok := sess["user"].(map[string]any)
	require.True(t, ok, "session has no user: %v", sess)
	return user
}

func redirectQuery(t *testing.T, resp *authcore.Response) url.Values {
	t.Helper()
	u, err := url.Parse(resp.Redirect)
	require.NoError(t, err)
	return u.Query()
}
