package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/panyam/authcore/cookies"
)

// RefreshThreshold is how long before expiry the client asks the server to
// extend the session.
const RefreshThreshold = 24 * time.Hour

// ErrNotSignedIn is returned when the server has no session for the client.
var ErrNotSignedIn = errors.New("not signed in")

// AuthClient is an HTTP client that signs in to an authcore server and
// sends its session token on every request.
type AuthClient struct {
	mu            sync.Mutex
	serverURL     string
	basePath      string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
	sessionCookie cookies.Cookie
}

// SessionUser is the user part of a session.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// Session is the body of the server's session action.
type Session struct {
	User    *SessionUser `json:"user"`
	Expires time.Time    `json:"expires"`
}

// ProviderInfo describes one sign-in provider offered by the server.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithBasePath sets where the server mounts its auth actions (default "/auth").
func WithBasePath(path string) ClientOption {
	return func(c *AuthClient) {
		c.basePath = "/" + strings.Trim(path, "/")
	}
}

// WithCookiePrefix matches a server configured with a custom cookie
// prefix or secure cookies.
func WithCookiePrefix(prefix string, secure bool) ClientOption {
	return func(c *AuthClient) {
		c.sessionCookie = cookies.Defaults(prefix, secure).SessionToken
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		if client != nil {
			c.httpClient.Timeout = client.Timeout
			c.httpClient.CheckRedirect = client.CheckRedirect
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.baseTransport = transport
	}
}

// NewAuthClient creates a new authenticated HTTP client for a server
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	u, err := url.Parse(serverURL)
	secure := false
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		secure = u.Scheme == "https"
	}

	c := &AuthClient{
		serverURL:     serverURL,
		basePath:      "/auth",
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
		sessionCookie: cookies.Defaults("", secure).SessionToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &sessionTransport{
		client: c,
		base:   c.baseTransport,
	}
	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

func (c *AuthClient) actionURL(action string, parts ...string) string {
	u := c.serverURL + c.basePath + "/" + action
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// flowClient is a fresh cookie-keeping client on the base transport, used
// for one sign-in or sign-out exchange. It never follows redirects.
func (c *AuthClient) flowClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Transport: c.baseTransport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// GetToken returns the current session token, extending the session on
// the server when it is close to expiry.
func (c *AuthClient) GetToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", nil
	}

	if cred.IsExpiringSoon(RefreshThreshold) && !cred.IsExpired() {
		if err := c.refreshSessionLocked(context.Background(), cred); err != nil {
			// A failed refresh still leaves a usable token until it expires
			if !errors.Is(err, ErrNotSignedIn) {
				return cred.SessionToken, nil
			}
			return "", err
		}
		cred, _ = c.store.GetCredential(c.serverURL)
	}

	if cred == nil || cred.IsExpired() {
		return "", nil
	}
	return cred.SessionToken, nil
}

// GetCredential returns the stored credential for this server
func (c *AuthClient) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// csrfToken fetches a token from the csrf action. The token is only valid
// together with the cookie the same client received.
func (c *AuthClient) csrfToken(ctx context.Context, hc *http.Client) (string, error) {
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.getJSON(ctx, hc, c.actionURL("csrf"), &body); err != nil {
		return "", err
	}
	if body.CSRFToken == "" {
		return "", errors.New("server returned no csrf token")
	}
	return body.CSRFToken, nil
}

// Providers lists the sign-in providers the server offers.
func (c *AuthClient) Providers(ctx context.Context) (map[string]ProviderInfo, error) {
	out := map[string]ProviderInfo{}
	if err := c.getJSON(ctx, c.flowClient(), c.actionURL("providers"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login signs in with a credentials provider and stores the session.
func (c *AuthClient) Login(ctx context.Context, providerID, username, password string) (*ServerCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hc := c.flowClient()
	csrf, err := c.csrfToken(ctx, hc)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"csrfToken": {csrf},
		"username":  {username},
		"password":  {password},
		"json":      {"true"},
	}
	var result struct {
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, hc, c.actionURL("callback", providerID), form, &result); err != nil {
		return nil, err
	}
	if u, err := url.Parse(result.URL); err == nil {
		if code := u.Query().Get("error"); code != "" {
			return nil, fmt.Errorf("authentication failed: %s", code)
		}
	}

	token, ok := c.readSessionCookie(hc)
	if !ok {
		return nil, errors.New("authentication failed: no session issued")
	}
	cred, err := c.fetchSession(ctx, hc, token)
	if err != nil {
		return nil, err
	}
	cred.Provider = providerID
	cred.CreatedAt = time.Now()

	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

// Logout ends the session on the server and removes the stored credential.
// The local credential is removed even when the server cannot be reached.
func (c *AuthClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return err
	}
	var serverErr error
	if cred != nil && cred.SessionToken != "" {
		serverErr = c.signOutLocked(ctx, cred.SessionToken)
	}

	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	if err := c.store.Save(); err != nil {
		return err
	}
	return serverErr
}

func (c *AuthClient) signOutLocked(ctx context.Context, token string) error {
	hc := c.flowClient()
	c.setSessionCookie(hc, token)
	csrf, err := c.csrfToken(ctx, hc)
	if err != nil {
		return err
	}
	form := url.Values{"csrfToken": {csrf}, "json": {"true"}}
	return c.postForm(ctx, hc, c.actionURL("signout"), form, nil)
}

// IsLoggedIn returns true if there is a valid (non-expired) credential
func (c *AuthClient) IsLoggedIn() bool {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return false
	}
	return !cred.IsExpired()
}

// Session asks the server for the current session.
func (c *AuthClient) Session(ctx context.Context) (*Session, error) {
	token, err := c.GetToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotSignedIn
	}
	hc := c.flowClient()
	c.setSessionCookie(hc, token)
	var sess *Session
	if err := c.getJSON(ctx, hc, c.actionURL("session"), &sess); err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	return sess, nil
}

// refreshSessionLocked reads the session action with the stored token. The
// server extends the session and may issue a new token.
// Caller must hold c.mu
func (c *AuthClient) refreshSessionLocked(ctx context.Context, cred *ServerCredential) error {
	hc := c.flowClient()
	c.setSessionCookie(hc, cred.SessionToken)
	next, err := c.fetchSession(ctx, hc, cred.SessionToken)
	if errors.Is(err, ErrNotSignedIn) {
		c.store.RemoveCredential(c.serverURL)
		c.store.Save()
		return err
	}
	if err != nil {
		return err
	}
	next.Provider = cred.Provider
	next.CreatedAt = cred.CreatedAt
	if err := c.store.SetCredential(c.serverURL, next); err != nil {
		return fmt.Errorf("failed to store refreshed credential: %w", err)
	}
	return c.store.Save()
}

// fetchSession calls the session action and builds a credential from the
// answer. A token re-issued by the server replaces token.
func (c *AuthClient) fetchSession(ctx context.Context, hc *http.Client, token string) (*ServerCredential, error) {
	var sess *Session
	if err := c.getJSON(ctx, hc, c.actionURL("session"), &sess); err != nil {
		return nil, err
	}
	if sess == nil || sess.User == nil {
		return nil, ErrNotSignedIn
	}
	if reissued, ok := c.readSessionCookie(hc); ok {
		token = reissued
	}
	return &ServerCredential{
		SessionToken: token,
		UserID:       sess.User.ID,
		UserEmail:    sess.User.Email,
		UserName:     sess.User.Name,
		ExpiresAt:    sess.Expires,
	}, nil
}

func (c *AuthClient) jarURL() *url.URL {
	u, _ := url.Parse(c.serverURL + "/")
	return u
}

// readSessionCookie reassembles the session token from the jar.
func (c *AuthClient) readSessionCookie(hc *http.Client) (string, bool) {
	jar := map[string]string{}
	for _, ck := range hc.Jar.Cookies(c.jarURL()) {
		jar[ck.Name] = ck.Value
	}
	return c.sessionCookie.Read(jar)
}

func (c *AuthClient) setSessionCookie(hc *http.Client, token string) {
	hc.Jar.SetCookies(c.jarURL(), c.sessionCookie.Chunk(token, time.Now(), time.Time{}, nil))
}

func (c *AuthClient) getJSON(ctx context.Context, hc *http.Client, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(hc, req, out)
}

func (c *AuthClient) postForm(ctx context.Context, hc *http.Client, target string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(hc, req, out)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *AuthClient) do(hc *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			if er.Message != "" {
				return fmt.Errorf("%s: %s", er.Error, er.Message)
			}
			return fmt.Errorf("request failed: %s", er.Error)
		}
		return fmt.Errorf("request failed: HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}

// sessionTransport is an http.RoundTripper that sends the session token as
// a bearer header.
type sessionTransport struct {
	client *AuthClient
	base   http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.client.GetToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return t.base.RoundTrip(req)
	}
	return NewAuthTransportWithBase(t.base, token).RoundTrip(req)
}
