package authcore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/panyam/authcore"
	"github.com/panyam/authcore/providers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type httpApp struct {
	srv      *httptest.Server
	auth     *authcore.Auth
	sessions *scs.SessionManager
	metrics  *authcore.Metrics
	client   *http.Client
}

// newHTTPApp serves the engine next to two application routes: /api/me,
// guarded by Middleware, and /api/mirror, which reports the user id held in
// the server session.
func newHTTPApp(t *testing.T) *httpApp {
	t.Helper()
	app := &httpApp{sessions: scs.New(), metrics: authcore.NewMetrics(prometheus.NewRegistry())}

	var handler http.Handler
	app.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(app.srv.Close)

	auth, err := authcore.New(context.Background(), authcore.Config{
		BaseURL:       app.srv.URL,
		Secret:        []string{testSecret},
		Providers:     []providers.Provider{passwordProvider(t, nil)},
		Logger:        quietLogger(),
		Metrics:       app.metrics,
		ServerSession: app.sessions,
	})
	require.NoError(t, err)
	app.auth = auth

	mw := &authcore.Middleware{Auth: auth, Sessions: app.sessions}
	mux := http.NewServeMux()
	mux.Handle("/auth/", auth.Handler())
	mux.Handle("/api/me", app.sessions.LoadAndSave(mw.EnsureUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, authcore.UserIDFromContext(r.Context()))
	}))))
	mux.Handle("/api/mirror", app.sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, app.sessions.GetString(r.Context(), authcore.SessionUserKey))
	})))
	handler = mux

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	app.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return app
}

func (a *httpApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + "/auth/csrf")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.CSRFToken)
	return body.CSRFToken
}

func (a *httpApp) getText(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHTTPSignInMirrorsIntoServerSession(t *testing.T) {
	app := newHTTPApp(t)

	status, _ := app.getText(t, "/api/me")
	assert.Equal(t, http.StatusUnauthorized, status)

	resp, err := app.client.PostForm(app.srv.URL+"/auth/callback/password", url.Values{
		"csrfToken": {app.csrfToken(t)},
		"username":  {testUser},
		"password":  {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, app.srv.URL, resp.Header.Get("Location"))

	status, body := app.getText(t, "/api/me")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)

	_, mirrored := app.getText(t, "/api/mirror")
	assert.Equal(t, "alice", mirrored)

	resp, err = app.client.PostForm(app.srv.URL+"/auth/signout", url.Values{"csrfToken": {app.csrfToken(t)}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, mirrored = app.getText(t, "/api/mirror")
	assert.Empty(t, mirrored)
	status, _ = app.getText(t, "/api/me")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHTTPJSONBody(t *testing.T) {
	app := newHTTPApp(t)
	payload, err := json.Marshal(map[string]any{
		"csrfToken": app.csrfToken(t),
		"username":  testUser,
		"password":  testPassword,
		"json":      true,
	})
	require.NoError(t, err)

	resp, err := app.client.Post(app.srv.URL+"/auth/callback/password", "application/json", strings.NewReader(string(payload)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, app.srv.URL, body["url"])
}

func TestHTTPBearerToken(t *testing.T) {
	app := newHTTPApp(t)
	resp, err := app.client.PostForm(app.srv.URL+"/auth/callback/password", url.Values{
		"csrfToken": {app.csrfToken(t)},
		"username":  {testUser},
		"password":  {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == app.auth.Cookies().SessionToken.Name {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	// A client with no cookies at all, only the bearer header
	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	bare, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer bare.Body.Close()
	data, _ := io.ReadAll(bare.Body)
	assert.Equal(t, http.StatusOK, bare.StatusCode)
	assert.Equal(t, "alice", string(data))

	uid, err := app.auth.ResolveSessionToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", uid)
	uid, err = app.auth.ResolveSessionToken(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Empty(t, uid)
}

func TestEnsureUserRedirects(t *testing.T) {
	app := newHTTPApp(t)
	mw := &authcore.Middleware{
		Auth:        app.auth,
		GetRedirURL: func(r *http.Request) string { return app.auth.SignInURL("") },
	}
	h := mw.EnsureUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private/page", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/signin", loc.Path)
	assert.Equal(t, "/private/page", loc.Query().Get("callbackUrl"))
}

func TestMetricsRecorded(t *testing.T) {
	app := newHTTPApp(t)
	app.csrfToken(t)
	app.getText(t, "/auth/nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.Requests.WithLabelValues("csrf", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.Requests.WithLabelValues("unknown", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.Errors.WithLabelValues(string(authcore.ErrUnknownAction))))
}

func TestWriteResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, authcore.WriteResponse(rec, &authcore.Response{Status: http.StatusFound, Redirect: "/next"}))
	assert.Equal(t, "/next", rec.Header().Get("Location"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	err := authcore.WriteResponse(rec, &authcore.Response{Status: http.StatusOK, Body: map[string]any{"bad": make(chan int)}})
	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	auth, err := authcore.New(context.Background(), authcore.Config{
		BaseURL:   testBaseURL,
		Secret:    []string{testSecret},
		Providers: []providers.Provider{passwordProvider(t, nil)},
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		Callbacks: authcore.Callbacks{
			Session: func(ctx context.Context, p authcore.SessionParams) (*authcore.SessionData, error) {
				p.Session.Extra = map[string]any{"bad": make(chan int)}
				return p.Session, nil
			},
		},
	})
	require.NoError(t, err)

	b := &browser{t: t, auth: auth, jar: map[string]string{}}
	resp := b.post("/auth/callback/password", url.Values{"username": {testUser}, "password": {testPassword}})
	require.Equal(t, "alice", resp.SignedInUser())

	req := httptest.NewRequest(http.MethodGet, testBaseURL+"/auth/session", nil)
	for name, value := range b.jar {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	auth.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "writing response failed")
}
