package authcore_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/panyam/authcore"
	"github.com/panyam/authcore/adapters/fs"
	"github.com/panyam/authcore/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice@example.com"
	testPassword = "correct-horse"
)

// passwordProvider accepts testUser/testPassword. lookups counts calls to
// the lookup function.
func passwordProvider(t *testing.T, lookups *int) *providers.Credentials {
	t.Helper()
	hash, err := authcore.HashPassword(testPassword)
	require.NoError(t, err)
	return &providers.Credentials{
		ProviderID: "password",
		Authorize: authcore.NewPasswordAuthorizer(func(ctx context.Context, username, usernameType string) (*authcore.PasswordRecord, error) {
			if lookups != nil {
				*lookups++
			}
			if username != testUser {
				return nil, nil
			}
			assert.Equal(t, "email", usernameType)
			return &authcore.PasswordRecord{
				Profile:      &providers.Profile{ID: "alice", Email: testUser, Name: "Alice"},
				PasswordHash: hash,
			}, nil
		}),
	}
}

func credentialsEnv(t *testing.T, lookups *int) *testEnv {
	return newEnv(t, func(cfg *authcore.Config) {
		cfg.Session.Strategy = authcore.StrategyJWT
		cfg.Providers = append(cfg.Providers, passwordProvider(t, lookups))
	})
}

func TestCredentialsSignIn(t *testing.T) {
	env := credentialsEnv(t, nil)
	b := env.browser(t)

	resp := b.post("/auth/callback/password", url.Values{"username": {testUser}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, testBaseURL, resp.Redirect)
	assert.Equal(t, "alice", resp.SignedInUser())

	user := sessionUser(t, b.session())
	assert.Equal(t, "alice", user["id"])
	assert.Equal(t, "Alice", user["name"])

	// Credentials sign-ins never touch the user store
	assert.Equal(t, 0, countUsers(t, env))
}

func TestCredentialsViaSignInAction(t *testing.T) {
	env := credentialsEnv(t, nil)
	b := env.browser(t)
	resp := b.post("/auth/signin/password", url.Values{"username": {testUser}, "password": {testPassword}})
	assert.Equal(t, "alice", resp.SignedInUser())
}

func TestCredentialsWrongPassword(t *testing.T) {
	env := credentialsEnv(t, nil)
	b := env.browser(t)

	resp := b.post("/auth/callback/password", url.Values{"username": {testUser}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusFound, resp.Status)
	q := redirectQuery(t, resp)
	assert.Equal(t, string(authcore.ErrCredentialsSignin), q.Get("error"))
	assert.Equal(t, "credentials", q.Get("code"))
	assert.Contains(t, resp.Redirect, testBaseURL+"/auth/signin?")
	assert.Nil(t, b.session())

	// Unknown users look exactly the same
	resp = b.post("/auth/callback/password", url.Values{"username": {"bob@example.com"}, "password": {testPassword}})
	assert.Equal(t, string(authcore.ErrCredentialsSignin), redirectQuery(t, resp).Get("error"))
}

func TestCredentialsWrongPasswordJSON(t *testing.T) {
	env := credentialsEnv(t, nil)
	resp := env.browser(t).post("/auth/callback/password", url.Values{
		"username": {testUser},
		"password": {"nope-nope"},
		"json":     {"true"},
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, string(authcore.ErrCredentialsSignin), decodeBody(t, resp)["error"])
}

func TestCredentialsCallbackNeedsPostAndCSRF(t *testing.T) {
	var lookups int
	env := credentialsEnv(t, &lookups)
	b := env.browser(t)

	resp := b.get("/auth/callback/password?username=" + url.QueryEscape(testUser) + "&password=" + testPassword)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
	assert.Equal(t, string(authcore.ErrMethodNotAllowed), decodeBody(t, resp)["error"])

	resp = b.do(http.MethodPost, "/auth/callback/password", url.Values{"username": {testUser}, "password": {testPassword}})
	assert.Equal(t, string(authcore.ErrInvalidCSRF), redirectQuery(t, resp).Get("error"))
	assert.Equal(t, 0, lookups, "authorize must not run without a valid csrf token")
}

func TestHashPassword(t *testing.T) {
	_, err := authcore.HashPassword("short")
	assert.Error(t, err)

	hash, err := authcore.HashPassword("long-enough")
	require.NoError(t, err)
	assert.NotEqual(t, "long-enough", hash)
}

func TestPasswordAuthorizerLookupFailure(t *testing.T) {
	authorize := authcore.NewPasswordAuthorizer(func(ctx context.Context, username, usernameType string) (*authcore.PasswordRecord, error) {
		return nil, errors.New("db down")
	})
	profile, err := authorize(context.Background(), map[string]string{"username": "x", "password": "y"})
	assert.Error(t, err)
	assert.Nil(t, profile)

	profile, err = authorize(context.Background(), map[string]string{"username": "x"})
	assert.NoError(t, err)
	assert.Nil(t, profile, "missing fields are a rejection")
}

func TestDetectUsernameType(t *testing.T) {
	assert.Equal(t, "email", authcore.DetectUsernameType("a@b.c"))
	assert.Equal(t, "phone", authcore.DetectUsernameType("+15551234"))
	assert.Equal(t, "phone", authcore.DetectUsernameType("5551234"))
	assert.Equal(t, "username", authcore.DetectUsernameType("alice"))
}

func TestConfigValidation(t *testing.T) {
	t.Setenv(authcore.SecretEnvVar, "")
	srv := func() providers.Provider {
		return passwordProvider(t, nil)
	}
	cases := []struct {
		name string
		cfg  authcore.Config
	}{
		{"missing secret", authcore.Config{BaseURL: testBaseURL}},
		{"missing base url", authcore.Config{Secret: []string{testSecret}}},
		{"relative base url", authcore.Config{BaseURL: "/app", Secret: []string{testSecret}}},
		{"credentials with database sessions", authcore.Config{
			BaseURL:   testBaseURL,
			Secret:    []string{testSecret},
			Adapter:   fs.New(t.TempDir()),
			Providers: []providers.Provider{srv()},
		}},
		{"email without adapter", authcore.Config{
			BaseURL:   testBaseURL,
			Secret:    []string{testSecret},
			Providers: []providers.Provider{&providers.Email{ProviderID: "email", Sender: &mailbox{}}},
		}},
		{"database strategy without adapter", authcore.Config{
			BaseURL: testBaseURL,
			Secret:  []string{testSecret},
			Session: authcore.SessionConfig{Strategy: authcore.StrategyDatabase},
		}},
		{"duplicate provider ids", authcore.Config{
			BaseURL:   testBaseURL,
			Secret:    []string{testSecret},
			Providers: []providers.Provider{srv(), srv()},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := authcore.New(context.Background(), tc.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, authcore.ErrConfiguration)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv(authcore.SecretEnvVar, "from-the-environment")
	cfg := authcore.Config{BaseURL: testBaseURL + "/"}
	cfg.EnsureDefaults()
	assert.Equal(t, []string{"from-the-environment"}, cfg.Secret)
	assert.Equal(t, testBaseURL, cfg.BaseURL)
	assert.Equal(t, authcore.DefaultBasePath, cfg.BasePath)
	assert.Equal(t, authcore.StrategyJWT, cfg.Session.Strategy)
	assert.Equal(t, authcore.ExpirySliding, cfg.Session.Policy)
	assert.False(t, *cfg.UseSecureCookies)

	withAdapter := authcore.Config{BaseURL: "https://x.test", Adapter: fs.New(t.TempDir())}
	withAdapter.EnsureDefaults()
	assert.Equal(t, authcore.StrategyDatabase, withAdapter.Session.Strategy)
	assert.True(t, *withAdapter.UseSecureCookies)
}
