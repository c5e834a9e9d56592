package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestDefaultProfile(t *testing.T) {
	p, err := DefaultProfile(context.Background(), map[string]any{
		"sub":            "abc",
		"name":           "Ann",
		"email":          "ann@example.com",
		"email_verified": true,
		"picture":        "https://img/ann.png",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "Ann", p.Name)
	assert.True(t, p.EmailVerified)
	assert.Equal(t, "https://img/ann.png", p.Image)

	_, err = DefaultProfile(context.Background(), map[string]any{"name": "nobody"}, nil)
	assert.Error(t, err)
}

func TestClaimFormatsNumbers(t *testing.T) {
	raw := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 583231, "login": "octocat"}`), &raw))
	assert.Equal(t, "583231", Claim(raw, "id"))
	assert.Equal(t, "octocat", Claim(raw, "name", "login"))
	assert.Equal(t, "", Claim(raw, "missing"))
}

func TestGitHubProfileFetchesPrimaryEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/emails", r.URL.Path)
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]githubEmail{
			{Email: "old@example.com", Primary: false, Verified: true},
			{Email: "octo@example.com", Primary: true, Verified: true},
		})
	}))
	defer srv.Close()

	d := GitHubWithAPI("cid", "secret", srv.URL)
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
	p, err := d.Profile(ctx, map[string]any{"id": float64(1), "login": "octocat"}, &oauth2.Token{AccessToken: "gh-token"})
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "octocat", p.Name)
	assert.Equal(t, "octo@example.com", p.Email)
	assert.True(t, p.EmailVerified)
}

func TestScopes(t *testing.T) {
	assert.Equal(t, []string{"openid", "email"}, ParseScopes("openid  email openid"))
	assert.Nil(t, ParseScopes(""))
	assert.Equal(t, "a b", JoinScopes([]string{"a", "b"}))
	assert.True(t, ContainsAllScopes([]string{"a", "b"}, []string{"b"}))
	assert.False(t, ContainsAllScopes([]string{"a"}, []string{"b"}))
}
