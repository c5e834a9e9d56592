// Package oauthtest runs an in-process OAuth 2 / OpenID Connect provider for
// tests. It serves discovery, token, userinfo and JWKS endpoints, enforces
// PKCE, and signs id_tokens with a generated RSA key.
package oauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-jose/go-jose/v4"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/providers"
)

const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
)

type grant struct {
	challenge string
	nonce     string
	openid    bool
}

// Server is a mock provider. Mutate the exported fields before a flow to
// change what it answers.
type Server struct {
	*httptest.Server

	Key   *rsa.PrivateKey
	KeyID string

	// UserInfo is returned by /userinfo and merged into id_tokens.
	UserInfo map[string]any

	TokenError    bool
	UserInfoError bool

	// IDTokenNonce, when set, replaces the nonce echoed in id_tokens.
	IDTokenNonce string

	TokenCalls    atomic.Int32
	UserInfoCalls atomic.Int32
	JWKSCalls     atomic.Int32

	mu     sync.Mutex
	grants map[string]grant
}

// NewServer starts a provider. Call Close when done.
func NewServer() *Server {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(fmt.Sprintf("oauthtest: generating key: %v", err))
	}
	s := &Server{
		Key:   key,
		KeyID: "test-key",
		UserInfo: map[string]any{
			"sub":     "12345",
			"email":   "testuser@example.com",
			"name":    "Test User",
			"picture": "https://example.com/avatar.png",
		},
		grants: map[string]grant{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", s.handleDiscovery)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/userinfo", s.handleUserInfo)
	mux.HandleFunc("/jwks", s.handleJWKS)
	s.Server = httptest.NewServer(mux)
	return s
}

// Issuer is the server's base URL.
func (s *Server) Issuer() string { return s.URL }

// OAuthProvider is a plain OAuth descriptor for this server.
func (s *Server) OAuthProvider(id string) *providers.OAuth {
	return &providers.OAuth{
		ProviderID:    id,
		DisplayName:   "Mock " + id,
		Authorization: providers.Endpoint{URL: s.URL + "/authorize"},
		Token:         providers.Endpoint{URL: s.URL + "/token"},
		UserInfo:      providers.Endpoint{URL: s.URL + "/userinfo"},
		ClientID:      ClientID,
		ClientSecret:  ClientSecret,
		Scopes:        []string{"profile", "email"},
	}
}

// OIDCProvider is an OIDC descriptor that relies on discovery.
func (s *Server) OIDCProvider(id string) *providers.OAuth {
	return &providers.OAuth{
		ProviderID:   id,
		DisplayName:  "Mock " + id,
		OIDC:         true,
		Issuer:       s.URL,
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
	}
}

// Approve plays the user consenting at the authorization URL and returns
// the parameters the provider would send to the callback.
func (s *Server) Approve(authURL string) (url.Values, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if q.Get("client_id") != ClientID {
		return nil, fmt.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		return nil, fmt.Errorf("unexpected response_type %q", q.Get("response_type"))
	}
	if m := q.Get("code_challenge_method"); m != "" && m != "S256" {
		return nil, fmt.Errorf("unexpected code_challenge_method %q", m)
	}
	code, err := crypto.RandomString(16)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.grants[code] = grant{
		challenge: q.Get("code_challenge"),
		nonce:     q.Get("nonce"),
		openid:    providers.ContainsAllScopes(providers.ParseScopes(q.Get("scope")), []string{"openid"}),
	}
	s.mu.Unlock()

	out := url.Values{"code": {code}}
	if st := q.Get("state"); st != "" {
		out.Set("state", st)
	}
	return out, nil
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                 s.URL,
		"authorization_endpoint": s.URL + "/authorize",
		"token_endpoint":         s.URL + "/token",
		"userinfo_endpoint":      s.URL + "/userinfo",
		"jwks_uri":               s.URL + "/jwks",
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.TokenCalls.Add(1)
	if s.TokenError {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if id != ClientID || subtle.ConstantTimeCompare([]byte(secret), []byte(ClientSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
		return
	}

	code := r.PostForm.Get("code")
	s.mu.Lock()
	g, found := s.grants[code]
	delete(s.grants, code)
	s.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		return
	}
	if g.challenge != "" && crypto.PKCEChallenge(r.PostForm.Get("code_verifier")) != g.challenge {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "pkce mismatch"})
		return
	}

	resp := map[string]any{
		"access_token":  "mock_access_token",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "mock_refresh_token",
		"scope":         "openid profile email",
	}
	if g.openid {
		idToken, err := s.SignIDToken(g.nonce)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "server_error"})
			return
		}
		resp["id_token"] = idToken
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignIDToken mints an RS256 id_token for the current UserInfo.
func (s *Server) SignIDToken(nonce string) (string, error) {
	if s.IDTokenNonce != "" {
		nonce = s.IDTokenNonce
	}
	now := time.Now()
	claims := gojwt.MapClaims{}
	for k, v := range s.UserInfo {
		claims[k] = v
	}
	claims["iss"] = s.URL
	claims["aud"] = ClientID
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(time.Hour).Unix()
	if nonce != "" {
		claims["nonce"] = nonce
	}
	tok := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.KeyID
	return tok.SignedString(s.Key)
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	s.UserInfoCalls.Add(1)
	if s.UserInfoError || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "user info failed", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.UserInfo)
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	s.JWKSCalls.Add(1)
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.Key.PublicKey,
		KeyID:     s.KeyID,
		Algorithm: "RS256",
		Use:       "sig",
	}}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
