package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Google is an OIDC descriptor for accounts.google.com. Empty credentials
// fall back to AUTH_GOOGLE_ID and AUTH_GOOGLE_SECRET.
func Google(clientID, clientSecret string) *OAuth {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("AUTH_GOOGLE_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("AUTH_GOOGLE_SECRET"))
	}
	return &OAuth{
		ProviderID:     "google",
		DisplayName:    "Google",
		OIDC:           true,
		Issuer:         "https://accounts.google.com",
		Authorization:  Endpoint{URL: google.Endpoint.AuthURL},
		Token:          Endpoint{URL: google.Endpoint.TokenURL},
		UserInfo:       Endpoint{URL: "https://openidconnect.googleapis.com/v1/userinfo"},
		JWKSURL:        "https://www.googleapis.com/oauth2/v3/certs",
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		AuthStyle:      google.Endpoint.AuthStyle,
		Scopes:         []string{"openid", "email", "profile"},
		IDTokenProfile: true,
	}
}

// GitHub is a plain OAuth descriptor for github.com. Empty credentials fall
// back to AUTH_GITHUB_ID and AUTH_GITHUB_SECRET.
func GitHub(clientID, clientSecret string) *OAuth {
	return GitHubWithAPI(clientID, clientSecret, "https://api.github.com")
}

// GitHubWithAPI points the descriptor at another API base, such as a GitHub
// Enterprise host or a test server.
func GitHubWithAPI(clientID, clientSecret, apiBaseURL string) *OAuth {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("AUTH_GITHUB_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("AUTH_GITHUB_SECRET"))
	}
	apiBaseURL = strings.TrimRight(apiBaseURL, "/")
	return &OAuth{
		ProviderID:    "github",
		DisplayName:   "GitHub",
		Authorization: Endpoint{URL: github.Endpoint.AuthURL},
		Token:         Endpoint{URL: github.Endpoint.TokenURL},
		UserInfo:      Endpoint{URL: apiBaseURL + "/user"},
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Scopes:        []string{"read:user", "user:email"},
		Profile:       githubProfile(apiBaseURL + "/user/emails"),
	}
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// githubProfile maps GitHub's numeric id and login. Accounts with a private
// email get their primary verified address from the emails API.
func githubProfile(emailsURL string) ProfileFunc {
	return func(ctx context.Context, raw map[string]any, token *oauth2.Token) (*Profile, error) {
		p := &Profile{
			ID:    Claim(raw, "id"),
			Name:  Claim(raw, "name", "login"),
			Email: Claim(raw, "email"),
			Image: Claim(raw, "avatar_url"),
			Raw:   raw,
		}
		if p.ID == "" {
			return nil, fmt.Errorf("github profile has no id")
		}
		if p.Email == "" && token != nil {
			email, err := githubPrimaryEmail(ctx, emailsURL, token)
			if err != nil {
				return nil, err
			}
			p.Email = email
			p.EmailVerified = email != ""
		}
		return p, nil
	}
}

func githubPrimaryEmail(ctx context.Context, emailsURL string, token *oauth2.Token) (string, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, emailsURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed getting emails from github: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails returned status %d", resp.StatusCode)
	}
	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("failed to parse github emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}
