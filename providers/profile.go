package providers

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
)

// DefaultProfile maps the standard OIDC claims, falling back to the field
// names common in plain OAuth userinfo responses.
func DefaultProfile(ctx context.Context, raw map[string]any, token *oauth2.Token) (*Profile, error) {
	p := &Profile{
		ID:    Claim(raw, "sub", "id"),
		Name:  Claim(raw, "name", "login", "preferred_username"),
		Email: Claim(raw, "email"),
		Image: Claim(raw, "picture", "avatar_url", "image"),
		Raw:   raw,
	}
	if v, ok := raw["email_verified"].(bool); ok {
		p.EmailVerified = v
	}
	if p.ID == "" {
		return nil, fmt.Errorf("profile has no subject or id")
	}
	return p, nil
}

// Claim returns the first non-empty key of raw as a string. Numbers are
// formatted without exponent so numeric ids survive.
func Claim(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}
