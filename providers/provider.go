// Package providers describes the identity providers an engine accepts and
// normalizes them into an immutable registry.
//
// A provider is one of four closed variants: *OAuth (plain OAuth 2 or OIDC),
// *Email, *Credentials and *WebAuthn. Callers build descriptors, the registry
// fills defaults, runs OIDC discovery and rejects incomplete configuration.
package providers

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
)

// Type tags a provider variant.
type Type string

const (
	TypeOAuth       Type = "oauth"
	TypeOIDC        Type = "oidc"
	TypeEmail       Type = "email"
	TypeCredentials Type = "credentials"
	TypeWebAuthn    Type = "webauthn"
)

// Provider is implemented only by the variants in this package.
type Provider interface {
	ID() string
	Name() string
	Type() Type

	normalize(ctx context.Context, opts *Options) (Provider, error)
}

// Profile is what a provider reports about the signed-in person, already
// mapped to common fields. Raw keeps the provider's original payload.
type Profile struct {
	ID            string
	Name          string
	Email         string
	Image         string
	EmailVerified bool
	Raw           map[string]any
}

// ProfileFunc maps a provider's userinfo (or id_token claims) to a Profile.
// The context carries the engine's HTTP client for providers that need extra
// calls.
type ProfileFunc func(ctx context.Context, raw map[string]any, token *oauth2.Token) (*Profile, error)

// Endpoint is a URL plus extra query parameters sent to it.
type Endpoint struct {
	URL    string
	Params url.Values
}

func (e Endpoint) clone() Endpoint {
	out := Endpoint{URL: e.URL}
	if e.Params != nil {
		out.Params = url.Values{}
		for k, v := range e.Params {
			out.Params[k] = append([]string(nil), v...)
		}
	}
	return out
}
