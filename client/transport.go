package client

import (
	"net/http"
)

// AuthTransport sends Token as a bearer credential on every request.
type AuthTransport struct {
	Base  http.RoundTripper
	Token string

	// Header defaults to Authorization. Servers that read the token from
	// another header (Middleware.AuthTokenHeaderName) set it here.
	Header string
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token != "" {
		header := t.Header
		if header == "" {
			header = "Authorization"
		}
		// Clone the request to avoid mutating the original
		req = req.Clone(req.Context())
		req.Header.Set(header, "Bearer "+t.Token)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewAuthTransport creates an AuthTransport with the given session token
func NewAuthTransport(token string) *AuthTransport {
	return NewAuthTransportWithBase(http.DefaultTransport, token)
}

// NewAuthTransportWithBase creates an AuthTransport with a custom base transport
func NewAuthTransportWithBase(base http.RoundTripper, token string) *AuthTransport {
	return &AuthTransport{
		Base:  base,
		Token: token,
	}
}
