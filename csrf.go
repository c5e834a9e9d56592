package authcore

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/panyam/authcore/crypto"
)

// loadCSRF reads the CSRF cookie, minting a fresh token when it is missing
// or forged, and checks a POST body's csrfToken against it. The cookie holds
// token|hmac(secret, token), so a forged cookie is simply replaced.
func (f *flow) loadCSRF() error {
	raw := f.req.Cookies[f.Auth.cookies.CSRFToken.Name]
	if token, sig, ok := strings.Cut(raw, "|"); ok && token != "" {
		for _, secret := range f.cfg.Secret {
			if crypto.Verify(token, sig, secret) {
				f.csrfToken = token
				break
			}
		}
	}
	if f.csrfToken == "" {
		token, err := crypto.RandomToken()
		if err != nil {
			return configError("generating csrf token: %v", err)
		}
		f.csrfToken = token
		value := token + "|" + crypto.Sign(token, f.cfg.Secret[0])
		f.setCookie(f.Auth.cookies.CSRFToken.New(value, f.now, time.Time{}))
		return nil
	}
	if f.req.Method == http.MethodPost {
		submitted := f.req.Body.Get("csrfToken")
		f.csrfVerified = submitted != "" &&
			subtle.ConstantTimeCompare([]byte(submitted), []byte(f.csrfToken)) == 1
	}
	return nil
}

// csrf answers with the current token. The cookie is only set when a new
// token was minted.
func (f *flow) csrf(ctx context.Context) (*Response, error) {
	return jsonResponse(http.StatusOK, map[string]string{"csrfToken": f.csrfToken}), nil
}
