package oauth

import (
	"net/http"
	"time"

	"github.com/panyam/authcore/cookies"
	"github.com/panyam/authcore/jwt"
)

// DefaultCheckMaxAge bounds how long a user may take at the provider.
const DefaultCheckMaxAge = 15 * time.Minute

// Checks seals per-flow values (state, PKCE verifier, nonce, challenges)
// into short-lived encrypted cookies and opens them on the way back. Each
// cookie is encrypted under a key salted with its own name.
type Checks struct {
	Secrets []string
	Cookies cookies.Set
	MaxAge  time.Duration
	Now     func() time.Time
}

func (c *Checks) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Checks) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return DefaultCheckMaxAge
}

func (c *Checks) codec(cookie cookies.Cookie) jwt.Codec {
	return jwt.Codec{Secrets: c.Secrets, Salt: cookie.Name, MaxAge: c.maxAge(), Now: c.now}
}

// Seal stores value in cookie.
func (c *Checks) Seal(cookie cookies.Cookie, value string) (*http.Cookie, error) {
	token, err := c.codec(cookie).Encode(jwt.Claims{"value": value})
	if err != nil {
		return nil, err
	}
	now := c.now()
	return cookie.New(token, now, now.Add(c.maxAge())), nil
}

// Open reads back a value stored by Seal. Missing, expired or forged
// cookies report false.
func (c *Checks) Open(cookie cookies.Cookie, reqCookies map[string]string) (string, bool) {
	raw, ok := reqCookies[cookie.Name]
	if !ok {
		return "", false
	}
	res := c.codec(cookie).Decode(raw)
	if res.Absent() {
		return "", false
	}
	v := res.Claims.String("value")
	return v, v != ""
}
