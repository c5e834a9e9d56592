package jwt

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded body of a session token. Values are whatever JSON
// decoding produces, so numbers come back as float64.
type Claims map[string]any

// Clone returns a shallow copy.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns claim key if it is a string.
func (c Claims) String(key string) string {
	s, _ := c[key].(string)
	return s
}

func (c Claims) Subject() string { return c.String("sub") }

// ExpiresAt reads "exp". The zero time means the claim is absent.
func (c Claims) ExpiresAt() time.Time {
	return c.numericDate(gojwt.MapClaims(c).GetExpirationTime)
}

// IssuedAt reads "iat". The zero time means the claim is absent.
func (c Claims) IssuedAt() time.Time {
	return c.numericDate(gojwt.MapClaims(c).GetIssuedAt)
}

func (c Claims) numericDate(get func() (*gojwt.NumericDate, error)) time.Time {
	d, err := get()
	if err != nil || d == nil {
		return time.Time{}
	}
	return d.Time
}
