// Package jwt encodes and decodes stateless session tokens. Tokens are
// encrypted JWEs by default and signed HS256 JWTs when encryption is turned
// off. Decoding never returns an error: a token that cannot be trusted is
// simply absent.
package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/panyam/authcore/crypto"
)

// DefaultMaxAge is thirty days.
const DefaultMaxAge = 30 * 24 * time.Hour

var ErrNoSecret = errors.New("jwt: at least one secret is required")

// Codec turns Claims into tokens and back. The first secret encodes; every
// secret is tried when decoding, which lets secrets rotate.
type Codec struct {
	Secrets []string

	// Salt binds derived keys to one use, normally the cookie name.
	Salt string

	MaxAge time.Duration

	// Sign selects HS256 signing instead of encryption.
	Sign bool

	Now func() time.Time
}

// Result is the outcome of Decode.
type Result struct {
	Claims Claims
	Valid  bool
}

// Absent reports whether the token produced no claims.
func (r Result) Absent() bool { return !r.Valid }

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Codec) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return DefaultMaxAge
}

// Encode stamps iat, exp and jti onto a copy of claims and produces a token.
// A jti already present is kept.
func (c Codec) Encode(claims Claims) (string, error) {
	if len(c.Secrets) == 0 || c.Secrets[0] == "" {
		return "", ErrNoSecret
	}
	now := c.now()
	body := claims.Clone()
	body["iat"] = now.Unix()
	body["exp"] = now.Add(c.maxAge()).Unix()
	if body.String("jti") == "" {
		body["jti"] = uuid.NewString()
	}

	key, err := crypto.DeriveKey(c.Secrets[0], c.Salt)
	if err != nil {
		return "", err
	}
	if c.Sign {
		return gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims(body)).SignedString(key)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return crypto.EncryptAndSign(payload, key)
}

// Decode returns the claims of a well-formed, authentic, unexpired token.
func (c Codec) Decode(token string) Result {
	if token == "" {
		return Result{}
	}
	for _, secret := range c.Secrets {
		key, err := crypto.DeriveKey(secret, c.Salt)
		if err != nil {
			continue
		}
		claims, ok := c.open(token, key)
		if !ok {
			continue
		}
		exp := claims.ExpiresAt()
		if exp.IsZero() || !c.now().Before(exp) {
			return Result{}
		}
		return Result{Claims: claims, Valid: true}
	}
	return Result{}
}

func (c Codec) open(token string, key []byte) (Claims, bool) {
	if c.Sign {
		parsed, err := gojwt.Parse(token, func(t *gojwt.Token) (any, error) {
			return key, nil
		},
			gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
			gojwt.WithTimeFunc(c.now),
		)
		if err != nil || !parsed.Valid {
			return nil, false
		}
		mc, ok := parsed.Claims.(gojwt.MapClaims)
		return Claims(mc), ok
	}
	payload, ok := crypto.VerifyAndDecrypt(token, key)
	if !ok {
		return nil, false
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	return claims, true
}
