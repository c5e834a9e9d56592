package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/panyam/authcore/providers"
)

var idTokenMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"HS256", "HS384", "HS512",
}

var errKeyNotFound = errors.New("no matching key in jwks")

// verifyIDToken checks signature, issuer, audience, expiry and, when a nonce
// was sent, the nonce. HMAC-signed tokens are keyed by the client secret.
func (c *Client) verifyIDToken(ctx context.Context, p *providers.OAuth, raw, nonce string) (gojwt.MapClaims, error) {
	claims := gojwt.MapClaims{}
	_, err := gojwt.ParseWithClaims(raw, claims, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); ok {
			if p.ClientSecret == "" {
				return nil, fmt.Errorf("hmac id_token without client secret")
			}
			return []byte(p.ClientSecret), nil
		}
		kid, _ := t.Header["kid"].(string)
		return c.publicKey(ctx, p.JWKSURL, kid, t.Method.Alg())
	},
		gojwt.WithValidMethods(idTokenMethods),
		gojwt.WithIssuer(p.Issuer),
		gojwt.WithAudience(p.ClientID),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if nonce != "" {
		if got, _ := claims["nonce"].(string); got != nonce {
			return nil, fmt.Errorf("nonce mismatch")
		}
	}
	return claims, nil
}

// publicKey finds kid in the provider's key set. An unknown kid triggers one
// refetch so rotated keys are picked up.
func (c *Client) publicKey(ctx context.Context, jwksURL, kid, alg string) (any, error) {
	if jwksURL == "" {
		return nil, fmt.Errorf("provider has no jwks url")
	}
	for _, refresh := range []bool{false, true} {
		set, err := c.keySet(ctx, jwksURL, refresh)
		if err != nil {
			return nil, err
		}
		if key := pickKey(set, kid, alg); key != nil {
			return key, nil
		}
	}
	return nil, errKeyNotFound
}

func pickKey(set *jose.JSONWebKeySet, kid, alg string) any {
	candidates := set.Keys
	if kid != "" {
		candidates = set.Key(kid)
	}
	for _, k := range candidates {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if k.Algorithm != "" && k.Algorithm != alg {
			continue
		}
		return k.Key
	}
	return nil
}
