package authcore_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/panyam/authcore"
	"github.com/panyam/authcore/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtStrategy(policy authcore.ExpiryPolicy) func(*authcore.Config) {
	return func(cfg *authcore.Config) {
		cfg.Session.Strategy = authcore.StrategyJWT
		cfg.Session.Policy = policy
	}
}

func TestSessionWithoutCookieIsNull(t *testing.T) {
	env := newEnv(t, nil)
	b := env.browser(t)
	resp := b.get("/auth/session")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Nil(t, decodeBody(t, resp))
}

func TestJWTSessionRoundTrip(t *testing.T) {
	env := newEnv(t, jwtStrategy(authcore.ExpirySliding))
	b := env.browser(t)
	resp := b.oauthSignIn(env.provider, "mock")
	require.NotEmpty(t, resp.SignedInUser())

	sess := b.session()
	user := sessionUser(t, sess)
	assert.Equal(t, resp.SignedInUser(), user["id"])
	assert.Equal(t, "testuser@example.com", user["email"])

	expires, err := time.Parse(time.RFC3339, sess["expires"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, env.clock.Now().Add(authcore.DefaultMaxAge), expires, time.Minute)
}

func TestSessionCookieMaxAgeFollowsClock(t *testing.T) {
	env := newEnv(t, jwtStrategy(authcore.ExpirySliding))
	env.clock.Advance(365 * 24 * time.Hour)
	resp := env.browser(t).oauthSignIn(env.provider, "mock")

	name := env.auth.Cookies().SessionToken.Name
	var found bool
	for _, c := range resp.Cookies {
		if c.Name == name {
			found = true
			assert.Equal(t, int(authcore.DefaultMaxAge.Seconds()), c.MaxAge)
			assert.True(t, env.clock.Now().Add(authcore.DefaultMaxAge).Equal(c.Expires))
		}
	}
	assert.True(t, found)
}

func TestJWTSessionSlidingReissues(t *testing.T) {
	env := newEnv(t, jwtStrategy(authcore.ExpirySliding))
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")
	name := env.auth.Cookies().SessionToken.Name
	issued := b.jar[name]

	// Young tokens are left alone
	env.clock.Advance(time.Hour)
	b.session()
	assert.Equal(t, issued, b.jar[name])

	env.clock.Advance(authcore.DefaultUpdateAge)
	b.session()
	require.NotEqual(t, issued, b.jar[name], "token past updateAge should be re-issued")

	// Each re-issue pushes expiry out, so regular use outlives maxAge
	for i := 0; i < 4; i++ {
		env.clock.Advance(10 * 24 * time.Hour)
		require.NotNil(t, b.session(), "round %d", i)
	}
}

func TestJWTSessionFixedExpires(t *testing.T) {
	env := newEnv(t, jwtStrategy(authcore.ExpiryFixed))
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")
	name := env.auth.Cookies().SessionToken.Name
	issued := b.jar[name]

	env.clock.Advance(2 * authcore.DefaultUpdateAge)
	require.NotNil(t, b.session())
	assert.Equal(t, issued, b.jar[name], "fixed sessions are never re-issued on read")

	env.clock.Advance(authcore.DefaultMaxAge)
	assert.Nil(t, b.session())
	assert.Empty(t, b.sessionCookieNames(), "expired token should be cleared")
}

func TestDatabaseSessionSlidingExtends(t *testing.T) {
	env := newEnv(t, nil)
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")
	token := b.jar[env.auth.Cookies().SessionToken.Name]
	require.NotEmpty(t, token)

	ctx := context.Background()
	before, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, before)

	env.clock.Advance(time.Hour)
	b.session()
	same, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)
	assert.True(t, before.Expires.Equal(same.Expires), "not yet due for extension")

	env.clock.Advance(authcore.DefaultUpdateAge)
	require.NotNil(t, b.session())
	after, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)
	assert.True(t, after.Expires.After(before.Expires))
	assert.Equal(t, token, b.jar[env.auth.Cookies().SessionToken.Name], "token itself is stable")
}

func TestDatabaseSessionFixedExpiresAndIsDeleted(t *testing.T) {
	env := newEnv(t, func(cfg *authcore.Config) {
		cfg.Session.Policy = authcore.ExpiryFixed
	})
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")
	token := b.jar[env.auth.Cookies().SessionToken.Name]

	ctx := context.Background()
	before, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)

	env.clock.Advance(2 * authcore.DefaultUpdateAge)
	require.NotNil(t, b.session())
	same, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)
	assert.True(t, before.Expires.Equal(same.Expires))

	env.clock.Advance(authcore.DefaultMaxAge)
	assert.Nil(t, b.session())
	gone, _, err := env.adapter.GetSessionAndUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, gone, "expired row should be deleted")
}

func TestLargeSessionIsChunked(t *testing.T) {
	blob := strings.Repeat("0123456789abcdef", 500)
	env := newEnv(t, func(cfg *authcore.Config) {
		cfg.Session.Strategy = authcore.StrategyJWT
		cfg.Callbacks.JWT = func(ctx context.Context, p authcore.JWTParams) (jwt.Claims, error) {
			if p.User != nil {
				p.Token["blob"] = blob
			}
			return p.Token, nil
		}
		cfg.Callbacks.Session = func(ctx context.Context, p authcore.SessionParams) (*authcore.SessionData, error) {
			p.Session.Extra = map[string]any{"blobLen": len(p.Token.String("blob"))}
			return p.Session, nil
		}
	})
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")

	names := b.sessionCookieNames()
	require.Greater(t, len(names), 1, "token should be split into chunks")
	name := env.auth.Cookies().SessionToken.Name
	assert.NotContains(t, names, name)
	assert.Contains(t, names, name+".0")
	for _, n := range names {
		assert.LessOrEqual(t, len(n)+len(b.jar[n]), 4096)
	}

	sess := b.session()
	sessionUser(t, sess)
	assert.EqualValues(t, len(blob), sess["blobLen"])

	// Losing a chunk loses the session
	delete(b.jar, name+".1")
	assert.Nil(t, b.session())
}

func TestTamperedSessionCookieIsAbsent(t *testing.T) {
	for _, strategy := range []authcore.SessionStrategy{authcore.StrategyJWT, authcore.StrategyDatabase} {
		t.Run(string(strategy), func(t *testing.T) {
			env := newEnv(t, func(cfg *authcore.Config) { cfg.Session.Strategy = strategy })
			b := env.browser(t)
			b.oauthSignIn(env.provider, "mock")
			name := env.auth.Cookies().SessionToken.Name
			value := b.jar[name]
			require.NotEmpty(t, value)

			flipped := []byte(value)
			mid := len(flipped) / 2
			if flipped[mid] == 'A' {
				flipped[mid] = 'B'
			} else {
				flipped[mid] = 'A'
			}
			b.jar[name] = string(flipped)
			assert.Nil(t, b.session())
		})
	}
}

func TestSessionUpdateReachesJWTCallback(t *testing.T) {
	env := newEnv(t, func(cfg *authcore.Config) {
		cfg.Session.Strategy = authcore.StrategyJWT
		cfg.Session.Policy = authcore.ExpiryFixed
		cfg.Callbacks.JWT = func(ctx context.Context, p authcore.JWTParams) (jwt.Claims, error) {
			if p.Trigger == authcore.TriggerUpdate && p.Update["name"] != "" {
				p.Token["name"] = p.Update["name"]
			}
			return p.Token, nil
		}
	})
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")
	issued := b.jar[env.auth.Cookies().SessionToken.Name]

	resp := b.post("/auth/session", map[string][]string{"name": {"Renamed"}})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Renamed", sessionUser(t, decodeBody(t, resp))["name"])
	assert.NotEqual(t, issued, b.jar[env.auth.Cookies().SessionToken.Name], "updates are re-issued under any policy")
	assert.Equal(t, "Renamed", sessionUser(t, b.session())["name"])
}

func TestSessionUpdateRequiresCSRF(t *testing.T) {
	env := newEnv(t, jwtStrategy(authcore.ExpirySliding))
	b := env.browser(t)
	b.oauthSignIn(env.provider, "mock")

	resp := b.do(http.MethodPost, "/auth/session", map[string][]string{"name": {"x"}})
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, string(authcore.ErrInvalidCSRF), decodeBody(t, resp)["error"])
}
