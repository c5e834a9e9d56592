package authcore

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/panyam/authcore/cookies"
	"github.com/panyam/authcore/jwt"
	"github.com/panyam/authcore/providers"
)

// SessionStrategy selects where sessions live.
type SessionStrategy string

const (
	// StrategyJWT keeps the whole session in an encrypted cookie.
	StrategyJWT SessionStrategy = "jwt"

	// StrategyDatabase keeps sessions in the Adapter; the cookie carries
	// only the session token.
	StrategyDatabase SessionStrategy = "database"
)

// ExpiryPolicy decides whether reading a session extends it.
type ExpiryPolicy string

const (
	ExpirySliding ExpiryPolicy = "sliding"
	ExpiryFixed   ExpiryPolicy = "fixed"
)

const (
	DefaultBasePath  = "/auth"
	DefaultMaxAge    = 30 * 24 * time.Hour
	DefaultUpdateAge = 24 * time.Hour

	// SecretEnvVar is read when Config.Secret is empty.
	SecretEnvVar = "AUTHCORE_SECRET"
)

type SessionConfig struct {
	// Strategy defaults to database when an Adapter is set, jwt otherwise.
	Strategy SessionStrategy

	MaxAge time.Duration

	// UpdateAge is how old a session must be before a read extends it.
	// Only used by the sliding policy.
	UpdateAge time.Duration

	Policy ExpiryPolicy

	GenerateSessionToken func() (string, error)
}

type JWTConfig struct {
	// MaxAge defaults to Session.MaxAge.
	MaxAge time.Duration

	// Sign produces HS256 tokens instead of encrypted ones.
	Sign bool
}

// Pages are application URLs the engine redirects to instead of answering
// with JSON. Empty pages fall back to the engine's own actions.
type Pages struct {
	SignIn        string
	SignOut       string
	Error         string
	VerifyRequest string
	NewUser       string
}

type Config struct {
	// BaseURL is the scheme and host the engine is reached on, e.g.
	// https://example.com. It decides cookie security and redirect origins.
	BaseURL  string
	BasePath string

	// Secret holds one or more secrets. The first encrypts; all decrypt.
	Secret []string

	Providers []providers.Provider
	Adapter   Adapter

	Session SessionConfig
	JWT     JWTConfig

	CookiePrefix string

	// UseSecureCookies defaults to true when BaseURL is https.
	UseSecureCookies *bool

	// Cookies overrides individual cookie definitions.
	Cookies cookies.Set

	Pages     Pages
	Callbacks Callbacks
	Events    Events

	Logger     *slog.Logger
	Metrics    *Metrics
	HTTPClient *http.Client

	// ServerSession, when set, has the HTTP handler mirror the signed-in
	// user id into it.
	ServerSession *scs.SessionManager

	Now func() time.Time
}

// EnsureDefaults fills unset fields. It is idempotent.
func (c *Config) EnsureDefaults() *Config {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	c.BasePath = "/" + strings.Trim(c.BasePath, "/")
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if len(c.Secret) == 0 {
		if s := strings.TrimSpace(os.Getenv(SecretEnvVar)); s != "" {
			c.Secret = []string{s}
		}
	}
	if c.Session.Strategy == "" {
		c.Session.Strategy = StrategyJWT
		if c.Adapter != nil {
			c.Session.Strategy = StrategyDatabase
		}
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = DefaultMaxAge
	}
	if c.Session.UpdateAge <= 0 {
		c.Session.UpdateAge = DefaultUpdateAge
	}
	if c.Session.Policy == "" {
		c.Session.Policy = ExpirySliding
	}
	if c.JWT.MaxAge <= 0 {
		c.JWT.MaxAge = c.Session.MaxAge
	}
	if c.CookiePrefix == "" {
		c.CookiePrefix = cookies.DefaultPrefix
	}
	if c.UseSecureCookies == nil {
		secure := strings.HasPrefix(c.BaseURL, "https://")
		c.UseSecureCookies = &secure
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// validate runs after EnsureDefaults and providers are normalized.
func (c *Config) validate(reg *providers.Registry) error {
	if len(c.Secret) == 0 || c.Secret[0] == "" {
		return configError("missing secret: set Config.Secret or %s", SecretEnvVar)
	}
	if c.BaseURL == "" {
		return configError("missing baseURL")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return configError("invalid baseURL %q", c.BaseURL)
	}
	switch c.Session.Strategy {
	case StrategyJWT:
	case StrategyDatabase:
		if c.Adapter == nil {
			return configError("session strategy %q requires an adapter", c.Session.Strategy)
		}
	default:
		return configError("unknown session strategy %q", c.Session.Strategy)
	}
	switch c.Session.Policy {
	case ExpiryFixed, ExpirySliding:
	default:
		return configError("unknown expiry policy %q", c.Session.Policy)
	}
	if c.Session.UpdateAge > c.Session.MaxAge {
		return configError("session updateAge exceeds maxAge")
	}
	for _, p := range reg.List() {
		switch p.Type() {
		case providers.TypeEmail:
			if c.Adapter == nil {
				return configError("email provider %q requires an adapter", p.ID())
			}
		case providers.TypeCredentials:
			if c.Session.Strategy != StrategyJWT {
				return configError("credentials provider %q requires the jwt session strategy", p.ID())
			}
		}
	}
	return nil
}

func (c *Config) jwtCodec() jwt.Codec {
	return jwt.Codec{
		Secrets: c.Secret,
		Salt:    c.cookieSet().SessionToken.Name,
		MaxAge:  c.JWT.MaxAge,
		Sign:    c.JWT.Sign,
		Now:     c.Now,
	}
}

func (c *Config) cookieSet() cookies.Set {
	return cookies.Defaults(c.CookiePrefix, *c.UseSecureCookies).Merge(c.Cookies)
}
