package authcore

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/panyam/authcore/jwt"
	"github.com/panyam/authcore/providers"
)

// JWTTrigger says why the JWT callback runs.
type JWTTrigger string

const (
	TriggerSignIn JWTTrigger = "signIn"
	TriggerSignUp JWTTrigger = "signUp"
	TriggerUpdate JWTTrigger = "update"
)

// SignInParams describe a sign-in about to complete.
type SignInParams struct {
	User     *User
	Account  *Account
	Profile  *providers.Profile
	Provider providers.Provider

	// VerificationRequest is set when an email sign-in asks for a link,
	// before any user exists.
	VerificationRequest bool
}

// JWTParams feed the JWT callback. User, Account and Profile are set only
// on sign-in.
type JWTParams struct {
	Token   jwt.Claims
	User    *User
	Account *Account
	Profile *providers.Profile
	Trigger JWTTrigger

	// IsNewUser is set on sign-up.
	IsNewUser bool

	// Update is the body of a session update request.
	Update map[string]string
}

// SessionParams feed the Session callback. Token is set for the jwt
// strategy; User and Session for the database strategy.
type SessionParams struct {
	Session *SessionData
	Token   jwt.Claims
	User    *User

	// Update is the body of a session update request.
	Update map[string]string
}

// SessionUser is the part of a user exposed to clients.
type SessionUser struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// SessionData is the body of the session action.
type SessionData struct {
	User    *SessionUser
	Expires time.Time

	// Extra is merged into the JSON object next to user and expires.
	Extra map[string]any
}

func (s *SessionData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["user"] = s.User
	out["expires"] = s.Expires.UTC().Format(time.RFC3339)
	return json.Marshal(out)
}

// Callbacks let the application shape sign-in. Every field is optional.
type Callbacks struct {
	// SignIn may reject a sign-in by returning false.
	SignIn func(ctx context.Context, p SignInParams) (bool, error)

	// Redirect vets every redirect target. The default allows relative URLs
	// and URLs on the base URL's origin, and sends anything else to baseURL.
	Redirect func(ctx context.Context, target, baseURL string) string

	// Session shapes the body of the session action.
	Session func(ctx context.Context, p SessionParams) (*SessionData, error)

	// JWT shapes the token claims. Returning nil claims ends the session.
	JWT func(ctx context.Context, p JWTParams) (jwt.Claims, error)
}

// Events are notified after the fact. Errors they return are logged.
type Events struct {
	SignIn      func(ctx context.Context, user *User, account *Account, isNewUser bool) error
	SignOut     func(ctx context.Context, session *Session, token jwt.Claims) error
	CreateUser  func(ctx context.Context, user *User) error
	UpdateUser  func(ctx context.Context, user *User) error
	LinkAccount func(ctx context.Context, user *User, account *Account) error
	Session     func(ctx context.Context, session *SessionData) error
}

func defaultRedirect(_ context.Context, target, baseURL string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") {
		return baseURL + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	if u.Scheme == base.Scheme && u.Host == base.Host {
		return target
	}
	return baseURL
}

func (a *Auth) redirectTo(ctx context.Context, target string) string {
	if target == "" {
		return a.cfg.BaseURL
	}
	if a.cfg.Callbacks.Redirect != nil {
		return a.cfg.Callbacks.Redirect(ctx, target, a.cfg.BaseURL)
	}
	return defaultRedirect(ctx, target, a.cfg.BaseURL)
}

// emit runs an event hook and logs its error.
func (a *Auth) emit(ctx context.Context, name string, fn func() error) {
	if err := fn(); err != nil {
		a.logger.Warn("event handler failed", "event", name, "error", err)
	}
}

func defaultSessionUser(u *User) *SessionUser {
	if u == nil {
		return nil
	}
	return &SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

func defaultClaims(u *User) jwt.Claims {
	claims := jwt.Claims{"sub": u.ID}
	if u.Name != "" {
		claims["name"] = u.Name
	}
	if u.Email != "" {
		claims["email"] = u.Email
	}
	if u.Image != "" {
		claims["picture"] = u.Image
	}
	return claims
}
