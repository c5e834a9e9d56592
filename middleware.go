package authcore

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
)

type userIDKey struct{}

// UserIDFromContext returns the user id placed by Middleware, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// ContextWithUserID stores id where UserIDFromContext finds it.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// ResolveSessionToken returns the id of the user a session token belongs
// to, or "" when it is not a live session. Unlike the session action it
// never extends the session.
func (a *Auth) ResolveSessionToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	if a.cfg.Session.Strategy == StrategyJWT {
		res := a.codec.Decode(token)
		if res.Absent() {
			return "", nil
		}
		return res.Claims.Subject(), nil
	}
	sess, user, err := a.cfg.Adapter.GetSessionAndUser(ctx, token)
	if err != nil {
		return "", adapterError("GetSessionAndUser", err)
	}
	if sess == nil || user == nil || sess.IsExpired(a.cfg.Now()) {
		return "", nil
	}
	return user.ID, nil
}

// Middleware puts the signed-in user's id on the request context.
type Middleware struct {
	Auth *Auth

	// Sessions, when set, is read for a user id mirrored by Auth.Handler.
	// Handlers using it must run inside Sessions.LoadAndSave.
	Sessions *scs.SessionManager

	// AuthTokenHeaderName carries "Bearer <session token>" for API clients.
	AuthTokenHeaderName string
	CallbackURLParam    string

	// GetRedirURL names the page EnsureUser sends anonymous users to. When it
	// is nil they get a 401.
	GetRedirURL func(r *http.Request) string
}

func (m *Middleware) EnsureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackUrl"
	}
}

// GetLoggedInUserID resolves the user from, in order: the request context,
// the server session, the session cookie and the bearer header.
func (m *Middleware) GetLoggedInUserID(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return id
	}
	if m.Sessions != nil {
		if id := m.Sessions.GetString(r.Context(), SessionUserKey); id != "" {
			return id
		}
	}

	jar := map[string]string{}
	for _, c := range r.Cookies() {
		jar[c.Name] = c.Value
	}
	var tokens []string
	if raw, ok := m.Auth.cookies.SessionToken.Read(jar); ok {
		tokens = append(tokens, raw)
	}
	for _, h := range r.Header.Values(m.AuthTokenHeaderName) {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			tokens = append(tokens, strings.TrimSpace(token))
		}
	}
	for _, token := range tokens {
		id, err := m.Auth.ResolveSessionToken(r.Context(), token)
		if err != nil {
			m.Auth.logger.Warn("resolving session token failed", "error", err)
			continue
		}
		if id != "" {
			return id
		}
	}
	return ""
}

// ExtractUser loads the user id when there is one and never rejects the
// request. Use EnsureUser to require a user.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.GetLoggedInUserID(r)
		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), id)))
	})
}

// EnsureUser redirects anonymous users to GetRedirURL, carrying the
// original path, or answers 401.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.GetLoggedInUserID(r)
		if id != "" {
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), id)))
			return
		}
		redirURL := ""
		if m.GetRedirURL != nil {
			redirURL = m.GetRedirURL(r)
		}
		if redirURL == "" {
			http.Error(w, "Login Failed", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, withQuery(redirURL, m.CallbackURLParam, r.URL.Path), http.StatusFound)
	})
}

// SignInURL is the engine's sign-in page with callbackURL attached, for use
// as Middleware.GetRedirURL.
func (a *Auth) SignInURL(callbackURL string) string {
	target := a.actionURL(ActionSignIn, "")
	if a.cfg.Pages.SignIn != "" {
		target = a.cfg.Pages.SignIn
	}
	if callbackURL == "" {
		return target
	}
	return target + "?callbackUrl=" + url.QueryEscape(callbackURL)
}
