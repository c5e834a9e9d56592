// Package authcore is a framework-neutral authentication engine. It takes a
// normalized Request, runs the sign-in, callback, sign-out, session and CSRF
// actions against a set of identity providers, and returns a normalized
// Response with the cookies to set.
//
// # Architecture
//
// Providers: descriptors from the providers package (OAuth 2, OpenID
// Connect, email links, credentials and WebAuthn-style challenges),
// normalized once at New. OIDC providers are discovered from their issuer;
// values you set always win over discovered ones.
//
// Sessions: either stateless (an encrypted JWT cookie, chunked when it grows
// past one cookie) or database-backed through an Adapter. Reading a session
// never fails: a missing, expired or tampered cookie is simply no session.
//
// Adapter: the persistence contract. The engine stores nothing itself. The
// adapters directory holds file, GORM and Cloud Datastore implementations.
//
// # Basic Usage
//
//	auth, err := authcore.New(ctx, authcore.Config{
//	    BaseURL: "https://example.com",
//	    Secret:  []string{os.Getenv("AUTHCORE_SECRET")},
//	    Adapter: fs.New("/var/lib/myapp/auth"),
//	    Providers: []providers.Provider{
//	        providers.Google("", ""), // AUTH_GOOGLE_ID / AUTH_GOOGLE_SECRET
//	        &providers.Email{ProviderID: "email", Sender: &authcore.ConsoleEmailSender{}},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mux.Handle("/auth/", auth.Handler())
//
// Protect application routes with Middleware:
//
//	mw := &authcore.Middleware{Auth: auth, GetRedirURL: func(r *http.Request) string {
//	    return auth.SignInURL("")
//	}}
//	mux.Handle("/app/", mw.EnsureUser(appHandler))
//
// Frameworks other than net/http build a Request with NewRequest, call
// Handle and copy the Response out.
//
// # Security
//
// State-changing POSTs carry a double-submit CSRF token. OAuth round trips
// are protected by state, PKCE and (for OIDC) nonce values sealed into
// short-lived encrypted cookies. Email sign-in tokens are stored hashed and
// are single use.
//
// # Testing
//
// The oauthtest package runs an in-process OAuth 2 / OIDC provider, and
// adapters/fs works in a temporary directory, so complete sign-in flows run
// under httptest without network access.
package authcore
