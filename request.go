package authcore

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Action is the operation a request asks for, taken from the first path
// segment after the base path.
type Action string

const (
	ActionSignIn          Action = "signin"
	ActionCallback        Action = "callback"
	ActionSignOut         Action = "signout"
	ActionSession         Action = "session"
	ActionCSRF            Action = "csrf"
	ActionProviders       Action = "providers"
	ActionVerifyRequest   Action = "verify-request"
	ActionError           Action = "error"
	ActionWebAuthnOptions Action = "webauthn-options"
)

// Request is the framework-neutral form of an incoming request. The engine
// only reads it.
type Request struct {
	Method     string
	URL        *url.URL
	Action     Action
	ProviderID string
	Header     http.Header
	Query      url.Values
	Body       url.Values
	Cookies    map[string]string
}

// NewRequest builds a Request. Cookies are parsed from the Cookie header.
// A path outside basePath yields an empty Action, which the engine rejects
// as unknown.
func NewRequest(method, rawURL, basePath string, header http.Header, body url.Values) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	if body == nil {
		body = url.Values{}
	}
	action, provider := parseAction(u.Path, basePath)
	jar := map[string]string{}
	for _, c := range (&http.Request{Header: header}).Cookies() {
		jar[c.Name] = c.Value
	}
	return &Request{
		Method:     strings.ToUpper(method),
		URL:        u,
		Action:     action,
		ProviderID: provider,
		Header:     header,
		Query:      u.Query(),
		Body:       body,
		Cookies:    jar,
	}, nil
}

func parseAction(path, basePath string) (Action, string) {
	base := "/" + strings.Trim(basePath, "/")
	if base == "/" {
		base = ""
	}
	if !strings.HasPrefix(path, base+"/") {
		return "", ""
	}
	rest := strings.Trim(path[len(base):], "/")
	action, provider, _ := strings.Cut(rest, "/")
	if strings.Contains(provider, "/") {
		return "", ""
	}
	return Action(action), provider
}

// Param reads a value from the body, then the query string.
func (r *Request) Param(key string) string {
	if v := r.Body.Get(key); v != "" {
		return v
	}
	return r.Query.Get(key)
}

// wantsJSON reports whether errors and redirects should be JSON rather
// than browser redirects.
func (r *Request) wantsJSON() bool {
	switch r.Action {
	case ActionSession, ActionCSRF, ActionProviders, ActionWebAuthnOptions:
		return true
	}
	return r.Param("json") == "true"
}

// Response is the framework-neutral result of Handle.
type Response struct {
	Status   int
	Header   http.Header
	Cookies  []*http.Cookie
	Redirect string

	// Body is encoded as JSON. A nil Body writes no content.
	Body any

	// set on sign-in and sign-out so the HTTP handler can mirror them into
	// a server session
	signedInUser string
	signedOut    bool
}

// SignedInUser is the id of the user a sign-in completed for, if any.
func (r *Response) SignedInUser() string { return r.signedInUser }

// SignedOut reports whether the response ends a session.
func (r *Response) SignedOut() bool { return r.signedOut }

func redirectResponse(target string) *Response {
	return &Response{Status: http.StatusFound, Header: http.Header{}, Redirect: target}
}

func jsonResponse(status int, body any) *Response {
	return &Response{Status: status, Header: http.Header{}, Body: body}
}

// jsonNull is the body of a session request with no session.
var jsonNull = json.RawMessage("null")
