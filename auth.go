package authcore

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/panyam/authcore/cookies"
	"github.com/panyam/authcore/errs"
	"github.com/panyam/authcore/jwt"
	"github.com/panyam/authcore/oauth"
	"github.com/panyam/authcore/providers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/panyam/authcore")

// Auth is a configured engine. It is read-only after New and safe for
// concurrent use.
type Auth struct {
	cfg      Config
	registry *providers.Registry
	client   *oauth.Client
	checks   *oauth.Checks
	cookies  cookies.Set
	codec    jwt.Codec
	logger   *slog.Logger
	metrics  *Metrics
}

// New validates cfg, normalizes its providers and freezes the result. Every
// problem with the configuration surfaces here as a Configuration error.
func New(ctx context.Context, cfg Config) (*Auth, error) {
	cfg.EnsureDefaults()
	logger := cfg.Logger.With("component", "dispatcher")

	reg, err := providers.NewRegistry(ctx, providers.Options{
		BaseURL:    cfg.BaseURL,
		BasePath:   cfg.BasePath,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
	}, cfg.Providers...)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(reg); err != nil {
		return nil, err
	}

	client := oauth.NewClient(cfg.HTTPClient, cfg.Logger)
	client.Now = cfg.Now
	if cfg.Metrics != nil {
		client.Observer = cfg.Metrics
	}
	set := cfg.cookieSet()
	a := &Auth{
		cfg:      cfg,
		registry: reg,
		client:   client,
		checks:   &oauth.Checks{Secrets: cfg.Secret, Cookies: set, Now: cfg.Now},
		cookies:  set,
		codec:    cfg.jwtCodec(),
		logger:   logger,
		metrics:  cfg.Metrics,
	}
	logger.Info("auth engine ready", "providers", reg.Len(), "strategy", cfg.Session.Strategy, "basePath", cfg.BasePath)
	return a, nil
}

// Providers returns the normalized provider registry.
func (a *Auth) Providers() *providers.Registry { return a.registry }

// Cookies returns the cookie definitions in use.
func (a *Auth) Cookies() cookies.Set { return a.cookies }

// BasePath is where the engine's actions are mounted.
func (a *Auth) BasePath() string { return a.cfg.BasePath }

type route struct {
	methods []string

	// csrf marks POSTs that must carry a valid token. The callback action
	// decides per provider.
	csrf    bool
	handler func(f *flow, ctx context.Context) (*Response, error)
}

var routes = map[Action]route{
	ActionSignIn:          {methods: []string{http.MethodGet, http.MethodPost}, csrf: true, handler: (*flow).signIn},
	ActionCallback:        {methods: []string{http.MethodGet, http.MethodPost}, handler: (*flow).callback},
	ActionSignOut:         {methods: []string{http.MethodGet, http.MethodPost}, csrf: true, handler: (*flow).signOut},
	ActionSession:         {methods: []string{http.MethodGet, http.MethodPost}, csrf: true, handler: (*flow).session},
	ActionCSRF:            {methods: []string{http.MethodGet}, handler: (*flow).csrf},
	ActionProviders:       {methods: []string{http.MethodGet}, handler: (*flow).providers},
	ActionVerifyRequest:   {methods: []string{http.MethodGet}, handler: (*flow).verifyRequest},
	ActionError:           {methods: []string{http.MethodGet}, handler: (*flow).errorPage},
	ActionWebAuthnOptions: {methods: []string{http.MethodGet}, handler: (*flow).webAuthnOptions},
}

// flow is the state of one Handle call. Cookies added to it are sent on the
// response whether the action succeeds or fails.
type flow struct {
	*Auth
	req *Request
	now time.Time
	out []*http.Cookie

	csrfToken    string
	csrfVerified bool
}

func (f *flow) setCookie(cs ...*http.Cookie) {
	f.out = append(f.out, cs...)
}

// Handle runs one request to completion. It never panics and never returns
// an error: failures become error redirects or JSON error bodies.
func (a *Auth) Handle(ctx context.Context, req *Request) (resp *Response) {
	ctx, span := tracer.Start(ctx, "authcore.handle")
	span.SetAttributes(
		attribute.String("authcore.action", string(req.Action)),
		attribute.String("authcore.provider", req.ProviderID),
	)
	f := &flow{Auth: a, req: req, now: a.cfg.Now()}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic while handling request", "action", req.Action, "panic", r)
			resp = f.finish(ctx, nil, errs.Newf(errs.Configuration, "", "internal error: %v", r))
		}
		if resp.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.Status))
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.Status))
		span.End()
		a.metrics.observeRequest(req.Action, resp.Status, a.cfg.Now().Sub(f.now))
	}()

	r, ok := routes[req.Action]
	if !ok {
		return f.finish(ctx, nil, errs.Newf(errs.UnknownAction, "", "unknown action %q", req.Action))
	}
	if !slices.Contains(r.methods, req.Method) {
		return f.finish(ctx, nil, errs.Newf(errs.MethodNotAllowed, "", "%s not allowed on %s", req.Method, req.Action))
	}
	if err := f.loadCSRF(); err != nil {
		return f.finish(ctx, nil, err)
	}
	if r.csrf && req.Method == http.MethodPost && !f.csrfVerified {
		return f.finish(ctx, nil, errs.Newf(errs.InvalidCSRF, req.ProviderID, "csrf token missing or invalid"))
	}
	out, err := r.handler(f, ctx)
	return f.finish(ctx, out, err)
}

// finish renders err when set and attaches the flow's cookies.
func (f *flow) finish(ctx context.Context, resp *Response, err error) *Response {
	if err == nil && resp == nil {
		err = errs.Newf(errs.Configuration, "", "%s produced no response", f.req.Action)
	}
	if err != nil {
		resp = f.renderError(ctx, err)
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	if resp.Redirect != "" && f.req.Param("json") == "true" {
		resp.Body = map[string]string{"url": resp.Redirect}
		resp.Redirect = ""
		if resp.Status == http.StatusFound {
			resp.Status = http.StatusOK
		}
	}
	resp.Cookies = append(f.out, resp.Cookies...)
	return resp
}

type errorBody struct {
	Error   errs.Kind `json:"error"`
	Message string    `json:"message,omitempty"`
}

func (f *flow) renderError(ctx context.Context, err error) *Response {
	kind := errs.KindOf(err, errs.Configuration)
	f.metrics.countError(kind)
	if kind.Status() >= http.StatusInternalServerError {
		f.logger.ErrorContext(ctx, "request failed", "action", f.req.Action, "kind", kind, "error", err)
	} else {
		f.logger.DebugContext(ctx, "request rejected", "action", f.req.Action, "kind", kind, "error", err)
	}

	switch {
	case kind == errs.UnknownAction, kind == errs.MethodNotAllowed, f.req.wantsJSON():
		return jsonResponse(kind.Status(), errorBody{Error: kind, Message: errorDescription(kind)})
	case kind == errs.CredentialsSignin:
		return redirectResponse(withQuery(f.pageURL(f.cfg.Pages.SignIn, ActionSignIn), "error", string(kind), "code", "credentials"))
	default:
		return redirectResponse(withQuery(f.pageURL(f.cfg.Pages.Error, ActionError), "error", string(kind)))
	}
}

// pageURL resolves an application page, or the engine's own action when the
// page is not configured.
func (f *flow) pageURL(page string, fallback Action) string {
	if page != "" {
		if page[0] == '/' {
			return f.cfg.BaseURL + page
		}
		return page
	}
	return f.actionURL(fallback, "")
}

func (a *Auth) actionURL(action Action, providerID string) string {
	u := a.cfg.BaseURL + a.cfg.BasePath + "/" + string(action)
	if providerID != "" {
		u += "/" + providerID
	}
	return u
}

// withQuery sets query parameters on target, given as key, value pairs.
func withQuery(target string, kv ...string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// provider looks up the request's provider.
func (f *flow) provider() (providers.Provider, error) {
	if f.req.ProviderID == "" {
		return nil, errs.Newf(errs.InvalidProvider, "", "missing provider")
	}
	p, ok := f.registry.Get(f.req.ProviderID)
	if !ok {
		return nil, errs.Newf(errs.InvalidProvider, f.req.ProviderID, "unknown provider")
	}
	return p, nil
}
