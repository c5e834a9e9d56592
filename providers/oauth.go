package providers

import (
	"context"
	"net/url"
	"slices"

	"github.com/panyam/authcore/errs"
	"golang.org/x/oauth2"
)

// Check is a protection applied to the authorization round trip.
type Check string

const (
	CheckPKCE  Check = "pkce"
	CheckState Check = "state"
	CheckNonce Check = "nonce"
	CheckNone  Check = "none"
)

// OAuth describes an OAuth 2 provider, or an OpenID Connect one when OIDC is
// set. With an Issuer, endpoints left empty are filled from the issuer's
// discovery document.
type OAuth struct {
	ProviderID  string
	DisplayName string
	OIDC        bool

	Issuer    string
	WellKnown string // discovery document URL, defaults to Issuer + /.well-known/openid-configuration

	Authorization Endpoint
	Token         Endpoint
	UserInfo      Endpoint
	JWKSURL       string

	ClientID     string
	ClientSecret string
	AuthStyle    oauth2.AuthStyle
	Scopes       []string
	Checks       []Check

	// IDTokenProfile builds the profile from id_token claims and skips the
	// userinfo call.
	IDTokenProfile bool

	Profile ProfileFunc

	// AllowDangerousEmailAccountLinking links this provider's account to an
	// existing user with the same email instead of failing.
	AllowDangerousEmailAccountLinking bool

	// CallbackURL is filled by the registry.
	CallbackURL string
}

func (p *OAuth) ID() string   { return p.ProviderID }
func (p *OAuth) Name() string { return p.DisplayName }

func (p *OAuth) Type() Type {
	if p.OIDC {
		return TypeOIDC
	}
	return TypeOAuth
}

// HasCheck reports whether c is enabled.
func (p *OAuth) HasCheck(c Check) bool {
	return slices.Contains(p.Checks, c)
}

// Config is the x/oauth2 view of the descriptor.
func (p *OAuth) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.CallbackURL,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.Authorization.URL,
			TokenURL:  p.Token.URL,
			AuthStyle: p.AuthStyle,
		},
	}
}

func (p *OAuth) normalize(ctx context.Context, opts *Options) (Provider, error) {
	out := *p
	out.Authorization = p.Authorization.clone()
	out.Token = p.Token.clone()
	out.UserInfo = p.UserInfo.clone()
	out.Scopes = ParseScopes(JoinScopes(p.Scopes))
	out.Checks = slices.Clone(p.Checks)

	if out.DisplayName == "" {
		out.DisplayName = out.ProviderID
	}
	if out.OIDC && out.Issuer == "" && out.WellKnown == "" {
		return nil, errs.Newf(errs.Configuration, out.ProviderID, "missing issuer")
	}
	if out.needsDiscovery() {
		doc, err := opts.discover(ctx, out.discoveryURL())
		if err != nil {
			return nil, errs.New(errs.Configuration, out.ProviderID, err)
		}
		out.merge(doc)
	}

	if len(out.Checks) == 0 {
		out.Checks = []Check{CheckState, CheckPKCE}
		if out.OIDC {
			out.Checks = append(out.Checks, CheckNonce)
		}
	}
	if slices.Contains(out.Checks, CheckNone) {
		out.Checks = nil
	}
	if len(out.Scopes) == 0 && out.OIDC {
		out.Scopes = []string{"openid", "profile", "email"}
	}
	if out.OIDC && !slices.Contains(out.Scopes, "openid") {
		out.Scopes = append([]string{"openid"}, out.Scopes...)
	}
	if out.Profile == nil {
		out.Profile = DefaultProfile
	}
	out.CallbackURL = opts.callbackURL(out.ProviderID)

	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *OAuth) needsDiscovery() bool {
	if p.Issuer == "" && p.WellKnown == "" {
		return false
	}
	if p.Authorization.URL == "" || p.Token.URL == "" {
		return true
	}
	if p.UserInfo.URL == "" && !p.IDTokenProfile {
		return true
	}
	return p.OIDC && p.JWKSURL == ""
}

func (p *OAuth) discoveryURL() string {
	if p.WellKnown != "" {
		return p.WellKnown
	}
	u, err := url.JoinPath(p.Issuer, ".well-known/openid-configuration")
	if err != nil {
		return p.Issuer + "/.well-known/openid-configuration"
	}
	return u
}

// merge fills fields the caller left empty. Caller values always win.
func (p *OAuth) merge(doc *DiscoveryDocument) {
	if p.Issuer == "" {
		p.Issuer = doc.Issuer
	}
	if p.Authorization.URL == "" {
		p.Authorization.URL = doc.AuthorizationEndpoint
	}
	if p.Token.URL == "" {
		p.Token.URL = doc.TokenEndpoint
	}
	if p.UserInfo.URL == "" {
		p.UserInfo.URL = doc.UserInfoEndpoint
	}
	if p.JWKSURL == "" {
		p.JWKSURL = doc.JWKSURI
	}
}

func (p *OAuth) validate() error {
	missing := func(field string) error {
		return errs.Newf(errs.Configuration, p.ProviderID, "missing %s", field)
	}
	switch {
	case p.ClientID == "":
		return missing("clientId")
	case p.Authorization.URL == "":
		return missing("authorization.url")
	case p.Token.URL == "":
		return missing("token.url")
	case p.UserInfo.URL == "" && !p.IDTokenProfile:
		return missing("userinfo.url")
	case p.OIDC && p.Issuer == "":
		return missing("issuer")
	}
	return nil
}
