package providers

import (
	"context"

	"github.com/panyam/authcore/errs"
)

// AuthorizeFunc checks submitted credentials. A nil profile with a nil
// error means the credentials were rejected.
type AuthorizeFunc func(ctx context.Context, credentials map[string]string) (*Profile, error)

// Credentials signs people in with whatever fields Authorize understands,
// usually a username and password. Sessions from this provider are always
// stateless tokens.
type Credentials struct {
	ProviderID  string
	DisplayName string
	Fields      []string
	Authorize   AuthorizeFunc

	// CallbackURL is filled by the registry.
	CallbackURL string
}

func (p *Credentials) ID() string   { return p.ProviderID }
func (p *Credentials) Name() string { return p.DisplayName }
func (p *Credentials) Type() Type   { return TypeCredentials }

func (p *Credentials) normalize(ctx context.Context, opts *Options) (Provider, error) {
	out := *p
	if out.DisplayName == "" {
		out.DisplayName = "Credentials"
	}
	if len(out.Fields) == 0 {
		out.Fields = []string{"username", "password"}
	}
	if out.Authorize == nil {
		return nil, errs.Newf(errs.Configuration, out.ProviderID, "missing authorize")
	}
	out.CallbackURL = opts.callbackURL(out.ProviderID)
	return &out, nil
}
