package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/panyam/authcore/crypto"
	"github.com/panyam/authcore/errs"
)

// DefaultEmailMaxAge is how long a sign-in link stays valid.
const DefaultEmailMaxAge = 24 * time.Hour

// VerificationRequest is handed to a Sender once per email sign-in.
type VerificationRequest struct {
	Identifier string
	URL        string
	Token      string
	Expires    time.Time
	Provider   *Email
}

// Sender delivers sign-in links.
type Sender interface {
	SendVerificationRequest(ctx context.Context, req VerificationRequest) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, req VerificationRequest) error

func (f SenderFunc) SendVerificationRequest(ctx context.Context, req VerificationRequest) error {
	return f(ctx, req)
}

// Email signs people in with a single-use link sent to their address.
type Email struct {
	ProviderID  string
	DisplayName string
	From        string
	MaxAge      time.Duration
	Sender      Sender

	GenerateToken       func() (string, error)
	NormalizeIdentifier func(identifier string) (string, error)

	// CallbackURL is filled by the registry.
	CallbackURL string
}

func (p *Email) ID() string   { return p.ProviderID }
func (p *Email) Name() string { return p.DisplayName }
func (p *Email) Type() Type   { return TypeEmail }

func (p *Email) normalize(ctx context.Context, opts *Options) (Provider, error) {
	out := *p
	if out.DisplayName == "" {
		out.DisplayName = "Email"
	}
	if out.MaxAge <= 0 {
		out.MaxAge = DefaultEmailMaxAge
	}
	if out.GenerateToken == nil {
		out.GenerateToken = crypto.RandomToken
	}
	if out.NormalizeIdentifier == nil {
		out.NormalizeIdentifier = NormalizeEmail
	}
	if out.Sender == nil {
		return nil, errs.Newf(errs.Configuration, out.ProviderID, "missing sendVerificationRequest")
	}
	out.CallbackURL = opts.callbackURL(out.ProviderID)
	return &out, nil
}

// NormalizeEmail lowercases and trims an address and rejects anything that
// is not exactly one address.
func NormalizeEmail(identifier string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(identifier))
	if strings.ContainsAny(email, ", \t") {
		return "", fmt.Errorf("only one email address is allowed")
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", fmt.Errorf("invalid email address %q", identifier)
	}
	return local + "@" + domain, nil
}
