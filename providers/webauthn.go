package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/panyam/authcore/errs"
)

const DefaultChallengeMaxAge = 15 * time.Minute

// WebAuthnAssertion is a browser's answer to a challenge.
type WebAuthnAssertion struct {
	Challenge string
	Response  map[string]string
}

// WebAuthnResult identifies who answered and with which credential.
type WebAuthnResult struct {
	Profile      *Profile
	CredentialID string
}

// WebAuthn runs a challenge-response sign-in. The engine mints and checks
// the challenge; attestation and assertion cryptography belong to Verify.
type WebAuthn struct {
	ProviderID       string
	DisplayName      string
	RelyingPartyID   string
	RelyingPartyName string
	ChallengeMaxAge  time.Duration

	// Options returns the public-key options sent to the browser with the
	// challenge.
	Options func(ctx context.Context, challenge string, query url.Values) (any, error)

	Verify func(ctx context.Context, assertion WebAuthnAssertion) (*WebAuthnResult, error)

	// CallbackURL is filled by the registry.
	CallbackURL string
}

func (p *WebAuthn) ID() string   { return p.ProviderID }
func (p *WebAuthn) Name() string { return p.DisplayName }
func (p *WebAuthn) Type() Type   { return TypeWebAuthn }

func (p *WebAuthn) normalize(ctx context.Context, opts *Options) (Provider, error) {
	out := *p
	if out.DisplayName == "" {
		out.DisplayName = "Passkey"
	}
	if out.ChallengeMaxAge <= 0 {
		out.ChallengeMaxAge = DefaultChallengeMaxAge
	}
	if out.RelyingPartyID == "" {
		if u, err := url.Parse(opts.BaseURL); err == nil {
			out.RelyingPartyID = u.Hostname()
		}
	}
	if out.Verify == nil {
		return nil, errs.Newf(errs.Configuration, out.ProviderID, "missing verify")
	}
	if out.Options == nil {
		rp := map[string]string{"id": out.RelyingPartyID, "name": out.RelyingPartyName}
		out.Options = func(ctx context.Context, challenge string, query url.Values) (any, error) {
			return map[string]any{"challenge": challenge, "rp": rp}, nil
		}
	}
	out.CallbackURL = opts.callbackURL(out.ProviderID)
	return &out, nil
}
