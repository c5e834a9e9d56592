// Package cookies names the engine's cookies, fixes their attributes, and
// splits values too large for one cookie into numbered chunks.
package cookies

import (
	"net/http"
	"time"
)

// DefaultPrefix starts every cookie name.
const DefaultPrefix = "authcore"

// Options are the attributes shared by a cookie's chunks.
type Options struct {
	Path     string
	Domain   string
	SameSite http.SameSite
	Secure   bool
	HttpOnly bool
}

// Cookie is a named cookie definition.
type Cookie struct {
	Name    string
	Options Options
}

// Set lists every cookie the engine reads or writes.
type Set struct {
	SessionToken      Cookie
	CallbackURL       Cookie
	CSRFToken         Cookie
	PKCECodeVerifier  Cookie
	State             Cookie
	Nonce             Cookie
	WebAuthnChallenge Cookie
}

// Defaults returns the standard set. With secure set, names get the
// __Secure- prefix and the CSRF cookie the stricter __Host- prefix.
func Defaults(prefix string, secure bool) Set {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	namePrefix := ""
	hostPrefix := ""
	if secure {
		namePrefix = "__Secure-"
		hostPrefix = "__Host-"
	}
	opts := Options{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		HttpOnly: true,
	}
	named := func(prefix, suffix string) Cookie {
		return Cookie{Name: prefix + suffix, Options: opts}
	}
	return Set{
		SessionToken:      named(namePrefix+prefix, ".session-token"),
		CallbackURL:       named(namePrefix+prefix, ".callback-url"),
		CSRFToken:         named(hostPrefix+prefix, ".csrf-token"),
		PKCECodeVerifier:  named(namePrefix+prefix, ".pkce.code_verifier"),
		State:             named(namePrefix+prefix, ".state"),
		Nonce:             named(namePrefix+prefix, ".nonce"),
		WebAuthnChallenge: named(namePrefix+prefix, ".challenge"),
	}
}

// Merge overlays non-empty fields of override onto s. Cookie options are
// replaced wholesale when an override names the cookie.
func (s Set) Merge(override Set) Set {
	pick := func(base, o Cookie) Cookie {
		if o.Name == "" {
			return base
		}
		return o
	}
	return Set{
		SessionToken:      pick(s.SessionToken, override.SessionToken),
		CallbackURL:       pick(s.CallbackURL, override.CallbackURL),
		CSRFToken:         pick(s.CSRFToken, override.CSRFToken),
		PKCECodeVerifier:  pick(s.PKCECodeVerifier, override.PKCECodeVerifier),
		State:             pick(s.State, override.State),
		Nonce:             pick(s.Nonce, override.Nonce),
		WebAuthnChallenge: pick(s.WebAuthnChallenge, override.WebAuthnChallenge),
	}
}

// New builds a cookie carrying value. Max-Age is measured from now, the
// caller's clock. A zero expires makes a browser-session cookie.
func (c Cookie) New(value string, now, expires time.Time) *http.Cookie {
	return c.named(c.Name, value, now, expires)
}

// Expire builds a cookie that deletes c on the client.
func (c Cookie) Expire() *http.Cookie {
	return c.expire(c.Name)
}

func (c Cookie) named(name, value string, now, expires time.Time) *http.Cookie {
	hc := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Options.Path,
		Domain:   c.Options.Domain,
		SameSite: c.Options.SameSite,
		Secure:   c.Options.Secure,
		HttpOnly: c.Options.HttpOnly,
	}
	if !expires.IsZero() {
		hc.Expires = expires.UTC()
		hc.MaxAge = int(expires.Sub(now).Seconds())
		if hc.MaxAge <= 0 {
			hc.MaxAge = -1
		}
	}
	return hc
}

func (c Cookie) expire(name string) *http.Cookie {
	hc := c.named(name, "", time.Time{}, time.Time{})
	hc.MaxAge = -1
	hc.Expires = time.Unix(0, 0).UTC()
	return hc
}
