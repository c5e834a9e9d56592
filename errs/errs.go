// Package errs holds the error taxonomy shared by the engine and its
// sub-packages. A Kind is itself an error so callers can match with
// errors.Is(err, errs.StateMismatch).
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure category. Its string form is the reason
// code placed in error redirects and JSON bodies.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	Configuration         Kind = "Configuration"
	InvalidCSRF           Kind = "InvalidCsrf"
	StateMismatch         Kind = "StateMismatch"
	InvalidCheck          Kind = "InvalidCheck"
	OAuthCallback         Kind = "OAuthCallbackError"
	OAuthToken            Kind = "OAuthTokenError"
	OAuthProfile          Kind = "OAuthProfileError"
	OIDCIDTokenInvalid    Kind = "OidcIdTokenInvalid"
	OAuthAccountNotLinked Kind = "OAuthAccountNotLinked"
	Adapter               Kind = "AdapterError"
	AccessDenied          Kind = "AccessDenied"
	Verification          Kind = "Verification"
	CredentialsSignin     Kind = "CredentialsSignin"
	InvalidProvider       Kind = "InvalidProvider"
	UnknownAction         Kind = "UnknownAction"
	MethodNotAllowed      Kind = "MethodNotAllowed"

	// InvalidSession is never surfaced to callers; a bad session reads as
	// no session.
	InvalidSession Kind = "InvalidSession"
)

// Status is the HTTP status used when the kind is rendered directly.
func (k Kind) Status() int {
	switch k {
	case Configuration, Adapter:
		return http.StatusInternalServerError
	case AccessDenied, Verification, InvalidCSRF:
		return http.StatusForbidden
	case CredentialsSignin:
		return http.StatusUnauthorized
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case UnknownAction, InvalidProvider:
		return http.StatusNotFound
	case OAuthToken, OAuthProfile:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// Error carries a Kind plus the provider it happened on and the cause.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

// New wraps err under kind. A nil err yields an Error whose message is just
// the kind.
func New(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// Newf builds an Error with a formatted cause.
func Newf(kind Kind, provider string, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Provider != "" {
		msg += " [" + e.Provider + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the first Kind found in err's chain, or fallback.
func KindOf(err error, fallback Kind) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return fallback
}

// Message is the part of err that is safe to show a client: the cause of an
// *Error, without the kind prefix.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Err != nil {
			return ae.Err.Error()
		}
		return ""
	}
	return err.Error()
}
