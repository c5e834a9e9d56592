package authcore

import (
	"fmt"

	"github.com/panyam/authcore/errs"
)

// ErrorKind aliases errs.Kind so callers of the root package can match
// failures without a second import.
type ErrorKind = errs.Kind

const (
	ErrConfiguration         = errs.Configuration
	ErrInvalidCSRF           = errs.InvalidCSRF
	ErrStateMismatch         = errs.StateMismatch
	ErrInvalidCheck          = errs.InvalidCheck
	ErrOAuthCallback         = errs.OAuthCallback
	ErrOAuthToken            = errs.OAuthToken
	ErrOAuthProfile          = errs.OAuthProfile
	ErrOIDCIDTokenInvalid    = errs.OIDCIDTokenInvalid
	ErrOAuthAccountNotLinked = errs.OAuthAccountNotLinked
	ErrAdapter               = errs.Adapter
	ErrAccessDenied          = errs.AccessDenied
	ErrVerification          = errs.Verification
	ErrCredentialsSignin     = errs.CredentialsSignin
	ErrInvalidProvider       = errs.InvalidProvider
	ErrUnknownAction         = errs.UnknownAction
	ErrMethodNotAllowed      = errs.MethodNotAllowed
)

func adapterError(op string, err error) error {
	return errs.New(errs.Adapter, "", fmt.Errorf("%s: %w", op, err))
}

func configError(format string, args ...any) error {
	return errs.Newf(errs.Configuration, "", format, args...)
}

// errorMessages are the descriptions shown on the error action. Kinds that
// could leak server details get a generic line.
var errorMessages = map[errs.Kind]string{
	errs.Configuration:         "There is a problem with the server configuration.",
	errs.Adapter:               "There is a problem with the server configuration.",
	errs.AccessDenied:          "You do not have permission to sign in.",
	errs.Verification:          "The sign in link is no longer valid. It may have been used already or it may have expired.",
	errs.CredentialsSignin:     "Sign in failed. Check the details you provided are correct.",
	errs.OAuthAccountNotLinked: "To confirm your identity, sign in with the same account you used originally.",
	errs.InvalidCSRF:           "The request could not be verified. Reload the page and try again.",
}

func errorDescription(kind errs.Kind) string {
	if msg, ok := errorMessages[kind]; ok {
		return msg
	}
	return "Unable to sign in."
}
