// Package oauth runs the authorization-code flow against one provider:
// building the authorization URL with state, PKCE and nonce protection,
// validating the callback, exchanging the code, verifying OIDC id_tokens and
// mapping the provider's profile.
package oauth

// State is a step in one sign-in attempt. A callback is handled by a fresh
// machine whose transaction values come back from the check cookies, so it
// starts from Idle too.
type State int

const (
	Idle State = iota
	AuthorizationRequested
	CallbackReceived
	TokenExchanged
	ProfileFetched
	Linked
	Errored
)

var stateNames = [...]string{
	Idle:                   "Idle",
	AuthorizationRequested: "AuthorizationRequested",
	CallbackReceived:       "CallbackReceived",
	TokenExchanged:         "TokenExchanged",
	ProfileFetched:         "ProfileFetched",
	Linked:                 "Linked",
	Errored:                "Errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Linked || s == Errored
}
