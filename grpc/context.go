// Package grpc authenticates gRPC calls with authcore sessions. Clients send
// their session token in metadata; the interceptors resolve it to a user id
// and put that id on the handler's context.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// Default metadata keys. These can be customized via Config.
const (
	// DefaultMetadataKeyAuthorization carries "Bearer <session token>".
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeySessionToken carries a bare session token.
	DefaultMetadataKeySessionToken = "x-session-token"

	// DefaultMetadataKeyUserID carries a user id asserted by a trusted
	// gateway in front of the service.
	DefaultMetadataKeyUserID = "x-user-id"

	// DefaultMetadataKeySwitchUser overrides the user (testing only)
	DefaultMetadataKeySwitchUser = "x-switch-user"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	MetadataKeyAuthorization string
	MetadataKeySessionToken  string
	MetadataKeyUserID        string
	MetadataKeySwitchUser    string

	// TrustUserIDHeader accepts MetadataKeyUserID as already authenticated.
	// Only enable it when every caller goes through a gateway that sets it.
	TrustUserIDHeader bool

	// EnableSwitchAuth lets MetadataKeySwitchUser override the user id.
	// Should only be enabled in development/testing environments.
	EnableSwitchAuth bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()
	return c
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeySessionToken == "" {
		c.MetadataKeySessionToken = DefaultMetadataKeySessionToken
	}
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeySwitchUser == "" {
		c.MetadataKeySwitchUser = DefaultMetadataKeySwitchUser
	}
}

type userIDKey struct{}

// ContextWithUserID returns ctx carrying userID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user id the interceptor resolved, or ""
// when the call is anonymous.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// IsAuthenticated returns true if there is an authenticated user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}

// SessionTokenToOutgoingContext attaches a session token to outgoing calls
// as a bearer authorization.
func SessionTokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+token)
}

// UserIDToOutgoingContext forwards an already authenticated user id, for
// gateways calling services configured with TrustUserIDHeader.
func UserIDToOutgoingContext(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyUserID, userID)
}

// SwitchUserToOutgoingContext adds a switch-user header to outgoing gRPC context metadata.
// This is only effective when EnableSwitchAuth is set on the server.
func SwitchUserToOutgoingContext(ctx context.Context, switchToUserID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeySwitchUser, switchToUserID)
}

// firstValue returns the first non-empty value for key.
func firstValue(md metadata.MD, key string) string {
	for _, v := range md.Get(key) {
		if v != "" {
			return v
		}
	}
	return ""
}
