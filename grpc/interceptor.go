package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// SessionResolver maps a session token to a user id, "" when the token is
// not a live session. *authcore.Auth implements it.
type SessionResolver interface {
	ResolveSessionToken(ctx context.Context, token string) (string, error)
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Resolver checks session tokens. Without one only the trusted and
	// switch-user headers can authenticate a call.
	Resolver SessionResolver

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but UserIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(resolver SessionResolver) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Resolver:      resolver,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(resolver SessionResolver, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(resolver)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(resolver SessionResolver) *InterceptorConfig {
	config := DefaultInterceptorConfig(resolver)
	config.RequireAuth = false
	return config
}

func (config *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	return config
}

// authenticate resolves the caller and returns ctx carrying their id.
func (config *InterceptorConfig) authenticate(ctx context.Context, method string) (context.Context, error) {
	userID, err := config.extractUserID(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "session lookup failed")
	}
	if userID == "" && config.RequireAuth && !config.PublicMethods[method] {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if userID == "" {
		return ctx, nil
	}
	return ContextWithUserID(ctx, userID), nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// caller's session.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = config.ensureDefaults()
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := config.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// wrappedStream overrides Context so stream handlers see the user id.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves the
// caller's session.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = config.ensureDefaults()
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := config.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

// extractUserID checks, in order: switch-user (when enabled), the trusted
// user id header (when enabled), then session tokens via the resolver.
func (config *InterceptorConfig) extractUserID(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	if config.EnableSwitchAuth {
		if id := firstValue(md, config.MetadataKeySwitchUser); id != "" {
			return id, nil
		}
	}
	if config.TrustUserIDHeader {
		if id := firstValue(md, config.MetadataKeyUserID); id != "" {
			return id, nil
		}
	}
	if config.Resolver == nil {
		return "", nil
	}

	var tokens []string
	for _, v := range md.Get(config.MetadataKeyAuthorization) {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok && token != "" {
			tokens = append(tokens, strings.TrimSpace(token))
		}
	}
	if token := firstValue(md, config.MetadataKeySessionToken); token != "" {
		tokens = append(tokens, token)
	}
	for _, token := range tokens {
		id, err := config.Resolver.ResolveSessionToken(ctx, token)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}
