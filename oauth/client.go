package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultJWKSTTL is how long a fetched key set is trusted before refetching.
const DefaultJWKSTTL = time.Hour

var tracer = otel.Tracer("github.com/panyam/authcore/oauth")

// Observer receives the latency and outcome of each upstream call.
type Observer interface {
	ObserveUpstream(provider, step string, elapsed time.Duration, err error)
}

// Client holds what outlives a single flow: the HTTP client and the JWKS
// cache. It is safe for concurrent use.
type Client struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
	Now        func() time.Time

	jwks  *ttlcache.Cache[string, *jose.JSONWebKeySet]
	group singleflight.Group
}

// NewClient builds a Client. A nil httpClient gets a 10 second timeout
// client.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		HTTPClient: httpClient,
		Logger:     logger.With("component", "oauth"),
		jwks: ttlcache.New(
			ttlcache.WithTTL[string, *jose.JSONWebKeySet](DefaultJWKSTTL),
			ttlcache.WithDisableTouchOnHit[string, *jose.JSONWebKeySet](),
		),
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// observe times one upstream step inside a span.
func (c *Client) observe(ctx context.Context, provider, step string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "oauth."+step, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
	}
	if c.Observer != nil {
		c.Observer.ObserveUpstream(provider, step, time.Since(start), err)
	}
	return err
}

// keySet returns the cached key set for jwksURL, fetching it when absent or
// when refresh is set. Concurrent fetches of one URL share a request.
func (c *Client) keySet(ctx context.Context, jwksURL string, refresh bool) (*jose.JSONWebKeySet, error) {
	if !refresh {
		if item := c.jwks.Get(jwksURL); item != nil {
			return item.Value(), nil
		}
	}
	v, err, _ := c.group.Do(jwksURL, func() (any, error) {
		set, err := c.fetchKeySet(ctx, jwksURL)
		if err != nil {
			return nil, err
		}
		c.jwks.Set(jwksURL, set, ttlcache.DefaultTTL)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jose.JSONWebKeySet), nil
}

func (c *Client) fetchKeySet(ctx context.Context, jwksURL string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("jwks endpoint returned status %d: %s", resp.StatusCode, body)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode jwks: %w", err)
	}
	c.Logger.Debug("fetched jwks", "url", jwksURL, "keys", len(set.Keys))
	return &set, nil
}
