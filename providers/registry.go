package providers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/panyam/authcore/errs"
)

// Options carries what normalization needs from the engine configuration.
type Options struct {
	// BaseURL is the scheme and host the engine is served on.
	BaseURL string

	// BasePath is where the engine's routes are mounted, e.g. /auth.
	BasePath string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o *Options) callbackURL(id string) string {
	return strings.TrimRight(o.BaseURL, "/") + "/" + strings.Trim(o.BasePath, "/") + "/callback/" + id
}

func (o *Options) discover(ctx context.Context, discoveryURL string) (*DiscoveryDocument, error) {
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	o.Logger.Debug("fetching discovery document", "component", "registry", "url", discoveryURL)
	return fetchDiscovery(ctx, client, discoveryURL)
}

// Registry is the normalized, read-only set of providers.
type Registry struct {
	byID  map[string]Provider
	order []Provider
}

// NewRegistry normalizes every descriptor. The first invalid descriptor
// fails the whole registry with a Configuration error naming the provider
// and the field.
func NewRegistry(ctx context.Context, opts Options, descriptors ...Provider) (*Registry, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Registry{byID: make(map[string]Provider, len(descriptors))}
	for _, d := range descriptors {
		if d == nil {
			return nil, errs.Newf(errs.Configuration, "", "nil provider")
		}
		id := d.ID()
		if id == "" {
			return nil, errs.Newf(errs.Configuration, "", "missing provider id")
		}
		if _, exists := r.byID[id]; exists {
			return nil, errs.Newf(errs.Configuration, id, "duplicate provider id")
		}
		p, err := d.normalize(ctx, &opts)
		if err != nil {
			return nil, err
		}
		r.byID[id] = p
		r.order = append(r.order, p)
	}
	return r, nil
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns providers in declaration order.
func (r *Registry) List() []Provider {
	return append([]Provider(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }
