// Package geocode resolves free-text addresses to validated coordinates via
// a Nominatim-compatible provider, rejecting points outside the service region.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/internal/resilience"
)

// Sentinel errors callers distinguish with eris.Is. Provider network and
// service errors are reported as ordinary wrapped errors, distinct from both.
var (
	ErrAddressNotFound  = eris.New("geocode: address not found")
	ErrOutOfServiceArea = eris.New("geocode: address outside service area")
)

// Client resolves one address per call. Only transport-level and server-side
// failures are retried; a not-found answer is a user error, not a transient
// one.
type Client interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result is a validated geocode.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	// Query is the normalized query string that was sent to the provider.
	Query string
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the provider endpoint, primarily for tests and
// self-hosted Nominatim instances.
func WithBaseURL(baseURL string) Option {
	return func(g *geocoder) {
		g.baseURL = baseURL
	}
}

// WithRateLimit sets the requests-per-second limit for provider calls.
// Public Nominatim allows one request per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry overrides the retry policy for provider calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	region     *geo.Region
	retry      resilience.RetryConfig
}

// NewClient creates a geocoding Client bound to the given service region.
func NewClient(region *geo.Region, opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    nominatimBaseURL,
		limiter:    rate.NewLimiter(1, 1),
		region:     region,
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode normalizes the address, queries the provider once, and validates
// the match against the service region.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	query := Normalize(address, g.region.Name, g.region.State)

	result, err := g.search(ctx, query)
	if err != nil {
		return nil, err
	}

	if !g.region.Contains(result.Latitude, result.Longitude) {
		return nil, eris.Wrapf(ErrOutOfServiceArea, "%q resolved to (%.5f, %.5f) outside %s",
			address, result.Latitude, result.Longitude, g.region.Name)
	}

	return result, nil
}
