// Package geocode resolves free-text place names to WGS84 coordinates via
// the Nominatim search API, with optional result caching.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes place names.
type Client interface {
	// Geocode resolves a single place name. A place the service does not
	// know yields Matched=false with a nil error; errors are reserved for
	// transport and service failures.
	Geocode(ctx context.Context, place string) (*Result, error)
}

// Result holds the geocoding output for a place name.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string // canonical name returned by the service
	Source      string // provider name, e.g. "nominatim"
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Nominatim endpoint (for tests or self-hosted
// instances).
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit for lookup calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout bounds each lookup call. A lookup exceeding the timeout is a
// resolution failure, not a hang.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		g.timeout = d
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewClient creates a Nominatim-backed geocoding Client.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    nominatimBaseURL,
		userAgent:  "mapcli/1.0",
		limiter:    rate.NewLimiter(1, 1), // Nominatim public instance: 1 req/s
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
