package webfinger

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// Defaults for a Resolver.
const (
	DefaultScheme         = "https"
	DefaultTimeout        = 10 * time.Second
	DefaultCacheTTL       = time.Hour
	DefaultCacheSize      = 1024
	DefaultMaxElapsedTime = 30 * time.Second
)

// Option is a functional option for configuring a Resolver.
type Option func(*options)

type options struct {
	scheme          string
	httpClient      *http.Client
	cacheTTL        time.Duration
	cacheSize       int
	maxElapsedTime  time.Duration
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// WithScheme sets the URL scheme used for WebFinger requests ("https" or "http").
func WithScheme(scheme string) Option {
	return func(o *options) {
		o.scheme = scheme
	}
}

// WithHTTPClient sets the HTTP client used for WebFinger requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithCacheTTL sets how long discovered keys are cached.
// A zero TTL disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithCacheSize sets the maximum number of cached authors.
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// WithMaxElapsedTime bounds the total time spent retrying a lookup.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(o *options) {
		o.maxElapsedTime = d
	}
}

// WithLogger sets the logger for lookup events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsRecorder sets the recorder for key lookup metrics.
func WithMetricsRecorder(recorder ports.MetricsRecorder) Option {
	return func(o *options) {
		o.metricsRecorder = recorder
	}
}
