// Package webfinger discovers the magic public keys of remote authors.
package webfinger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// Link relations read from WebFinger documents.
const (
	RelMagicPublicKey = "magic-public-key"
	RelUpdatesFrom    = "http://schemas.google.com/g/2010#updates-from"
)

const (
	initialInterval = 200 * time.Millisecond
	maxInterval     = 2 * time.Second
	maxDocumentSize = 1 << 20
)

// Resolver looks up authors with WebFinger and caches the result.
// It is safe for concurrent use.
type Resolver struct {
	scheme          string
	httpClient      *http.Client
	cache           gcache.Cache // nil when caching is disabled
	maxElapsedTime  time.Duration
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// NewResolver creates a WebFinger resolver.
func NewResolver(opts ...Option) *Resolver {
	o := &options{
		scheme:         DefaultScheme,
		cacheTTL:       DefaultCacheTTL,
		cacheSize:      DefaultCacheSize,
		maxElapsedTime: DefaultMaxElapsedTime,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	r := &Resolver{
		scheme:          o.scheme,
		httpClient:      o.httpClient,
		maxElapsedTime:  o.maxElapsedTime,
		logger:          o.logger,
		metricsRecorder: o.metricsRecorder,
	}
	if o.cacheTTL > 0 {
		size := o.cacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		r.cache = gcache.New(size).LRU().Expiration(o.cacheTTL).Build()
	}
	return r
}

// Resolve returns the remote author record for author, fetching the
// author's WebFinger document when it is not cached. The handle is
// "<author name>@<host of author URI>".
func (r *Resolver) Resolve(ctx context.Context, author domain.Author) (*domain.RemoteAuthor, error) {
	if r.cache != nil {
		if v, err := r.cache.Get(author.URI); err == nil {
			if cached, ok := v.(*domain.RemoteAuthor); ok {
				r.record("cache", true)
				remote := *cached
				return &remote, nil
			}
		}
	}

	handle := domain.Handle(author.URI, author.Name)
	if handle == "" {
		r.record("webfinger", false)
		return nil, domain.KeyUnavailableError(author.URI, errors.New("cannot derive a webfinger handle"))
	}

	doc, err := r.fetch(ctx, handle)
	if err != nil {
		r.record("webfinger", false)
		if r.logger != nil {
			r.logger.Warn("webfinger lookup failed",
				zap.String("handle", handle),
				zap.Error(err))
		}
		return nil, domain.KeyUnavailableError(author.URI, err)
	}

	remote, err := remoteAuthor(handle, author.URI, doc)
	if err != nil {
		r.record("webfinger", false)
		if r.logger != nil {
			r.logger.Warn("webfinger document has no usable key",
				zap.String("handle", handle),
				zap.Error(err))
		}
		return nil, domain.KeyUnavailableError(author.URI, err)
	}

	r.record("webfinger", true)
	if r.cache != nil {
		_ = r.cache.Set(author.URI, remote)
	}
	if r.logger != nil {
		r.logger.Debug("webfinger lookup succeeded",
			zap.String("handle", handle),
			zap.String("feed_url", remote.FeedURL))
	}
	result := *remote
	return &result, nil
}

// Forget drops the cached record for an author URI, so the next lookup
// fetches a fresh key.
func (r *Resolver) Forget(authorURI string) {
	if r.cache != nil {
		r.cache.Remove(authorURI)
	}
}

// fetch retrieves and parses the WebFinger document for handle.
// Server errors and transport failures are retried with exponential
// backoff; other non-200 responses fail immediately.
func (r *Resolver) fetch(ctx context.Context, handle string) (*document, error) {
	host := handle[strings.LastIndex(handle, "@")+1:]
	u := url.URL{
		Scheme:   r.scheme,
		Host:     host,
		Path:     "/.well-known/webfinger",
		RawQuery: url.Values{"resource": {"acct:" + handle}}.Encode(),
	}

	operation := func() (*document, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/jrd+json, application/xrd+xml;q=0.9")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("webfinger status %d", resp.StatusCode))
		}

		doc, err := parseDocument(resp.Header.Get("Content-Type"), body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return doc, nil
	}

	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = initialInterval
	exponentialBackoff.MaxInterval = maxInterval

	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(exponentialBackoff),
		backoff.WithMaxElapsedTime(r.maxElapsedTime),
	)
}

// remoteAuthor extracts the magic public key and feed URL from doc.
func remoteAuthor(handle, authorURI string, doc *document) (*domain.RemoteAuthor, error) {
	keyLink := doc.link(RelMagicPublicKey)
	if keyLink == nil {
		return nil, errors.New("no magic-public-key link")
	}
	key := keyLink.Href
	if i := strings.Index(key, ","); i >= 0 {
		key = key[i+1:]
	}
	if _, err := domain.ParsePublicKey(key); err != nil {
		return nil, err
	}

	remote := &domain.RemoteAuthor{
		Handle:    handle,
		URI:       authorURI,
		PublicKey: key,
	}
	if feed := doc.link(RelUpdatesFrom); feed != nil {
		remote.FeedURL = feed.Href
	}
	return remote, nil
}

func (r *Resolver) record(source string, success bool) {
	if r.metricsRecorder != nil {
		r.metricsRecorder.RecordKeyLookup(source, success)
	}
}

// Ensure Resolver satisfies the port interface
var _ ports.KeyResolver = (*Resolver)(nil)
