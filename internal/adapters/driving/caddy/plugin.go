// Package caddy is the Caddy HTTP handler that receives salmon for local feeds.
package caddy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"

	"github.com/philiph/caddy-salmon/internal/adapters/driven/atom"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/feeds"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/inbox"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/keys"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/magicenv"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/metrics"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/webfinger"
)

// salmonSuffix ends every salmon endpoint path.
const salmonSuffix = "/salmon"

// Salmon is a Caddy HTTP handler module that accepts Magic Envelopes
// posted to local feeds, verifies them against the author's key and
// dispatches the enclosed activity.
type Salmon struct {
	Config

	// Runtime state (not serialized)
	feedStore       ports.FeedStore
	keyResolver     ports.KeyResolver
	decoder         ports.EnvelopeDecoder
	verifier        ports.EnvelopeVerifier
	parser          ports.ActivityParser
	activityHandler ports.ActivityHandler
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// CaddyModule returns the Caddy module information.
func (Salmon) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.salmon",
		New: func() caddy.Module { return new(Salmon) },
	}
}

// Provision sets up the module.
func (s *Salmon) Provision(ctx caddy.Context) error {
	s.logger = ctx.Logger()
	s.logger.Debug("provisioning salmon endpoint")

	s.Config.SetDefaults()
	s.initMetricsRecorder()

	// Initialize feed store based on config
	if s.FeedsFile != "" {
		store := feeds.NewFileFeedStore(s.FeedsFile, s.logger)
		if err := store.Refresh(ctx); err != nil {
			return fmt.Errorf("load feeds file: %w", err)
		}
		s.feedStore = store
	} else {
		store := feeds.NewInMemoryFeedStore()
		for _, f := range s.Feeds {
			if err := store.Add(f); err != nil {
				return fmt.Errorf("add feed %q: %w", f.ID, err)
			}
		}
		s.feedStore = store
	}

	// Static keys are consulted before WebFinger
	static := keys.NewStaticResolver(s.metricsRecorder)
	for _, k := range s.AuthorKeys {
		if err := static.Add(k.AuthorURI, k.Key); err != nil {
			return fmt.Errorf("add author key: %w", err)
		}
	}
	resolvers := []ports.KeyResolver{static}
	if s.WebFinger {
		resolver, err := s.newWebFingerResolver()
		if err != nil {
			return err
		}
		resolvers = append(resolvers, resolver)
	}
	s.keyResolver = keys.NewChainResolver(resolvers...)

	s.decoder = magicenv.NewDecoder()
	s.verifier = magicenv.NewVerifierWithLogger(s.logger)
	s.parser = atom.NewParser()
	s.activityHandler = inbox.NewInbox(s.LocalBaseURL, s.logger, s.metricsRecorder)

	s.logger.Info("salmon endpoint provisioned",
		zap.String("path_prefix", s.PathPrefix),
		zap.Int("feed_count", len(s.feedStore.ListFeeds())),
		zap.Int("static_key_count", static.Len()),
		zap.Bool("webfinger", s.WebFinger),
		zap.String("version", getVersion()))
	return nil
}

func (s *Salmon) newWebFingerResolver() (*webfinger.Resolver, error) {
	timeout, err := ParseDuration(s.WebFingerTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse webfinger timeout: %w", err)
	}
	ttl, err := ParseDuration(s.KeyCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("parse key cache ttl: %w", err)
	}
	return webfinger.NewResolver(
		webfinger.WithScheme(s.WebFingerScheme),
		webfinger.WithHTTPClient(&http.Client{Timeout: timeout}),
		webfinger.WithCacheTTL(ttl),
		webfinger.WithCacheSize(s.KeyCacheSize),
		webfinger.WithLogger(s.logger),
		webfinger.WithMetricsRecorder(s.metricsRecorder),
	), nil
}

// Validate ensures the module's configuration is valid.
func (s *Salmon) Validate() error {
	return s.Config.Validate()
}

// ServeHTTP implements caddyhttp.MiddlewareHandler. Requests outside
// {prefix}{feed id}/salmon are passed to the next handler.
func (s *Salmon) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	feedID, ok := s.matchFeed(r.URL.Path)
	if !ok {
		return next.ServeHTTP(w, r)
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return caddyhttp.Error(http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
	return s.handleSalmon(w, r, feedID)
}

// matchFeed extracts the feed ID from {prefix}{id}/salmon.
func (s *Salmon) matchFeed(path string) (string, bool) {
	prefix := s.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if !strings.HasSuffix(rest, salmonSuffix) {
		return "", false
	}
	id := rest[:len(rest)-len(salmonSuffix)]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// handleSalmon handles POST {prefix}{id}/salmon.
//
// The feed is looked up first, then the envelope is decoded and its Atom
// payload parsed to find the author. Local authors are acknowledged
// without further work. For remote authors the key is resolved, the
// signature verified and the activity dispatched.
func (s *Salmon) handleSalmon(w http.ResponseWriter, r *http.Request, feedID string) error {
	feed, err := s.feedStore.GetFeed(feedID)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	body, err := s.readBody(w, r)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	env, err := s.decoder.Decode(body)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	activity, err := s.parser.Parse(env.Data)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	if s.isLocalAuthor(activity.Author.URI) {
		s.getLogger().Debug("ignoring salmon from local author",
			zap.String("feed_id", feedID),
			zap.String("author", activity.Author.URI))
		w.WriteHeader(http.StatusOK)
		return nil
	}

	remote, err := s.keyResolver.Resolve(r.Context(), activity.Author)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	verified, err := s.verifier.VerifyEnvelope(env, remote.PublicKey)
	if err != nil {
		s.reject(w, feedID, err)
		return nil
	}
	if !verified {
		// The cached key may be stale after a rotation
		if f, ok := s.keyResolver.(ports.KeyForgetter); ok {
			f.Forget(activity.Author.URI)
		}
		s.reject(w, feedID, domain.VerificationError("signature does not match the author's key"))
		return nil
	}

	if err := s.activityHandler.Handle(r.Context(), feed, remote, activity); err != nil {
		s.reject(w, feedID, err)
		return nil
	}

	s.getMetricsRecorder().RecordEnvelope(feedID, true, "")
	w.WriteHeader(http.StatusOK)
	return nil
}

// readBody reads the request body up to MaxBodySize.
func (s *Salmon) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.BadRequestError(fmt.Sprintf("envelope exceeds %d bytes", limit))
		}
		return nil, domain.BadRequestError("failed to read request body")
	}
	if len(body) == 0 {
		return nil, domain.BadRequestError("empty request body")
	}
	return body, nil
}

func (s *Salmon) isLocalAuthor(authorURI string) bool {
	return s.LocalBaseURL != "" && strings.HasPrefix(authorURI, s.LocalBaseURL)
}

// reject records and writes a rejected delivery. Rejections are logged at
// Debug and never include the payload; service errors are logged at Error.
func (s *Salmon) reject(w http.ResponseWriter, feedID string, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ServiceError("internal error", err)
	}

	s.getMetricsRecorder().RecordEnvelope(feedID, false, appErr.Code.String())

	logger := s.getLogger()
	if appErr.Code == domain.ErrCodeServiceError {
		logger.Error("salmon processing failed",
			zap.String("feed_id", feedID),
			zap.Error(err))
	} else {
		logger.Debug("salmon rejected",
			zap.String("feed_id", feedID),
			zap.String("code", appErr.Code.String()),
			zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code.HTTPStatus())
	json.NewEncoder(w).Encode(domain.NewJSONErrorResponse(appErr))
}

// getLogger returns the logger, or a no-op logger if not set.
// This allows tests to run without calling Provision().
func (s *Salmon) getLogger() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.NewNop()
}

// getMetricsRecorder returns the metrics recorder, or a no-op recorder if not set.
// This allows tests to run without calling Provision().
func (s *Salmon) getMetricsRecorder() ports.MetricsRecorder {
	if s.metricsRecorder != nil {
		return s.metricsRecorder
	}
	return metrics.NewNoopMetricsRecorder()
}

var (
	prometheusRecorderOnce sync.Once
	prometheusRecorder     *metrics.PrometheusMetricsRecorder
)

// initMetricsRecorder initializes the metrics recorder based on configuration.
// The Prometheus recorder is shared across config reloads so its collectors
// are registered once.
func (s *Salmon) initMetricsRecorder() {
	if s.MetricsEnabled {
		prometheusRecorderOnce.Do(func() {
			prometheusRecorder = metrics.NewPrometheusMetricsRecorder()
		})
		s.metricsRecorder = prometheusRecorder
	} else {
		s.metricsRecorder = metrics.NewNoopMetricsRecorder()
	}
}

// SetFeedStore sets the feed store. For testing purposes.
func (s *Salmon) SetFeedStore(store ports.FeedStore) {
	s.feedStore = store
}

// SetKeyResolver sets the key resolver. For testing purposes.
func (s *Salmon) SetKeyResolver(resolver ports.KeyResolver) {
	s.keyResolver = resolver
}

// SetActivityHandler sets the activity handler. For testing purposes.
func (s *Salmon) SetActivityHandler(handler ports.ActivityHandler) {
	s.activityHandler = handler
}

// SetMetricsRecorder sets the metrics recorder for testing.
func (s *Salmon) SetMetricsRecorder(recorder ports.MetricsRecorder) {
	s.metricsRecorder = recorder
}

// SetLogger sets the logger for testing.
func (s *Salmon) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Version getters - these are set via ldflags in the root package
// We access them via a function pointer to avoid import cycles
var (
	getVersion = func() string { return "dev" }
)

// SetVersionGetter sets the version getter function.
// Called from root package init to inject version info.
func SetVersionGetter(version func() string) {
	getVersion = version
}

// Interface guards
var (
	_ caddy.Module                = (*Salmon)(nil)
	_ caddy.Provisioner           = (*Salmon)(nil)
	_ caddy.Validator             = (*Salmon)(nil)
	_ caddyhttp.MiddlewareHandler = (*Salmon)(nil)
	_ caddyfile.Unmarshaler       = (*Salmon)(nil)
)
