package caddy

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// Defaults applied by SetDefaults.
const (
	DefaultPathPrefix       = "/feeds/"
	DefaultWebFingerScheme  = "https"
	DefaultWebFingerTimeout = "10s"
	DefaultKeyCacheTTL      = "1h"
	DefaultKeyCacheSize     = 1024
	DefaultMaxBodySize      = 1 << 20
)

// Config holds the configuration for the Salmon endpoint.
type Config struct {
	// PathPrefix is the path under which feeds accept salmon, as
	// {prefix}{feed id}/salmon. Must start and end with "/".
	// Defaults to "/feeds/".
	PathPrefix string `json:"path_prefix,omitempty"`

	// LocalBaseURL is the public base URL of this site. Authors whose URI
	// starts with it are local, and their salmon is acknowledged without
	// verification. Replies to {LocalBaseURL}/updates/{id} are linked to
	// the local update.
	LocalBaseURL string `json:"local_base_url,omitempty"`

	// FeedsFile is the path to a JSON or YAML feed registry.
	// Cannot be combined with Feeds.
	FeedsFile string `json:"feeds_file,omitempty"`

	// Feeds are feeds configured inline.
	Feeds []domain.Feed `json:"feeds,omitempty"`

	// AuthorKeys are magic public keys pinned for known authors. They are
	// consulted before WebFinger.
	AuthorKeys []AuthorKey `json:"author_keys,omitempty"`

	// WebFinger enables key discovery with WebFinger.
	WebFinger bool `json:"webfinger,omitempty"`

	// WebFingerScheme is the scheme used for WebFinger requests.
	// Defaults to "https".
	WebFingerScheme string `json:"webfinger_scheme,omitempty"`

	// WebFingerTimeout bounds a single WebFinger request (e.g., "10s").
	WebFingerTimeout string `json:"webfinger_timeout,omitempty"`

	// KeyCacheTTL is how long discovered keys are cached (e.g., "1h").
	// "0" disables caching.
	KeyCacheTTL string `json:"key_cache_ttl,omitempty"`

	// KeyCacheSize is the maximum number of cached authors.
	KeyCacheSize int `json:"key_cache_size,omitempty"`

	// MaxBodySize is the largest accepted envelope in bytes.
	MaxBodySize int64 `json:"max_body_size,omitempty"`

	// MetricsEnabled enables Prometheus metrics exposition.
	// Metrics are exposed via Caddy's admin API /metrics endpoint.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`
}

// AuthorKey pins the magic public key of an author.
type AuthorKey struct {
	AuthorURI string `json:"author_uri"`
	Key       string `json:"key"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.FeedsFile == "" && len(c.Feeds) == 0 {
		return fmt.Errorf("either feeds_file or at least one feed must be specified")
	}
	if c.FeedsFile != "" && len(c.Feeds) > 0 {
		return fmt.Errorf("only one of feeds_file or inline feeds can be specified")
	}

	seen := make(map[string]bool, len(c.Feeds))
	for i, f := range c.Feeds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
		if seen[f.ID] {
			return fmt.Errorf("feeds[%d]: duplicate feed id %q", i, f.ID)
		}
		seen[f.ID] = true
	}

	if len(c.AuthorKeys) == 0 && !c.WebFinger {
		return fmt.Errorf("no key source configured: add author_key entries or enable webfinger")
	}
	for i, k := range c.AuthorKeys {
		if k.AuthorURI == "" {
			return fmt.Errorf("author_keys[%d]: author_uri is required", i)
		}
		if _, err := domain.ParsePublicKey(k.Key); err != nil {
			return fmt.Errorf("author_keys[%d]: %w", i, err)
		}
	}

	if c.PathPrefix != "" && (!strings.HasPrefix(c.PathPrefix, "/") || !strings.HasSuffix(c.PathPrefix, "/")) {
		return fmt.Errorf("path_prefix %q must start and end with /", c.PathPrefix)
	}

	if c.LocalBaseURL != "" {
		u, err := url.Parse(c.LocalBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("local_base_url %q must be an absolute http(s) URL", c.LocalBaseURL)
		}
	}

	if c.WebFingerScheme != "" && c.WebFingerScheme != "http" && c.WebFingerScheme != "https" {
		return fmt.Errorf("webfinger_scheme must be http or https, got %q", c.WebFingerScheme)
	}

	durations := []struct {
		name, value string
	}{
		{"webfinger_timeout", c.WebFingerTimeout},
		{"key_cache_ttl", c.KeyCacheTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	if c.KeyCacheSize < 0 {
		return fmt.Errorf("key_cache_size must not be negative")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size must not be negative")
	}

	return nil
}

// SetDefaults applies default values to unset configuration fields.
func (c *Config) SetDefaults() {
	if c.PathPrefix == "" {
		c.PathPrefix = DefaultPathPrefix
	}
	if c.WebFingerScheme == "" {
		c.WebFingerScheme = DefaultWebFingerScheme
	}
	if c.WebFingerTimeout == "" {
		c.WebFingerTimeout = DefaultWebFingerTimeout
	}
	if c.KeyCacheTTL == "" {
		c.KeyCacheTTL = DefaultKeyCacheTTL
	}
	if c.KeyCacheSize == 0 {
		c.KeyCacheSize = DefaultKeyCacheSize
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
}

// ParseDuration parses a duration string, supporting "d" suffix for days.
// Examples: "30d" (30 days), "8h" (8 hours), "1h30m" (1.5 hours)
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		var d int64
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, fmt.Errorf("invalid day format: %s", s)
		}
		// time.Duration overflows past 106751 days
		if d < 0 || d > 106751 {
			return 0, fmt.Errorf("day value out of range: %s (max 106751 days)", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
