package caddy

import (
	"strconv"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// ParseCaddyfile sets up the handler from Caddyfile tokens.
//
// Syntax:
//
//	salmon {
//	    path_prefix <prefix>
//	    local_base_url <url>
//	    feeds_file <path>
//	    feed <id> <owner> [<feed_url>]
//	    author_key <author_uri> <key>
//	    webfinger
//	    webfinger_scheme <http|https>
//	    webfinger_timeout <duration>
//	    key_cache_ttl <duration>
//	    key_cache_size <n>
//	    max_body_size <bytes>
//	    metrics
//	}
func ParseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var s Salmon
	err := s.UnmarshalCaddyfile(h.Dispenser)
	return &s, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
func (s *Salmon) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // consume directive name

	for d.NextBlock(0) {
		switch d.Val() {
		case "path_prefix":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.PathPrefix = d.Val()

		case "local_base_url":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.LocalBaseURL = d.Val()

		case "feeds_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.FeedsFile = d.Val()

		case "feed":
			args := d.RemainingArgs()
			if len(args) < 2 || len(args) > 3 {
				return d.ArgErr()
			}
			feed := domain.Feed{ID: args[0], Owner: args[1]}
			if len(args) == 3 {
				feed.URL = args[2]
			}
			s.Feeds = append(s.Feeds, feed)

		case "author_key":
			args := d.RemainingArgs()
			if len(args) != 2 {
				return d.ArgErr()
			}
			s.AuthorKeys = append(s.AuthorKeys, AuthorKey{AuthorURI: args[0], Key: args[1]})

		case "webfinger":
			s.WebFinger = true

		case "webfinger_scheme":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.WebFingerScheme = d.Val()

		case "webfinger_timeout":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.WebFingerTimeout = d.Val()

		case "key_cache_ttl":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.KeyCacheTTL = d.Val()

		case "key_cache_size":
			if !d.NextArg() {
				return d.ArgErr()
			}
			n, err := strconv.Atoi(d.Val())
			if err != nil {
				return d.Errf("invalid key_cache_size: %v", err)
			}
			s.KeyCacheSize = n

		case "max_body_size":
			if !d.NextArg() {
				return d.ArgErr()
			}
			n, err := strconv.ParseInt(d.Val(), 10, 64)
			if err != nil {
				return d.Errf("invalid max_body_size: %v", err)
			}
			s.MaxBodySize = n

		case "metrics":
			s.MetricsEnabled = true

		default:
			return d.Errf("unrecognized subdirective: %s", d.Val())
		}
	}

	s.Config.SetDefaults()
	return nil
}
