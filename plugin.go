// Package caddysalmon provides a Caddy v2 plugin that receives Salmon:
// Magic Envelopes posted to local feeds by federated servers, verified
// against the claimed author's RSA key before the enclosed activity is
// trusted.
package caddysalmon

import (
	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"

	caddyadapter "github.com/philiph/caddy-salmon/internal/adapters/driving/caddy"
)

const Version = "0.1.0"

func init() {
	caddy.RegisterModule(caddyadapter.Salmon{})
	httpcaddyfile.RegisterHandlerDirective("salmon", caddyadapter.ParseCaddyfile)
	caddyadapter.SetVersionGetter(func() string { return Version })
}

// Salmon is the Caddy HTTP handler module (http.handlers.salmon).
type Salmon = caddyadapter.Salmon
