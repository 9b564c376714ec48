package caddy

import (
	"github.com/philiph/caddy-salmon/internal/core/ports"

	"github.com/philiph/caddy-salmon/internal/adapters/driven/atom"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/magicenv"
)

// NewSalmonForTest creates a Salmon handler with injected dependencies and
// the production decoder, verifier and Atom parser.
// This constructor is intended for testing purposes only.
func NewSalmonForTest(
	config Config,
	feedStore ports.FeedStore,
	keyResolver ports.KeyResolver,
	activityHandler ports.ActivityHandler,
) *Salmon {
	config.SetDefaults()
	s := &Salmon{
		Config:   config,
		decoder:  magicenv.NewDecoder(),
		verifier: magicenv.NewVerifier(),
		parser:   atom.NewParser(),
	}
	s.SetFeedStore(feedStore)
	s.SetKeyResolver(keyResolver)
	s.SetActivityHandler(activityHandler)
	return s
}
