package keys

import (
	"context"
	"errors"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// ChainResolver tries resolvers in order and returns the first success.
type ChainResolver struct {
	resolvers []ports.KeyResolver
}

// NewChainResolver creates a resolver over the given resolvers.
func NewChainResolver(resolvers ...ports.KeyResolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

// Resolve returns the first successful lookup, or the last error.
func (c *ChainResolver) Resolve(ctx context.Context, author domain.Author) (*domain.RemoteAuthor, error) {
	err := error(domain.KeyUnavailableError(author.URI, errors.New("no key resolvers configured")))
	for _, r := range c.resolvers {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domain.KeyUnavailableError(author.URI, ctxErr)
		}
		remote, rerr := r.Resolve(ctx, author)
		if rerr == nil {
			return remote, nil
		}
		err = rerr
	}
	return nil, err
}

// Forget passes the call to every resolver that caches keys.
func (c *ChainResolver) Forget(authorURI string) {
	for _, r := range c.resolvers {
		if f, ok := r.(ports.KeyForgetter); ok {
			f.Forget(authorURI)
		}
	}
}

// Ensure ChainResolver implements the key ports
var (
	_ ports.KeyResolver  = (*ChainResolver)(nil)
	_ ports.KeyForgetter = (*ChainResolver)(nil)
)
