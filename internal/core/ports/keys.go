package ports

import (
	"context"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// KeyResolver discovers the magic public key of a remote author.
// This is a port interface - implementations are adapters.
type KeyResolver interface {
	// Resolve returns the remote author record, including a key string of
	// the form RSA.<mod>.<exp>. Failures are reported as KeyUnavailable errors.
	Resolve(ctx context.Context, author domain.Author) (*domain.RemoteAuthor, error)
}

// KeyForgetter is implemented by resolvers that cache keys. A verifier
// calls Forget after a signature mismatch so a rotated key is fetched on
// the next delivery.
type KeyForgetter interface {
	Forget(authorURI string)
}
