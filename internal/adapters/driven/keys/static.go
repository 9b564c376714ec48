// Package keys provides configured and composite key resolvers.
package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// StaticResolver serves keys configured for known author URIs.
type StaticResolver struct {
	mu              sync.RWMutex
	keys            map[string]string
	metricsRecorder ports.MetricsRecorder
}

// NewStaticResolver creates an empty static resolver. recorder may be nil.
func NewStaticResolver(recorder ports.MetricsRecorder) *StaticResolver {
	return &StaticResolver{
		keys:            make(map[string]string),
		metricsRecorder: recorder,
	}
}

// Add registers the key for an author URI. The key must parse as a magic
// public key.
func (s *StaticResolver) Add(authorURI, key string) error {
	if authorURI == "" {
		return errors.New("author uri is required")
	}
	if _, err := domain.ParsePublicKey(key); err != nil {
		return fmt.Errorf("key for %s: %w", authorURI, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[authorURI] = key
	return nil
}

// Resolve returns the configured key for the author URI.
func (s *StaticResolver) Resolve(ctx context.Context, author domain.Author) (*domain.RemoteAuthor, error) {
	s.mu.RLock()
	key, ok := s.keys[author.URI]
	s.mu.RUnlock()

	if s.metricsRecorder != nil {
		s.metricsRecorder.RecordKeyLookup("static", ok)
	}
	if !ok {
		return nil, domain.KeyUnavailableError(author.URI, errors.New("no configured key"))
	}
	return &domain.RemoteAuthor{
		Handle:    domain.Handle(author.URI, author.Name),
		URI:       author.URI,
		PublicKey: key,
	}, nil
}

// Len returns the number of configured keys.
func (s *StaticResolver) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Ensure StaticResolver implements ports.KeyResolver
var _ ports.KeyResolver = (*StaticResolver)(nil)
