// Package feeds provides stores for the local feeds that accept salmon.
package feeds

import (
	"context"
	"sort"
	"sync"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// InMemoryFeedStore is an in-memory implementation of FeedStore.
type InMemoryFeedStore struct {
	mu    sync.RWMutex
	feeds map[string]domain.Feed
}

// NewInMemoryFeedStore creates a new in-memory feed store.
func NewInMemoryFeedStore() *InMemoryFeedStore {
	return &InMemoryFeedStore{feeds: make(map[string]domain.Feed)}
}

// Add adds or replaces a feed.
func (s *InMemoryFeedStore) Add(f domain.Feed) error {
	if err := f.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[f.ID] = f
	return nil
}

// GetFeed returns the feed with the given ID.
func (s *InMemoryFeedStore) GetFeed(id string) (*domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.feeds, id)
}

// ListFeeds returns all feeds ordered by ID.
func (s *InMemoryFeedStore) ListFeeds() []domain.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.feeds)
}

// Refresh is a no-op for in-memory store.
func (s *InMemoryFeedStore) Refresh(ctx context.Context) error {
	return nil
}

func lookup(feeds map[string]domain.Feed, id string) (*domain.Feed, error) {
	f, ok := feeds[id]
	if !ok {
		return nil, domain.FeedNotFoundError(id)
	}
	return &f, nil
}

func sorted(feeds map[string]domain.Feed) []domain.Feed {
	out := make([]domain.Feed, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ensure InMemoryFeedStore implements ports.FeedStore
var _ ports.FeedStore = (*InMemoryFeedStore)(nil)
