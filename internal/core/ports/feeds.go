package ports

import (
	"context"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// FeedStore is the port interface for looking up local feeds.
type FeedStore interface {
	// GetFeed returns the feed with the given ID, or a FeedNotFound error.
	GetFeed(id string) (*domain.Feed, error)

	// ListFeeds returns all known feeds.
	ListFeeds() []domain.Feed

	// Refresh reloads feeds from the source.
	Refresh(ctx context.Context) error
}
