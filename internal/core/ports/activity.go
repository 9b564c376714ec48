package ports

import (
	"context"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// ActivityParser turns a verified payload into an activity.
type ActivityParser interface {
	Parse(payload []byte) (*domain.Activity, error)
}

// ActivityHandler applies a verified activity to a local feed.
// This is a port interface - implementations are adapters.
type ActivityHandler interface {
	// Handle dispatches the activity by verb. The remote author has
	// already been verified as the signer of the envelope.
	Handle(ctx context.Context, feed *domain.Feed, author *domain.RemoteAuthor, activity *domain.Activity) error
}
