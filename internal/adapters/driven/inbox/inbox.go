// Package inbox applies verified salmon activities to local feeds.
package inbox

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// Entry is a remote entry received on a local feed.
type Entry struct {
	FeedID     string
	AuthorURI  string
	Activity   domain.Activity
	ReceivedAt time.Time

	// ReplyTo is the local update ID the entry replies to, or "".
	ReplyTo string
}

// Inbox is an in-memory ActivityHandler. It keeps the remote authors
// seen on verified envelopes, the followers of each local feed, and the
// entries posted to them. It is safe for concurrent use.
type Inbox struct {
	updatesPrefix   string
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
	now             func() time.Time

	mu        sync.RWMutex
	authors   map[string]domain.RemoteAuthor
	followers map[string]map[string]domain.RemoteAuthor
	entries   map[string][]Entry
}

// NewInbox creates an inbox. Replies to URLs under
// localBaseURL + "/updates/" are linked to the local update they answer.
// logger and recorder may be nil.
func NewInbox(localBaseURL string, logger *zap.Logger, recorder ports.MetricsRecorder) *Inbox {
	prefix := ""
	if localBaseURL != "" {
		prefix = strings.TrimSuffix(localBaseURL, "/") + "/updates/"
	}
	return &Inbox{
		updatesPrefix:   prefix,
		logger:          logger,
		metricsRecorder: recorder,
		now:             time.Now,
		authors:         make(map[string]domain.RemoteAuthor),
		followers:       make(map[string]map[string]domain.RemoteAuthor),
		entries:         make(map[string][]Entry),
	}
}

// Handle records the author and dispatches the activity by verb.
// Unrecognized verbs are accepted and ignored.
func (b *Inbox) Handle(ctx context.Context, feed *domain.Feed, author *domain.RemoteAuthor, activity *domain.Activity) error {
	if err := ctx.Err(); err != nil {
		return domain.ServiceError("activity dispatch canceled", err)
	}
	if feed == nil || author == nil || activity == nil {
		return domain.BadRequestError("missing feed, author or activity")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.authors[author.URI] = *author

	switch activity.Verb {
	case domain.VerbPost:
		b.post(feed, author, activity)
	case domain.VerbFollow:
		b.follow(feed, author)
	case domain.VerbUnfollow:
		b.unfollow(feed, author)
	default:
		if b.logger != nil {
			b.logger.Debug("ignoring activity with unsupported verb",
				zap.String("feed_id", feed.ID),
				zap.String("verb", string(activity.Verb)))
		}
		return nil
	}

	if b.metricsRecorder != nil {
		b.metricsRecorder.RecordActivity(string(activity.Verb))
	}
	if b.logger != nil {
		b.logger.Info("salmon activity accepted",
			zap.String("feed_id", feed.ID),
			zap.String("verb", string(activity.Verb)),
			zap.String("author", author.URI),
			zap.String("entry_id", activity.ID))
	}
	return nil
}

func (b *Inbox) post(feed *domain.Feed, author *domain.RemoteAuthor, activity *domain.Activity) {
	entry := Entry{
		FeedID:     feed.ID,
		AuthorURI:  author.URI,
		Activity:   *activity,
		ReceivedAt: b.now(),
	}
	if b.updatesPrefix != "" && strings.HasPrefix(activity.InReplyTo, b.updatesPrefix) {
		entry.ReplyTo = strings.TrimPrefix(activity.InReplyTo, b.updatesPrefix)
	}
	b.entries[feed.ID] = append(b.entries[feed.ID], entry)
}

func (b *Inbox) follow(feed *domain.Feed, author *domain.RemoteAuthor) {
	followers, ok := b.followers[feed.ID]
	if !ok {
		followers = make(map[string]domain.RemoteAuthor)
		b.followers[feed.ID] = followers
	}
	followers[author.URI] = *author
}

func (b *Inbox) unfollow(feed *domain.Feed, author *domain.RemoteAuthor) {
	delete(b.followers[feed.ID], author.URI)
}

// Followers returns the remote authors following a feed, ordered by URI.
func (b *Inbox) Followers(feedID string) []domain.RemoteAuthor {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.RemoteAuthor, 0, len(b.followers[feedID]))
	for _, a := range b.followers[feedID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Entries returns the entries posted to a feed in arrival order.
func (b *Inbox) Entries(feedID string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Entry(nil), b.entries[feedID]...)
}

// Author returns the recorded remote author for a URI.
func (b *Inbox) Author(uri string) (domain.RemoteAuthor, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.authors[uri]
	return a, ok
}

// Ensure Inbox implements ports.ActivityHandler
var _ ports.ActivityHandler = (*Inbox)(nil)
