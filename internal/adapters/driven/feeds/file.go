package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// FileFeedStore loads feeds from a local JSON or YAML file.
type FileFeedStore struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	feeds map[string]domain.Feed
}

// FeedsFile represents the structure of the feeds file.
type FeedsFile struct {
	Feeds []domain.Feed `json:"feeds" yaml:"feeds"`
}

// NewFileFeedStore creates a new file-based feed store. Call Refresh to
// load the file.
func NewFileFeedStore(path string, logger *zap.Logger) *FileFeedStore {
	return &FileFeedStore{
		path:   path,
		logger: logger,
		feeds:  make(map[string]domain.Feed),
	}
}

// GetFeed returns the feed with the given ID.
func (s *FileFeedStore) GetFeed(id string) (*domain.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.feeds, id)
}

// ListFeeds returns all loaded feeds ordered by ID.
func (s *FileFeedStore) ListFeeds() []domain.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.feeds)
}

// Refresh reloads feeds from the file. On error the previously loaded
// feeds are kept.
func (s *FileFeedStore) Refresh(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read feeds file: %w", err)
	}

	var file FeedsFile
	ext := strings.ToLower(filepath.Ext(s.path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse YAML feeds file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse JSON feeds file: %w", err)
		}
	}

	feeds := make(map[string]domain.Feed, len(file.Feeds))
	for _, f := range file.Feeds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("invalid feed %q: %w", f.ID, err)
		}
		if _, dup := feeds[f.ID]; dup {
			return fmt.Errorf("duplicate feed id %q", f.ID)
		}
		feeds[f.ID] = f
	}

	// Atomic update
	s.mu.Lock()
	s.feeds = feeds
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("feeds loaded",
			zap.String("path", s.path),
			zap.Int("count", len(feeds)))
	}
	return nil
}

// Ensure FileFeedStore implements ports.FeedStore
var _ ports.FeedStore = (*FileFeedStore)(nil)
