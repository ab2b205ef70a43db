package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// VisitedSet is a crawl visited set stored as one Redis set per run, so
// several crawl processes sharing a run id never import the same item twice.
type VisitedSet struct {
	client *Client
	key    string
	ttl    time.Duration
}

func NewVisitedSet(client *Client, runID string, ttl time.Duration) *VisitedSet {
	return &VisitedSet{
		client: client,
		key:    VisitedKey(runID),
		ttl:    ttl,
	}
}

func VisitedKey(runID string) string {
	return fmt.Sprintf("bramble:crawl:%s:visited", runID)
}

// Add reports true only for the first caller to add item.
func (s *VisitedSet) Add(ctx context.Context, item models.CrawlFrontierItem) (bool, error) {
	pipe := s.client.rdb.TxPipeline()
	added := pipe.SAdd(ctx, s.key, item.Key())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to add %s to visited set: %w", item.Key(), err)
	}
	return added.Val() == 1, nil
}

func (s *VisitedSet) Len(ctx context.Context) (int64, error) {
	return s.client.rdb.SCard(ctx, s.key).Result()
}
