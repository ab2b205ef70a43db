package crawl

import (
	"context"
	"sync"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// VisitedSet records which (resourceType, externalId) pairs a run has already
// imported or enqueued. One instance is shared by every worker of a run.
type VisitedSet interface {
	// Add marks item visited and reports whether it was not visited before.
	Add(ctx context.Context, item models.CrawlFrontierItem) (bool, error)
}

// MemoryVisitedSet is a process-local VisitedSet.
type MemoryVisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryVisitedSet() *MemoryVisitedSet {
	return &MemoryVisitedSet{seen: make(map[string]struct{})}
}

func (s *MemoryVisitedSet) Add(_ context.Context, item models.CrawlFrontierItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := item.Key()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

func (s *MemoryVisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
