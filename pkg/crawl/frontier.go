package crawl

import (
	"sync"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// Frontier is the FIFO queue of discovered entities still to be fetched.
// Deduplication happens before items reach it, in the run's VisitedSet.
type Frontier struct {
	mu    sync.Mutex
	items []models.CrawlFrontierItem
}

func NewFrontier(items ...models.CrawlFrontierItem) *Frontier {
	f := &Frontier{}
	f.Push(items...)
	return f
}

func (f *Frontier) Push(items ...models.CrawlFrontierItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, items...)
}

// PopN removes and returns up to n items from the front of the queue.
func (f *Frontier) PopN(n int) []models.CrawlFrontierItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n > len(f.items) {
		n = len(f.items)
	}
	out := make([]models.CrawlFrontierItem, n)
	copy(out, f.items[:n])
	f.items = f.items[n:]
	return out
}

func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
