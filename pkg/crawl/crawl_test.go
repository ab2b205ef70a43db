package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
)

func getTestLogger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zap.NewNop(), nil)
}

func item(resourceType string, id int64) models.CrawlFrontierItem {
	return models.CrawlFrontierItem{ResourceType: resourceType, ExternalID: id}
}

func mustRelation(t *testing.T, resourceType, name string) (*registry.ResourceTypeDef, registry.RelationDef) {
	t.Helper()
	def, err := registry.Default().Definition(resourceType)
	require.NoError(t, err)
	rel, ok := def.Relation(name)
	require.True(t, ok, "%s has no relation %s", resourceType, name)
	return def, rel
}

func TestResolveReference(t *testing.T) {
	_, developers := mustRelation(t, "game", "developers")

	tests := []struct {
		name    string
		ref     any
		want    int64
		wantErr bool
	}{
		{name: "detail url", ref: map[string]any{"api_detail_url": "https://www.giantbomb.com/api/company/3010-7/", "id": 99}, want: 7},
		{name: "detail url of another type", ref: map[string]any{"api_detail_url": "https://www.giantbomb.com/api/game/3030-7/"}, wantErr: true},
		{name: "object id", ref: map[string]any{"id": float64(7), "name": "Bungie"}, want: 7},
		{name: "object without id", ref: map[string]any{"name": "Bungie"}, wantErr: true},
		{name: "bare float", ref: float64(7), want: 7},
		{name: "bare int", ref: 7, want: 7},
		{name: "json number", ref: json.Number("7"), want: 7},
		{name: "plural path", ref: "Companies/7", want: 7},
		{name: "lower case path", ref: "companies/7", want: 7},
		{name: "path of another type", ref: "Games/7", wantErr: true},
		{name: "path without id", ref: "Companies/abc", wantErr: true},
		{name: "guid", ref: "3010-7", want: 7},
		{name: "guid of another type", ref: "3030-7", wantErr: true},
		{name: "numeric string", ref: "7", want: 7},
		{name: "garbage", ref: "seven", wantErr: true},
		{name: "null", ref: nil, wantErr: true},
		{name: "zero id", ref: 0, wantErr: true},
		{name: "fractional id", ref: 7.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveReference(registry.Default(), developers, tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, item("company", tt.want), got)
		})
	}
}

func TestResolveReference_ObjectPlural(t *testing.T) {
	_, objects := mustRelation(t, "game", "objects")

	got, err := ResolveReference(registry.Default(), objects, "Objects/12")
	require.NoError(t, err)
	assert.Equal(t, item("thing", 12), got)
}

func TestMemoryVisitedSet_ConcurrentAdd(t *testing.T) {
	visited := NewMemoryVisitedSet()
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := visited.Add(ctx, item("company", 7))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, visited.Len())
}

func TestFrontier_FIFO(t *testing.T) {
	f := NewFrontier(item("game", 1), item("game", 2))
	f.Push(item("company", 3))

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []models.CrawlFrontierItem{item("game", 1), item("game", 2)}, f.PopN(2))
	assert.Equal(t, []models.CrawlFrontierItem{item("company", 3)}, f.PopN(5))
	assert.Empty(t, f.PopN(1))
}

func TestRelationImporter_ImportRelations(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	visited := NewMemoryVisitedSet()
	ri := NewRelationImporter(registry.Default(), st, visited, getTestLogger())

	game, developers := mustRelation(t, "game", "developers")
	_, publishers := mustRelation(t, "game", "publishers")

	t.Run("same entity in two relation lists is enqueued once", func(t *testing.T) {
		adds, err := ri.ImportRelations(ctx, game, developers, 42, []any{map[string]any{"id": float64(7)}, map[string]any{"id": float64(8)}})
		require.NoError(t, err)
		assert.Equal(t, []models.CrawlFrontierItem{item("company", 7), item("company", 8)}, adds)

		adds, err = ri.ImportRelations(ctx, game, publishers, 42, []any{map[string]any{"id": float64(7)}})
		require.NoError(t, err)
		assert.Empty(t, adds)

		assert.Equal(t, 2, st.Count("wiki_assoc_game_developer"))
		assert.Equal(t, 1, st.Count("wiki_assoc_game_publisher"))
	})

	t.Run("re-import writes no duplicate edges", func(t *testing.T) {
		adds, err := ri.ImportRelations(ctx, game, developers, 42, []any{map[string]any{"id": float64(7)}})
		require.NoError(t, err)
		assert.Empty(t, adds)
		assert.Equal(t, 2, st.Count("wiki_assoc_game_developer"))
	})

	t.Run("unresolvable references are skipped", func(t *testing.T) {
		adds, err := ri.ImportRelations(ctx, game, developers, 43, []any{"Games/1", nil, "Companies/9"})
		require.NoError(t, err)
		assert.Equal(t, []models.CrawlFrontierItem{item("company", 9)}, adds)
		assert.Equal(t, 3, st.Count("wiki_assoc_game_developer"))
	})
}

type failingStore struct {
	store.Store
}

func (failingStore) InsertIgnore(context.Context, string, models.Row) (bool, error) {
	return false, perrors.New(perrors.ErrStoreUnavailable, "", 0, "connection refused")
}

func TestRelationImporter_StoreFailureAborts(t *testing.T) {
	ri := NewRelationImporter(registry.Default(), failingStore{store.NewMemoryStore()}, NewMemoryVisitedSet(), getTestLogger())
	game, developers := mustRelation(t, "game", "developers")

	_, err := ri.ImportRelations(context.Background(), game, developers, 42, []any{7, 8})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrStoreUnavailable)
}

// graph is a fake content API plus importer: every record lists the items it links to.
type graph struct {
	visited VisitedSet

	mu       sync.Mutex
	links    map[string][]models.CrawlFrontierItem
	failures map[string]error
	imports  map[string]int
	listed   []models.EntityRecord
}

func newGraph(visited VisitedSet) *graph {
	return &graph{
		visited:  visited,
		links:    map[string][]models.CrawlFrontierItem{},
		failures: map[string]error{},
		imports:  map[string]int{},
	}
}

func (g *graph) link(from models.CrawlFrontierItem, to ...models.CrawlFrontierItem) {
	g.links[from.Key()] = append(g.links[from.Key()], to...)
}

func (g *graph) Get(_ context.Context, resourceType string, id int64) (models.EntityRecord, error) {
	key := item(resourceType, id).Key()
	if _, ok := g.links[key]; !ok {
		return nil, perrors.New(perrors.ErrNotFound, resourceType, id, "content api returned not found")
	}
	return models.EntityRecord{"id": float64(id)}, nil
}

func (g *graph) List(_ context.Context, resourceType string, offset, limit int) ([]models.EntityRecord, error) {
	if offset >= len(g.listed) {
		return nil, nil
	}
	end := min(offset+limit, len(g.listed))
	return g.listed[offset:end], nil
}

func (g *graph) Import(ctx context.Context, resourceType string, record models.EntityRecord) (int64, []models.CrawlFrontierItem, error) {
	id, ok := record.ID()
	if !ok {
		return 0, nil, perrors.New(perrors.ErrMissingRequiredField, resourceType, 0, "id")
	}
	owner := item(resourceType, id)
	if err := g.failures[owner.Key()]; err != nil {
		return 0, nil, err
	}

	g.mu.Lock()
	g.imports[owner.Key()]++
	g.mu.Unlock()

	if _, err := g.visited.Add(ctx, owner); err != nil {
		return 0, nil, err
	}
	var adds []models.CrawlFrontierItem
	for _, to := range g.links[owner.Key()] {
		added, err := g.visited.Add(ctx, to)
		if err != nil {
			return 0, nil, err
		}
		if added {
			adds = append(adds, to)
		}
	}
	return id, adds, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []models.CrawlFrontierItem
}

func (p *recordingPublisher) Publish(_ context.Context, items []models.CrawlFrontierItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, items...)
	return nil
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("crawls the graph importing each entity once", func(t *testing.T) {
		for _, workers := range []int{1, 4} {
			t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
				visited := NewMemoryVisitedSet()
				g := newGraph(visited)
				g.link(item("game", 1), item("company", 2), item("game", 3))
				g.link(item("game", 3), item("company", 2), item("game", 1), item("company", 4))
				g.link(item("company", 2), item("game", 1), item("game", 3))
				g.link(item("company", 4))

				publisher := &recordingPublisher{}
				runner := NewRunner(g, g, visited, publisher, RunnerConfig{Workers: workers}, getTestLogger())
				stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 1)})
				require.NoError(t, err)

				assert.Equal(t, Stats{Imported: 4, Enqueued: 3}, stats)
				for key, count := range g.imports {
					assert.Equal(t, 1, count, key)
				}
				assert.ElementsMatch(t, []models.CrawlFrontierItem{item("company", 2), item("game", 3), item("company", 4)}, publisher.published)
			})
		}
	})

	t.Run("duplicate seeds are processed once", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 1), item("game", 2))
		g.link(item("game", 2), item("game", 1))

		runner := NewRunner(g, g, visited, nil, RunnerConfig{}, getTestLogger())
		stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 1), item("game", 2), item("game", 1)})
		require.NoError(t, err)
		assert.Equal(t, Stats{Imported: 2}, stats)
	})

	t.Run("max items bounds the run", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 1), item("game", 2), item("game", 3), item("game", 4))
		g.link(item("game", 2))
		g.link(item("game", 3))
		g.link(item("game", 4))

		runner := NewRunner(g, g, visited, nil, RunnerConfig{Workers: 2, MaxItems: 2}, getTestLogger())
		stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 1)})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Imported)
		assert.Equal(t, 2, stats.Remaining)
	})

	t.Run("missing records are skipped", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 1), item("company", 99), item("company", 2))
		g.link(item("company", 2))

		skipped := metrics.RecordsImportedTotal.WithLabelValues("company", "skipped")
		imported := metrics.RecordsImportedTotal.WithLabelValues("company", "imported")
		skippedBefore, importedBefore := testutil.ToFloat64(skipped), testutil.ToFloat64(imported)

		runner := NewRunner(g, g, visited, nil, RunnerConfig{}, getTestLogger())
		stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 1)})
		require.NoError(t, err)
		assert.Equal(t, Stats{Imported: 2, Skipped: 1, Enqueued: 2}, stats)

		// the fetch skip is counted once, imports are left to the importer
		assert.Equal(t, float64(1), testutil.ToFloat64(skipped)-skippedBefore)
		assert.Equal(t, float64(0), testutil.ToFloat64(imported)-importedBefore)
	})

	t.Run("collaborator failures abort", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 1), item("company", 2))
		g.link(item("company", 2))
		g.failures[item("company", 2).Key()] = perrors.New(perrors.ErrStoreUnavailable, "company", 2, "connection reset")

		runner := NewRunner(g, g, visited, nil, RunnerConfig{}, getTestLogger())
		stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 1)})
		require.Error(t, err)
		assert.ErrorIs(t, err, perrors.ErrStoreUnavailable)
		assert.Equal(t, 1, stats.Imported)
	})

	t.Run("a failure keeps the additions of the rest of its wave", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 2))
		g.link(item("game", 1), item("company", 3))
		g.link(item("company", 3))
		g.failures[item("game", 2).Key()] = perrors.New(perrors.ErrStoreUnavailable, "game", 2, "connection reset")

		publisher := &recordingPublisher{}
		runner := NewRunner(g, g, visited, publisher, RunnerConfig{Workers: 2}, getTestLogger())
		stats, err := runner.Run(ctx, []models.CrawlFrontierItem{item("game", 2), item("game", 1)})
		require.ErrorIs(t, err, perrors.ErrStoreUnavailable)
		assert.Equal(t, Stats{Imported: 1, Enqueued: 1, Remaining: 1}, stats)
		assert.Equal(t, []models.CrawlFrontierItem{item("company", 3)}, publisher.published)
	})

	t.Run("cancelled context stops between records", func(t *testing.T) {
		visited := NewMemoryVisitedSet()
		g := newGraph(visited)
		g.link(item("game", 1))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		runner := NewRunner(g, g, visited, nil, RunnerConfig{}, getTestLogger())
		stats, err := runner.Run(cancelled, []models.CrawlFrontierItem{item("game", 1)})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, stats.Remaining)
		assert.Empty(t, g.imports)
	})
}

func TestRunner_SeedType(t *testing.T) {
	g := newGraph(NewMemoryVisitedSet())
	for i := 1; i <= 5; i++ {
		g.listed = append(g.listed, models.EntityRecord{"id": float64(i)})
	}
	g.listed = append(g.listed, models.EntityRecord{"name": "no id"})

	runner := NewRunner(g, g, NewMemoryVisitedSet(), nil, RunnerConfig{PageSize: 2}, getTestLogger())
	seeds, err := runner.SeedType(context.Background(), "game")
	require.NoError(t, err)
	assert.Equal(t, []models.CrawlFrontierItem{
		item("game", 1), item("game", 2), item("game", 3), item("game", 4), item("game", 5),
	}, seeds)
}
