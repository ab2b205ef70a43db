package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/bramble/pkg/context"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	DefaultWorkers  = 1
	DefaultPageSize = 100
)

// Importer persists one fetched record and returns what it discovered.
type Importer interface {
	Import(ctx context.Context, resourceType string, record models.EntityRecord) (int64, []models.CrawlFrontierItem, error)
}

// Fetcher is the part of the content API a crawl needs.
type Fetcher interface {
	Get(ctx context.Context, resourceType string, id int64) (models.EntityRecord, error)
	List(ctx context.Context, resourceType string, offset, limit int) ([]models.EntityRecord, error)
}

// Publisher forwards frontier additions to other consumers.
type Publisher interface {
	Publish(ctx context.Context, items []models.CrawlFrontierItem) error
}

type RunnerConfig struct {
	Workers int
	// MaxItems bounds the number of frontier items processed. Zero means unbounded.
	MaxItems int
	PageSize int
}

type Stats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Enqueued int `json:"enqueued"`
	// Remaining is the frontier length when the run stopped.
	Remaining int `json:"remaining"`
}

// Runner drives a crawl: it pops frontier items, fetches and imports them and
// folds their additions back into the frontier.
type Runner struct {
	importer  Importer
	fetcher   Fetcher
	visited   VisitedSet
	publisher Publisher
	config    RunnerConfig
	logger    ectologger.Logger
}

func NewRunner(importer Importer, fetcher Fetcher, visited VisitedSet, publisher Publisher, config RunnerConfig, logger ectologger.Logger) *Runner {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	return &Runner{
		importer:  importer,
		fetcher:   fetcher,
		visited:   visited,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// SeedType lists every entity of resourceType. List records carry no relation
// payload, so they are only returned as seeds for detail fetches.
func (r *Runner) SeedType(ctx context.Context, resourceType string) ([]models.CrawlFrontierItem, error) {
	ctx, span := tracing.StartSpan(ctx, "Runner.SeedType")
	defer span.End()

	var seeds []models.CrawlFrontierItem
	for offset := 0; ; offset += r.config.PageSize {
		if err := ctx.Err(); err != nil {
			return seeds, err
		}
		records, err := r.fetcher.List(ctx, resourceType, offset, r.config.PageSize)
		if err != nil {
			return seeds, err
		}
		for _, record := range records {
			id, ok := record.ID()
			if !ok {
				skip := perrors.New(perrors.ErrMissingRequiredField, resourceType, 0, "list record has no id")
				r.logger.WithContext(ctx).WithFields(skip.LogFields()).Warn("Skipping list record")
				continue
			}
			seeds = append(seeds, models.CrawlFrontierItem{ResourceType: resourceType, ExternalID: id})
		}
		if len(records) < r.config.PageSize {
			break
		}
		if r.config.MaxItems > 0 && len(seeds) >= r.config.MaxItems {
			break
		}
	}
	return seeds, nil
}

type outcome struct {
	item    models.CrawlFrontierItem
	adds    []models.CrawlFrontierItem
	skipped bool
	err     error
}

// Run crawls from seeds until the frontier is empty, MaxItems is reached, the
// context is cancelled or a collaborator fails.
func (r *Runner) Run(ctx context.Context, seeds []models.CrawlFrontierItem) (Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "Runner.Run")
	defer span.End()

	var stats Stats
	frontier := NewFrontier()
	for _, seed := range seeds {
		added, err := r.visited.Add(ctx, seed)
		if err != nil {
			return stats, err
		}
		if added {
			frontier.Push(seed)
		}
	}

	log := r.logger.WithContext(ctx).WithFields(appctx.LogFields(ctx))
	log.WithFields(map[string]any{
		"seeds":     frontier.Len(),
		"workers":   r.config.Workers,
		"max_items": r.config.MaxItems,
	}).Info("Starting crawl")

	for frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			stats.Remaining = frontier.Len()
			return stats, err
		}

		n := r.config.Workers
		if r.config.MaxItems > 0 {
			budget := r.config.MaxItems - stats.Imported - stats.Skipped
			if budget <= 0 {
				break
			}
			n = min(n, budget)
		}

		results := r.process(ctx, frontier.PopN(n))

		// adds of successful items are already visited, so they are folded in
		// before a failure aborts the run
		var failure *outcome
		var newAdds []models.CrawlFrontierItem
		for i := range results {
			res := &results[i]
			switch {
			case res.err != nil:
				if failure == nil {
					failure = res
				}
			case res.skipped:
				stats.Skipped++
			default:
				stats.Imported++
				newAdds = append(newAdds, res.adds...)
			}
		}

		if len(newAdds) > 0 {
			frontier.Push(newAdds...)
			stats.Enqueued += len(newAdds)
			for _, add := range newAdds {
				metrics.FrontierEnqueuedTotal.WithLabelValues(add.ResourceType).Inc()
			}
			if r.publisher != nil {
				if err := r.publisher.Publish(ctx, newAdds); err != nil {
					stats.Remaining = frontier.Len()
					return stats, err
				}
			}
		}

		if failure != nil {
			stats.Remaining = frontier.Len()
			log.WithError(failure.err).WithFields(map[string]any{
				"resource_type": failure.item.ResourceType,
				"external_id":   failure.item.ExternalID,
			}).Error("Crawl aborted")
			return stats, failure.err
		}
	}

	stats.Remaining = frontier.Len()
	log.WithFields(map[string]any{
		"imported":  stats.Imported,
		"skipped":   stats.Skipped,
		"enqueued":  stats.Enqueued,
		"remaining": stats.Remaining,
	}).Info("Crawl finished")
	return stats, nil
}

// process handles one wave of items concurrently, returning results in item order.
func (r *Runner) process(ctx context.Context, items []models.CrawlFrontierItem) []outcome {
	results := make([]outcome, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.CrawlFrontierItem) {
			defer wg.Done()
			results[i] = r.processItem(ctx, item)
		}(i, item)
	}
	wg.Wait()
	return results
}

func (r *Runner) processItem(ctx context.Context, item models.CrawlFrontierItem) outcome {
	start := time.Now()
	ctx = appctx.SetResourceType(ctx, item.ResourceType)

	// import outcomes are counted by the importer, fetch outcomes here
	record, err := r.fetcher.Get(ctx, item.ResourceType, item.ExternalID)
	if err != nil {
		status := "failed"
		if perrors.Skippable(err) {
			status = "skipped"
		}
		metrics.RecordImport(item.ResourceType, status, time.Since(start).Seconds())
		return r.errorOutcome(ctx, item, err)
	}

	_, adds, err := r.importer.Import(ctx, item.ResourceType, record)
	if err != nil {
		return r.errorOutcome(ctx, item, err)
	}
	return outcome{item: item, adds: adds}
}

func (r *Runner) errorOutcome(ctx context.Context, item models.CrawlFrontierItem, err error) outcome {
	if !perrors.Skippable(err) {
		return outcome{item: item, err: err}
	}
	fields := map[string]any{"resource_type": item.ResourceType, "external_id": item.ExternalID}
	if pe, ok := perrors.AsPipelineError(err); ok {
		fields = pe.LogFields()
	}
	r.logger.WithContext(ctx).WithError(err).WithFields(fields).Warn("Skipping record")
	return outcome{item: item, skipped: true}
}
