// Package export pages stored rows through the renderer into a document sink.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/render"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	DefaultBatchSize = 500
	DefaultLockTTL   = 30 * time.Minute
)

// Sink receives rendered documents one batch at a time.
type Sink interface {
	WriteBatch(ctx context.Context, bundle string, docs []models.PageDocument) error
}

// Locker guards a bundle against concurrent exporters.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Selector picks every row of a type when ID is nil, otherwise exactly one row.
type Selector struct {
	ID *int64
}

type Stats struct {
	Bundle  string `json:"bundle"`
	Pages   int    `json:"pages"`
	Skipped int    `json:"skipped"`
	Batches int    `json:"batches"`
}

type Config struct {
	BatchSize int
	LockTTL   time.Duration
}

type Driver struct {
	registry *registry.Registry
	store    store.Store
	renderer *render.Renderer
	sink     Sink
	locker   Locker
	config   Config
	logger   ectologger.Logger
}

func NewDriver(reg *registry.Registry, st store.Store, renderer *render.Renderer, sink Sink, config Config, logger ectologger.Logger) *Driver {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	return &Driver{
		registry: reg,
		store:    st,
		renderer: renderer,
		sink:     sink,
		config:   config,
		logger:   logger,
	}
}

// WithLocker makes Export hold a lock on the bundle while it runs.
func (d *Driver) WithLocker(locker Locker) *Driver {
	d.locker = locker
	return d
}

// BundleName is the sink target for a type's pages.
func BundleName(def *registry.ResourceTypeDef) string {
	return def.Name + "_pages.xml"
}

// Export renders the selected rows and forwards them to the sink in batches of
// at most BatchSize documents.
func (d *Driver) Export(ctx context.Context, resourceType string, sel Selector) (Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "Driver.Export")
	defer span.End()

	def, err := d.registry.Definition(resourceType)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Bundle: BundleName(def)}

	if d.locker != nil {
		release, err := d.locker.Acquire(ctx, "export:"+def.Name, d.config.LockTTL)
		if err != nil {
			return stats, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				d.logger.WithContext(ctx).WithError(err).Warn("Failed to release export lock")
			}
		}()
	}

	query := render.Query(def)
	query.Limit = d.config.BatchSize

	if sel.ID != nil {
		row, err := d.store.SelectByID(ctx, query, *sel.ID)
		if err != nil {
			return stats, err
		}
		if row == nil {
			return stats, perrors.New(perrors.ErrNotFound, def.Name, *sel.ID, "no stored row")
		}
		return stats, d.exportBatch(ctx, def, stats.Bundle, []models.StoredEntityRow{*row}, &stats)
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rows, err := d.store.SelectAll(ctx, query)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			break
		}
		if err := d.exportBatch(ctx, def, stats.Bundle, rows, &stats); err != nil {
			return stats, err
		}
		query.AfterID = rows[len(rows)-1].ID
		if len(rows) < d.config.BatchSize {
			break
		}
	}

	d.logger.WithContext(ctx).WithFields(map[string]any{
		"resource_type": def.Name,
		"bundle":        stats.Bundle,
		"pages":         stats.Pages,
		"skipped":       stats.Skipped,
		"batches":       stats.Batches,
	}).Info("Export finished")
	return stats, nil
}

func (d *Driver) exportBatch(ctx context.Context, def *registry.ResourceTypeDef, bundle string, rows []models.StoredEntityRow, stats *Stats) error {
	docs, err := d.renderer.Render(ctx, def.Name, rows)
	if err != nil {
		return err
	}

	kept := docs[:0]
	for i, doc := range docs {
		if doc.Title == "" {
			skip := perrors.New(perrors.ErrMissingRequiredField, def.Name, rows[i].ID, "page has no title")
			d.logger.WithContext(ctx).WithFields(skip.LogFields()).Warn("Skipping page")
			stats.Skipped++
			continue
		}
		kept = append(kept, doc)
	}
	if len(kept) == 0 {
		return nil
	}

	if err := d.sink.WriteBatch(ctx, bundle, kept); err != nil {
		return fmt.Errorf("failed to write batch %d of %s: %w", stats.Batches+1, bundle, err)
	}
	stats.Batches++
	stats.Pages += len(kept)
	metrics.PagesExportedTotal.WithLabelValues(def.Name).Add(float64(len(kept)))
	return nil
}
