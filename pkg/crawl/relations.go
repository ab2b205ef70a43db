// Package crawl turns relation payloads into join table edges and feeds the
// deduplicated crawl frontier.
package crawl

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

type RelationImporter struct {
	registry *registry.Registry
	store    store.Store
	visited  VisitedSet
	logger   ectologger.Logger
}

func NewRelationImporter(reg *registry.Registry, st store.Store, visited VisitedSet, logger ectologger.Logger) *RelationImporter {
	return &RelationImporter{
		registry: reg,
		store:    st,
		visited:  visited,
		logger:   logger,
	}
}

// Visited exposes the run-scoped set so the owner of a record can be marked
// before its relations are walked.
func (ri *RelationImporter) Visited() VisitedSet {
	return ri.visited
}

// ImportRelations writes one edge per resolvable reference and returns the
// related entities this run has not seen yet. Unresolvable references are
// logged and skipped; store and visited set failures abort.
func (ri *RelationImporter) ImportRelations(ctx context.Context, owner *registry.ResourceTypeDef, rel registry.RelationDef, ownerID int64, refs []any) ([]models.CrawlFrontierItem, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationImporter.ImportRelations")
	defer span.End()

	var adds []models.CrawlFrontierItem
	for _, ref := range refs {
		item, err := ResolveReference(ri.registry, rel, ref)
		if err != nil {
			skip := perrors.Wrap(perrors.ErrRelatedReferenceUnresolvable, err, owner.Name, ownerID, fmt.Sprintf("relation %s", rel.Name))
			ri.logger.WithContext(ctx).WithFields(skip.LogFields()).Warn("Skipping unresolvable relation reference")
			continue
		}

		var edge models.Row
		edge.Set(rel.OwnerColumn, ownerID)
		edge.Set(rel.OtherColumn, item.ExternalID)
		inserted, err := ri.store.InsertIgnore(ctx, rel.JoinTable, edge)
		if err != nil {
			return adds, err
		}
		metrics.RecordEdge(rel.JoinTable, inserted)

		added, err := ri.visited.Add(ctx, item)
		if err != nil {
			return adds, err
		}
		if added {
			adds = append(adds, item)
		}
	}

	ri.logger.WithContext(ctx).WithFields(map[string]any{
		"resource_type": owner.Name,
		"external_id":   ownerID,
		"relation":      rel.Name,
		"references":    len(refs),
		"enqueued":      len(adds),
	}).Debug("Imported relations")

	return adds, nil
}
