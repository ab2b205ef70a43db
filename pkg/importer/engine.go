// Package importer maps content API records onto deterministic relational upserts.
package importer

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/crawl"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

var imageKey = []string{store.ColumnAssocTypeID, store.ColumnAssocID}
var primaryKey = []string{store.ColumnID}

// Engine imports one record at a time. Every write is an idempotent upsert, so
// a record interrupted half way is repaired by importing it again.
type Engine struct {
	registry  *registry.Registry
	store     store.Store
	relations *crawl.RelationImporter
	logger    ectologger.Logger
}

func NewEngine(reg *registry.Registry, st store.Store, relations *crawl.RelationImporter, logger ectologger.Logger) *Engine {
	return &Engine{
		registry:  reg,
		store:     st,
		relations: relations,
		logger:    logger,
	}
}

// Import stores record as a row of resourceType and returns its id together
// with the related entities this run has not visited yet.
func (e *Engine) Import(ctx context.Context, resourceType string, record models.EntityRecord) (int64, []models.CrawlFrontierItem, error) {
	ctx, span := tracing.StartSpan(ctx, "Engine.Import")
	defer span.End()
	start := time.Now()

	def, err := e.registry.Definition(resourceType)
	if err != nil {
		return 0, nil, err
	}

	id, adds, err := e.importRecord(ctx, def, record)
	metrics.RecordImport(def.Name, importStatus(err), time.Since(start).Seconds())
	return id, adds, err
}

func importStatus(err error) string {
	switch {
	case err == nil:
		return "imported"
	case perrors.Skippable(err):
		return "skipped"
	default:
		return "failed"
	}
}

func (e *Engine) importRecord(ctx context.Context, def *registry.ResourceTypeDef, record models.EntityRecord) (int64, []models.CrawlFrontierItem, error) {
	id, ok := record.ID()
	if !ok || id <= 0 {
		return 0, nil, perrors.New(perrors.ErrMissingRequiredField, def.Name, 0, "record has no id")
	}

	// the owner is visited before its relations so back references never re-enqueue it
	if _, err := e.relations.Visited().Add(ctx, models.CrawlFrontierItem{ResourceType: def.Name, ExternalID: id}); err != nil {
		return 0, nil, err
	}

	var imageID any
	if def.HasImage {
		var image models.Row
		image.Set(store.ColumnAssocTypeID, def.TypeCode)
		image.Set(store.ColumnAssocID, id)
		image.Set(store.ColumnImage, def.ImageURL(record))

		stored, err := e.store.Upsert(ctx, registry.ImageTable, imageKey, image)
		if err != nil {
			return 0, nil, err
		}
		imageID = stored
	}

	var adds []models.CrawlFrontierItem
	for _, rel := range def.Relations {
		refs := relationRefs(record[rel.Name])
		if len(refs) == 0 {
			continue
		}
		relAdds, err := e.relations.ImportRelations(ctx, def, rel, id, refs)
		if err != nil {
			return 0, adds, err
		}
		adds = append(adds, relAdds...)
	}

	row := e.buildRow(def, id, imageID, record)
	storedID, err := e.store.Upsert(ctx, def.TableName, primaryKey, row)
	if err != nil {
		return 0, adds, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"resource_type": def.Name,
		"external_id":   storedID,
		"frontier_adds": len(adds),
	}).Debug("Imported record")

	return storedID, adds, nil
}

func (e *Engine) buildRow(def *registry.ResourceTypeDef, id int64, imageID any, record models.EntityRecord) models.Row {
	var row models.Row
	row.Set(store.ColumnID, id)
	row.Set(store.ColumnImageID, imageID)

	name := text(record[registry.DefaultNameField])
	var releaseDate any
	releaseDateType := models.NoRelease
	if def.TracksReleaseDate {
		releaseDate, releaseDateType = InferReleaseDate(record)
	}

	for _, col := range def.Columns {
		switch col.Kind {
		case registry.Text:
			row.Set(col.Name, text(col.Extract(record)))
		case registry.Nullable:
			row.Set(col.Name, nullableText(col.Extract(record)))
		case registry.Integer:
			if n, ok := models.ToInt64(col.Extract(record)); ok {
				row.Set(col.Name, n)
			} else {
				row.Set(col.Name, nil)
			}
		case registry.Derived:
			row.Set(col.Name, derived(def, col.Name, name, record, releaseDate, releaseDateType))
		}
	}
	return row
}

func derived(def *registry.ResourceTypeDef, column, name string, record models.EntityRecord, releaseDate any, releaseDateType models.ReleaseDateType) any {
	switch column {
	case "page_name":
		return PageName(def, name)
	case "formatted_description":
		formatted := ToWikitext(text(record["description"]))
		if formatted == "" {
			return nil
		}
		return formatted
	case "release_date":
		return releaseDate
	case "release_date_type":
		return int(releaseDateType)
	default:
		return nil
	}
}

// text coalesces absent, null and non-scalar values to "".
func text(v any) string {
	s, _ := models.ToText(v)
	return s
}

func nullableText(v any) any {
	s, ok := models.ToText(v)
	if !ok || s == "" {
		return nil
	}
	return s
}

// relationRefs returns the reference list of a relation field, nil when the
// record carries none. List endpoints omit relations entirely.
func relationRefs(v any) []any {
	switch refs := v.(type) {
	case []any:
		return refs
	case []map[string]any:
		out := make([]any, len(refs))
		for i, ref := range refs {
			out[i] = ref
		}
		return out
	default:
		return nil
	}
}
