package render

import (
	"context"
	"strings"

	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// RelationReader reads relation edges back as infobox lines.
type RelationReader struct {
	registry *registry.Registry
	store    store.Store
}

func NewRelationReader(reg *registry.Registry, st store.Store) *RelationReader {
	return &RelationReader{registry: reg, store: st}
}

// RelationsAsText renders "| <Relation>=<names>" for every relation of the type,
// in declared order. Relations without edges keep their line with an empty value.
// Names are XML escaped like every other free-text field.
func (r *RelationReader) RelationsAsText(ctx context.Context, resourceType string, id int64) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationReader.RelationsAsText")
	defer span.End()

	def, err := r.registry.Definition(resourceType)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(def.Relations))
	for _, rel := range def.Relations {
		names, err := r.store.SelectAggregatedJoin(ctx, store.AggregatedJoin{
			JoinTable:   rel.JoinTable,
			OwnerColumn: rel.OwnerColumn,
			OtherColumn: rel.OtherColumn,
			OtherTable:  rel.OtherTable,
			NameColumn:  rel.OtherNameColumn,
			OwnerID:     id,
		})
		if err != nil {
			return "", err
		}
		lines = append(lines, "| "+rel.TemplateKey()+"="+EscapeXML(names))
	}
	return strings.Join(lines, "\n"), nil
}
