// Package store is the relational persistence seam of the pipeline. Every write is
// a single idempotent statement keyed on a uniqueness constraint.
package store

import (
	"context"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// AggregatedJoin selects the comma-joined display names related to one owner.
type AggregatedJoin struct {
	JoinTable   string
	OwnerColumn string
	OtherColumn string
	OtherTable  string
	NameColumn  string
	OwnerID     int64
}

// EntityQuery pages through a primary table in id order, joined with its image row.
type EntityQuery struct {
	Table   string
	Columns []string
	AfterID int64
	Limit   int
}

type Store interface {
	// Upsert inserts row or overwrites the row matching keyColumns, returning its id.
	Upsert(ctx context.Context, table string, keyColumns []string, row models.Row) (int64, error)
	// InsertIgnore inserts row unless an identical key exists. Reports whether a row was written.
	InsertIgnore(ctx context.Context, table string, row models.Row) (bool, error)
	// SelectAggregatedJoin returns "" when the owner has no edges.
	SelectAggregatedJoin(ctx context.Context, q AggregatedJoin) (string, error)
	SelectAll(ctx context.Context, q EntityQuery) ([]models.StoredEntityRow, error)
	// SelectByID returns nil when no row has id.
	SelectByID(ctx context.Context, q EntityQuery, id int64) (*models.StoredEntityRow, error)
}

const (
	ColumnID           = "id"
	ColumnImageID      = "image_id"
	ColumnInfoboxImage = "infobox_image"
	ColumnAssocTypeID  = "assoc_type_id"
	ColumnAssocID      = "assoc_id"
	ColumnImage        = "image"
)

// toStoredRow converts a scanned column map into a StoredEntityRow.
func toStoredRow(values map[string]any) models.StoredEntityRow {
	row := models.StoredEntityRow{Fields: make(map[string]string, len(values))}
	for col, value := range values {
		switch col {
		case ColumnID:
			row.ID, _ = models.ToInt64(value)
		case ColumnImageID:
			if id, ok := models.ToInt64(value); ok {
				row.ImageID = &id
			}
		case ColumnInfoboxImage:
			row.ImageURL, _ = models.ToText(value)
		default:
			row.Fields[col], _ = models.ToText(value)
		}
	}
	return row
}
