package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/bramble/pkg/database"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// SQLStore implements Store on postgres or sqlite through sqlx.
type SQLStore struct {
	db     database.DB
	logger ectologger.Logger
}

func NewSQLStore(db database.DB, logger ectologger.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

func (s *SQLStore) unavailable(ctx context.Context, err error, reason string) error {
	s.logger.WithContext(ctx).WithError(err).Error(reason)
	return perrors.Wrap(perrors.ErrStoreUnavailable, err, "", 0, reason)
}

func (s *SQLStore) Upsert(ctx context.Context, table string, keyColumns []string, row models.Row) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "store.SQLStore.Upsert")
	defer span.End()

	if len(keyColumns) == 0 {
		return 0, fmt.Errorf("upsert into %s: no key columns", table)
	}

	ib := database.NewInsertBuilder(s.db.Flavor())
	ib.InsertInto(table)
	ib.Cols(row.Columns...)
	ib.Values(row.Values...)

	query, args := ib.Build()
	query += database.UpsertSuffix(keyColumns, row.Columns, ColumnID)

	var id int64
	if err := s.db.GetContext(ctx, &id, query, args...); err != nil {
		return 0, s.unavailable(ctx, err, fmt.Sprintf("upsert %s", table))
	}
	return id, nil
}

func (s *SQLStore) InsertIgnore(ctx context.Context, table string, row models.Row) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "store.SQLStore.InsertIgnore")
	defer span.End()

	ib := database.NewInsertBuilder(s.db.Flavor())
	ib.InsertInto(table)
	ib.Cols(row.Columns...)
	ib.Values(row.Values...)

	query, args := ib.Build()
	query += database.OnConflictDoNothing

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, s.unavailable(ctx, err, fmt.Sprintf("insert into %s", table))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, s.unavailable(ctx, err, fmt.Sprintf("rows affected for %s", table))
	}
	return affected > 0, nil
}

func (s *SQLStore) SelectAggregatedJoin(ctx context.Context, q AggregatedJoin) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "store.SQLStore.SelectAggregatedJoin")
	defer span.End()

	flavor := s.db.Flavor()
	sb := database.NewSelectBuilder(flavor)
	sb.Select(database.StringAgg(flavor, "o."+q.NameColumn))
	sb.From(sb.As(q.JoinTable, "j"))
	sb.Join(sb.As(q.OtherTable, "o"), fmt.Sprintf("j.%s = o.id", q.OtherColumn))
	sb.Where(sb.Equal("j."+q.OwnerColumn, q.OwnerID))
	sb.GroupBy("j." + q.OwnerColumn)

	query, args := sb.Build()
	var names sql.NullString
	if err := s.db.GetContext(ctx, &names, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", s.unavailable(ctx, err, fmt.Sprintf("aggregate %s", q.JoinTable))
	}
	return names.String, nil
}

func (s *SQLStore) entitySelect(q EntityQuery) *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder(s.db.Flavor())
	cols := []string{"t." + ColumnID, "t." + ColumnImageID, "i." + ColumnImage + " AS " + ColumnInfoboxImage}
	for _, col := range q.Columns {
		cols = append(cols, "t."+col)
	}
	sb.Select(cols...)
	sb.From(sb.As(q.Table, "t"))
	sb.JoinWithOption(sqlbuilder.LeftJoin, sb.As(registry.ImageTable, "i"), "i.id = t."+ColumnImageID)
	return sb
}

func (s *SQLStore) query(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.StoredEntityRow, error) {
	query, args := sb.Build()
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredEntityRow
	for rows.Next() {
		values := map[string]any{}
		if err := rows.MapScan(values); err != nil {
			return nil, err
		}
		out = append(out, toStoredRow(values))
	}
	return out, rows.Err()
}

func (s *SQLStore) SelectAll(ctx context.Context, q EntityQuery) ([]models.StoredEntityRow, error) {
	ctx, span := tracing.StartSpan(ctx, "store.SQLStore.SelectAll")
	defer span.End()

	sb := s.entitySelect(q)
	sb.Where(sb.GreaterThan("t."+ColumnID, q.AfterID))
	sb.OrderBy("t." + ColumnID).Asc()
	if q.Limit > 0 {
		sb.Limit(q.Limit)
	}

	rows, err := s.query(ctx, sb)
	if err != nil {
		return nil, s.unavailable(ctx, err, fmt.Sprintf("select from %s", q.Table))
	}
	return rows, nil
}

func (s *SQLStore) SelectByID(ctx context.Context, q EntityQuery, id int64) (*models.StoredEntityRow, error) {
	ctx, span := tracing.StartSpan(ctx, "store.SQLStore.SelectByID")
	defer span.End()

	sb := s.entitySelect(q)
	sb.Where(sb.Equal("t."+ColumnID, id))

	rows, err := s.query(ctx, sb)
	if err != nil {
		return nil, s.unavailable(ctx, err, fmt.Sprintf("select from %s", q.Table))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
