package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
)

type memTable struct {
	rows   []map[string]any
	byKey  map[string]int
	byID   map[int64]int
	nextID int64
}

// MemoryStore keeps every table in process. It backs dry runs and unit tests and
// mirrors the SQL store's conflict semantics.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (s *MemoryStore) table(name string) *memTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{byKey: map[string]int{}, byID: map[int64]int{}}
		s.tables[name] = t
	}
	return t
}

func rowKey(row models.Row, columns []string) (string, error) {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		value, ok := row.Get(col)
		if !ok {
			return "", fmt.Errorf("row has no key column %s", col)
		}
		parts = append(parts, fmt.Sprintf("%s=%v", col, value))
	}
	return strings.Join(parts, "|"), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, table string, keyColumns []string, row models.Row) (int64, error) {
	if len(keyColumns) == 0 {
		return 0, fmt.Errorf("upsert into %s: no key columns", table)
	}
	key, err := rowKey(row, keyColumns)
	if err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)

	if idx, ok := t.byKey[key]; ok {
		existing := t.rows[idx]
		for i, col := range row.Columns {
			if col != ColumnID {
				existing[col] = row.Values[i]
			}
		}
		id, _ := models.ToInt64(existing[ColumnID])
		return id, nil
	}

	values := make(map[string]any, len(row.Columns)+1)
	for i, col := range row.Columns {
		values[col] = row.Values[i]
	}
	id, ok := models.ToInt64(values[ColumnID])
	if !ok {
		t.nextID++
		id = t.nextID
		values[ColumnID] = id
	} else if id > t.nextID {
		t.nextID = id
	}

	t.rows = append(t.rows, values)
	t.byKey[key] = len(t.rows) - 1
	t.byID[id] = len(t.rows) - 1
	return id, nil
}

func (s *MemoryStore) InsertIgnore(ctx context.Context, table string, row models.Row) (bool, error) {
	// edges are keyed on the column set regardless of the order they were written in
	columns := append([]string(nil), row.Columns...)
	sort.Strings(columns)
	key, err := rowKey(row, columns)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)

	if _, ok := t.byKey[key]; ok {
		return false, nil
	}
	values := make(map[string]any, len(row.Columns))
	for i, col := range row.Columns {
		values[col] = row.Values[i]
	}
	t.rows = append(t.rows, values)
	t.byKey[key] = len(t.rows) - 1
	return true, nil
}

func (s *MemoryStore) SelectAggregatedJoin(ctx context.Context, q AggregatedJoin) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	join, ok := s.tables[q.JoinTable]
	if !ok {
		return "", nil
	}
	other := s.tables[q.OtherTable]

	var names []string
	for _, edge := range join.rows {
		owner, _ := models.ToInt64(edge[q.OwnerColumn])
		if owner != q.OwnerID || other == nil {
			continue
		}
		otherID, _ := models.ToInt64(edge[q.OtherColumn])
		idx, ok := other.byID[otherID]
		if !ok {
			continue
		}
		name, _ := models.ToText(other.rows[idx][q.NameColumn])
		names = append(names, name)
	}
	return strings.Join(names, ","), nil
}

func (s *MemoryStore) stored(q EntityQuery, values map[string]any) models.StoredEntityRow {
	selected := map[string]any{
		ColumnID:      values[ColumnID],
		ColumnImageID: values[ColumnImageID],
	}
	for _, col := range q.Columns {
		selected[col] = values[col]
	}
	if images, ok := s.tables[registry.ImageTable]; ok {
		if imageID, ok := models.ToInt64(values[ColumnImageID]); ok {
			if idx, ok := images.byID[imageID]; ok {
				selected[ColumnInfoboxImage] = images.rows[idx][ColumnImage]
			}
		}
	}
	return toStoredRow(selected)
}

func (s *MemoryStore) SelectAll(ctx context.Context, q EntityQuery) ([]models.StoredEntityRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[q.Table]
	if !ok {
		return nil, nil
	}

	ids := make([]int64, 0, len(t.byID))
	for id := range t.byID {
		if id > q.AfterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	out := make([]models.StoredEntityRow, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.stored(q, t.rows[t.byID[id]]))
	}
	return out, nil
}

func (s *MemoryStore) SelectByID(ctx context.Context, q EntityQuery, id int64) (*models.StoredEntityRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[q.Table]
	if !ok {
		return nil, nil
	}
	idx, ok := t.byID[id]
	if !ok {
		return nil, nil
	}
	row := s.stored(q, t.rows[idx])
	return &row, nil
}

// Count returns the number of rows in table.
func (s *MemoryStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[table]; ok {
		return len(t.rows)
	}
	return 0
}
