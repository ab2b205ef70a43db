package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EntityRecord is one decoded content API object. Absent keys and explicit nulls
// both mean "not provided".
type EntityRecord map[string]any

// ID returns the record's external id, or false when it is missing or not numeric.
func (r EntityRecord) ID() (int64, bool) {
	return ToInt64(r["id"])
}

// ToInt64 converts the numeric shapes JSON decoding produces.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToText renders a scalar as stored text. Nil and non-scalars give false.
func ToText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	case json.Number:
		return s.String(), true
	case time.Time:
		return s.Format("2006-01-02"), true
	default:
		return "", false
	}
}

// CrawlFrontierItem names an entity discovered through a relation that has not
// been imported in the current run.
type CrawlFrontierItem struct {
	ResourceType string `json:"resource_type" yaml:"resource_type"`
	ExternalID   int64  `json:"external_id" yaml:"external_id"`
}

func (i CrawlFrontierItem) Key() string {
	return fmt.Sprintf("%s:%d", i.ResourceType, i.ExternalID)
}

// Row is an ordered set of column values for one insert.
type Row struct {
	Columns []string
	Values  []any
}

func (r *Row) Set(column string, value any) {
	for i, c := range r.Columns {
		if c == column {
			r.Values[i] = value
			return
		}
	}
	r.Columns = append(r.Columns, column)
	r.Values = append(r.Values, value)
}

func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// StoredEntityRow is a primary table row as read back for rendering. Fields holds
// every selected column as text with NULL read as "".
type StoredEntityRow struct {
	ID       int64
	ImageID  *int64
	ImageURL string
	Fields   map[string]string
}

func (r StoredEntityRow) String(column string) string {
	return r.Fields[column]
}

// PageDocument is one rendered page ready for the document sink.
type PageDocument struct {
	Title     string `json:"title"`
	Namespace int    `json:"namespace"`
	Body      string `json:"body"`
}
