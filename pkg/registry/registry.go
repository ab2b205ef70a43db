// Package registry is the static table of resource types: how each API record
// maps onto a primary table, which relations it owns, and how it renders.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Gobusters/ectolinq"
	"github.com/jmespath/go-jmespath"

	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
)

const (
	ImageTable       = "image"
	DefaultNameField = "name"
	defaultImagePath = "image.original_url"
)

type ColumnKind int

const (
	// Text columns store "" when the record omits them.
	Text ColumnKind = iota
	// Nullable columns store NULL when the record omits them.
	Nullable
	// Integer columns store an int64 or NULL.
	Integer
	// Derived columns are computed by the importer instead of read from the record.
	Derived
)

type Column struct {
	Name string
	// Source is a JMESPath expression into the record. Defaults to Name.
	Source string
	Kind   ColumnKind

	query *jmespath.JMESPath
}

// Extract evaluates the column source against record. Lookup failures read as absent.
func (c Column) Extract(record models.EntityRecord) any {
	if c.query == nil {
		return record[c.Name]
	}
	value, err := c.query.Search(map[string]any(record))
	if err != nil {
		return nil
	}
	return value
}

type FieldFormat int

const (
	// FormatText values are XML escaped.
	FormatText FieldFormat = iota
	FormatGender
	FormatReleaseDateType
)

// TemplateField is an optional infobox line emitted only when the column is non-empty.
type TemplateField struct {
	Label  string
	Column string
	Format FieldFormat
}

// RelationDef describes one many-to-many edge type owned by a resource type.
type RelationDef struct {
	Name        string
	JoinTable   string
	OwnerColumn string
	OtherColumn string
	OtherType   string
	// OtherTable defaults to the table of OtherType.
	OtherTable string
	// OtherNameColumn defaults to "name".
	OtherNameColumn string
}

// TemplateKey is the infobox label for the relation: "similar_games" becomes "SimilarGames".
func (r RelationDef) TemplateKey() string {
	words := strings.FieldsFunc(r.Name, func(c rune) bool { return c == '_' || c == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "")
}

type ResourceTypeDef struct {
	Name         string
	APIName      string
	Plural       string
	TypeCode     int
	TableName    string
	TemplateName string
	PagePrefix   string

	Columns        []Column
	Relations      []RelationDef
	TemplateFields []TemplateField

	HasImage          bool
	TracksReleaseDate bool

	imageQuery *jmespath.JMESPath
}

// Guid is the stable "<typeCode>-<id>" identifier used in rendered pages.
func (d *ResourceTypeDef) Guid(id int64) string {
	return fmt.Sprintf("%d-%d", d.TypeCode, id)
}

func (d *ResourceTypeDef) Relation(name string) (RelationDef, bool) {
	rel := ectolinq.Find(d.Relations, func(r RelationDef) bool { return r.Name == name })
	return rel, rel.Name != ""
}

func (d *ResourceTypeDef) ColumnNames() []string {
	return ectolinq.Map(d.Columns, func(c Column) string { return c.Name })
}

func (d *ResourceTypeDef) HasColumn(name string) bool {
	return ectolinq.Contains(d.ColumnNames(), name)
}

// ImageURL extracts the infobox image URL from record.
func (d *ResourceTypeDef) ImageURL(record models.EntityRecord) string {
	if d.imageQuery == nil {
		return ""
	}
	value, err := d.imageQuery.Search(map[string]any(record))
	if err != nil {
		return ""
	}
	url, _ := models.ToText(value)
	return url
}

type Registry struct {
	defs   []*ResourceTypeDef
	byName map[string]*ResourceTypeDef
	byCode map[int]*ResourceTypeDef
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of built-in resource types.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(definitions()...)
		if err != nil {
			panic(fmt.Sprintf("invalid built-in registry: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// New compiles column sources, fills relation defaults and validates defs.
func New(defs ...*ResourceTypeDef) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*ResourceTypeDef),
		byCode: make(map[int]*ResourceTypeDef),
	}

	for _, def := range defs {
		if def.APIName == "" {
			def.APIName = def.Name
		}
		for _, alias := range []string{def.Name, def.APIName, def.Plural} {
			if alias == "" {
				continue
			}
			if existing, ok := r.byName[alias]; ok && existing != def {
				return nil, fmt.Errorf("resource name %q is used by both %s and %s", alias, existing.Name, def.Name)
			}
			r.byName[alias] = def
		}
		if existing, ok := r.byCode[def.TypeCode]; ok {
			return nil, fmt.Errorf("type code %d is used by both %s and %s", def.TypeCode, existing.Name, def.Name)
		}
		r.byCode[def.TypeCode] = def
		r.defs = append(r.defs, def)

		for i := range def.Columns {
			col := &def.Columns[i]
			if col.Kind == Derived {
				continue
			}
			source := ectolinq.Ternary(col.Source == "", col.Name, col.Source)
			query, err := jmespath.Compile(source)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: invalid source %q: %w", def.Name, col.Name, source, err)
			}
			col.query = query
		}
		if def.HasImage {
			query, err := jmespath.Compile(defaultImagePath)
			if err != nil {
				return nil, err
			}
			def.imageQuery = query
		}
	}

	for _, def := range r.defs {
		for i := range def.Relations {
			rel := &def.Relations[i]
			other, ok := r.byName[rel.OtherType]
			if !ok {
				return nil, fmt.Errorf("%s.%s: unknown related type %q", def.Name, rel.Name, rel.OtherType)
			}
			if rel.OtherTable == "" {
				rel.OtherTable = other.TableName
			}
			if rel.OtherNameColumn == "" {
				rel.OtherNameColumn = DefaultNameField
			}
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Definition resolves a type by name, API name or plural.
func (r *Registry) Definition(resourceType string) (*ResourceTypeDef, error) {
	def, ok := r.byName[strings.ToLower(strings.TrimSpace(resourceType))]
	if !ok {
		return nil, perrors.New(perrors.ErrUnknownResourceType, resourceType, 0, fmt.Sprintf("%q is not registered", resourceType))
	}
	return def, nil
}

func (r *Registry) ByTypeCode(code int) (*ResourceTypeDef, bool) {
	def, ok := r.byCode[code]
	return def, ok
}

// Definitions returns every type in registration order.
func (r *Registry) Definitions() []*ResourceTypeDef {
	return r.defs
}

func (r *Registry) Names() []string {
	return ectolinq.Map(r.defs, func(d *ResourceTypeDef) string { return d.Name })
}

type JoinTable struct {
	Name    string
	Columns []string
}

// JoinTables returns each distinct join table once, with its column pair sorted.
func (r *Registry) JoinTables() []JoinTable {
	seen := map[string]bool{}
	var tables []JoinTable
	for _, def := range r.defs {
		for _, rel := range def.Relations {
			if seen[rel.JoinTable] {
				continue
			}
			seen[rel.JoinTable] = true
			cols := []string{rel.OwnerColumn, rel.OtherColumn}
			sort.Strings(cols)
			tables = append(tables, JoinTable{Name: rel.JoinTable, Columns: cols})
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// Validate checks that relation triples are unique per type and that a join
// table shared between owners always uses the same column pair.
func (r *Registry) Validate() error {
	joinColumns := map[string][2]string{}
	for _, def := range r.defs {
		triples := map[string]string{}
		for _, rel := range def.Relations {
			if rel.OwnerColumn == rel.OtherColumn {
				return fmt.Errorf("%s.%s: owner and other column are both %q", def.Name, rel.Name, rel.OwnerColumn)
			}
			triple := rel.JoinTable + "|" + rel.OwnerColumn + "|" + rel.OtherColumn
			if previous, ok := triples[triple]; ok {
				return fmt.Errorf("%s: relations %s and %s share %s(%s, %s)", def.Name, previous, rel.Name, rel.JoinTable, rel.OwnerColumn, rel.OtherColumn)
			}
			triples[triple] = rel.Name

			pair := [2]string{rel.OwnerColumn, rel.OtherColumn}
			sort.Strings(pair[:])
			if existing, ok := joinColumns[rel.JoinTable]; ok && existing != pair {
				return fmt.Errorf("%s.%s: join table %s uses columns %v, previously %v", def.Name, rel.Name, rel.JoinTable, pair, existing)
			}
			joinColumns[rel.JoinTable] = pair
		}
	}
	return nil
}
