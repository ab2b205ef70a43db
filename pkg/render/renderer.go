// Package render turns stored rows back into templated page documents.
package render

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	columnName                 = "name"
	columnPageName             = "page_name"
	columnAliases              = "aliases"
	columnDeck                 = "deck"
	columnFormattedDescription = "formatted_description"
)

type Renderer struct {
	registry  *registry.Registry
	relations *RelationReader
	namespace int
	logger    ectologger.Logger
}

func NewRenderer(reg *registry.Registry, relations *RelationReader, namespace int, logger ectologger.Logger) *Renderer {
	return &Renderer{
		registry:  reg,
		relations: relations,
		namespace: namespace,
		logger:    logger,
	}
}

// Query is the store query that selects every column Render reads for def.
func Query(def *registry.ResourceTypeDef) store.EntityQuery {
	return store.EntityQuery{Table: def.TableName, Columns: def.ColumnNames()}
}

// Render builds one page document per row. Rows are only read.
func (r *Renderer) Render(ctx context.Context, resourceType string, rows []models.StoredEntityRow) ([]models.PageDocument, error) {
	ctx, span := tracing.StartSpan(ctx, "Renderer.Render")
	defer span.End()

	def, err := r.registry.Definition(resourceType)
	if err != nil {
		return nil, err
	}

	docs := make([]models.PageDocument, 0, len(rows))
	for _, row := range rows {
		body, err := r.body(ctx, def, row)
		if err != nil {
			return docs, err
		}
		docs = append(docs, models.PageDocument{
			Title:     row.String(columnPageName),
			Namespace: r.namespace,
			Body:      body,
		})
	}
	return docs, nil
}

func (r *Renderer) body(ctx context.Context, def *registry.ResourceTypeDef, row models.StoredEntityRow) (string, error) {
	name := EscapeXML(row.String(columnName))

	tmpl := NewTemplate(def.TemplateName).
		Add("Name", name, true).
		Add("Guid", def.Guid(row.ID), true).
		Add("Aliases", EscapeXML(joinAliases(row.String(columnAliases))), false).
		Add("Deck", EscapeXML(row.String(columnDeck)), false)

	if image := ImageName(row.ImageURL); image != "" {
		tmpl.Add("Image", EscapeXML(image), false).Add("Caption", "image of "+name, false)
	}

	for _, field := range def.TemplateFields {
		tmpl.Add(field.Label, formatField(field, row.String(field.Column)), false)
	}

	if len(def.Relations) > 0 {
		block, err := r.relations.RelationsAsText(ctx, def.Name, row.ID)
		if err != nil {
			return "", err
		}
		tmpl.Block(block)
	}

	text := row.String(columnFormattedDescription)
	if strings.TrimSpace(text) == "" {
		text = row.String(columnDeck)
	}
	return tmpl.String() + EscapeXML(text), nil
}

// ImageName keeps the last path segment of an image reference.
func ImageName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func joinAliases(aliases string) string {
	var parts []string
	for _, alias := range strings.Split(aliases, "\n") {
		if alias = strings.TrimSpace(alias); alias != "" {
			parts = append(parts, alias)
		}
	}
	return strings.Join(parts, ",")
}

func formatField(field registry.TemplateField, value string) string {
	switch field.Format {
	case registry.FormatGender:
		switch value {
		case "", "0":
			return ""
		case "1":
			return "Male"
		case "2":
			return "Female"
		default:
			return "Non-Binary"
		}
	case registry.FormatReleaseDateType:
		n, ok := models.ToInt64(value)
		if !ok || models.ReleaseDateType(n) == models.NoRelease {
			return ""
		}
		return models.ReleaseDateType(n).String()
	default:
		return EscapeXML(value)
	}
}
