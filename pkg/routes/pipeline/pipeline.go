// Package pipeline exposes the import and render operations to operators.
package pipeline

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/crawl"
	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/render"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

var validate = validator.New()

// ImporterFactory builds an importer with its own visited set, so every request
// reports the full frontier of the entity it imported.
type ImporterFactory func() crawl.Importer

type Handler struct {
	registry    *registry.Registry
	fetcher     crawl.Fetcher
	newImporter ImporterFactory
	store       store.Store
	renderer    *render.Renderer
}

func NewHandler(reg *registry.Registry, fetcher crawl.Fetcher, newImporter ImporterFactory, st store.Store, renderer *render.Renderer) *Handler {
	return &Handler{
		registry:    reg,
		fetcher:     fetcher,
		newImporter: newImporter,
		store:       st,
		renderer:    renderer,
	}
}

func (h *Handler) Register(g *echo.Group) {
	g.GET("/resource-types", h.ListResourceTypes)
	g.POST("/imports/:resourceType/:id", h.Import)
	g.GET("/pages/:resourceType/:id", h.Page)
}

type entityParams struct {
	ResourceType string `param:"resourceType" validate:"required"`
	ID           int64  `param:"id" validate:"gt=0"`
}

type ImportResponse struct {
	ResourceType string                     `json:"resource_type"`
	ID           int64                      `json:"id"`
	Frontier     []models.CrawlFrontierItem `json:"frontier"`
}

func bindParams(c echo.Context) (entityParams, error) {
	var params entityParams
	if err := c.Bind(&params); err != nil {
		return params, httperror.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	if err := validate.Struct(params); err != nil {
		return params, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return params, nil
}

func (h *Handler) ListResourceTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Summaries())
}

// Import fetches one entity from the content API and imports it without following its frontier.
func (h *Handler) Import(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "pipeline_handler.Import")
	defer span.End()

	params, err := bindParams(c)
	if err != nil {
		return err
	}
	def, err := h.registry.Definition(params.ResourceType)
	if err != nil {
		return err
	}

	record, err := h.fetcher.Get(ctx, def.Name, params.ID)
	if err != nil {
		return err
	}
	id, frontier, err := h.newImporter().Import(ctx, def.Name, record)
	if err != nil {
		return err
	}
	if frontier == nil {
		frontier = []models.CrawlFrontierItem{}
	}

	return c.JSON(http.StatusOK, ImportResponse{
		ResourceType: def.Name,
		ID:           id,
		Frontier:     frontier,
	})
}

// Page renders the stored row as it would be exported.
func (h *Handler) Page(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "pipeline_handler.Page")
	defer span.End()

	params, err := bindParams(c)
	if err != nil {
		return err
	}
	def, err := h.registry.Definition(params.ResourceType)
	if err != nil {
		return err
	}

	row, err := h.store.SelectByID(ctx, render.Query(def), params.ID)
	if err != nil {
		return err
	}
	if row == nil {
		return perrors.New(perrors.ErrNotFound, def.Name, params.ID, "no stored row")
	}

	docs, err := h.renderer.Render(ctx, def.Name, []models.StoredEntityRow{*row})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs[0])
}
