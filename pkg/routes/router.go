// Package routes assembles the operator HTTP API.
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/middleware"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
	"github.com/Ramsey-B/bramble/pkg/routes/pipeline"
)

// NewRouter wires middleware, health, pipeline and metrics endpoints onto a new echo instance.
func NewRouter(cfg *config.Config, checker *health.Checker, handler *pipeline.Handler, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	handler.Register(e.Group("/api/v1"))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
