package middleware

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// quietPrefixes are polled by infrastructure and logged at debug.
var quietPrefixes = []string{"/api/v1/health", "/metrics"}

func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			ctx := req.Context()
			entry := logger.WithContext(ctx).WithFields(context.LogFields(ctx)).WithFields(map[string]any{
				"trace_id":         tracing.GetTraceID(ctx),
				"method":           req.Method,
				"route":            c.Path(),
				"uri":              req.RequestURI,
				"status":           c.Response().Status,
				"response_time_ms": time.Since(start).Milliseconds(),
				"response_size":    c.Response().Size,
				"remote_ip":        c.RealIP(),
				"user_agent":       req.UserAgent(),
			})

			for _, prefix := range quietPrefixes {
				if strings.HasPrefix(req.URL.Path, prefix) {
					entry.Debug("Request")
					return nil
				}
			}
			entry.Info("Request")
			return nil
		}
	}
}
