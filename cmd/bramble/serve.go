package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/bramble/pkg/crawl"
	"github.com/Ramsey-B/bramble/pkg/routes"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
	"github.com/Ramsey-B/bramble/pkg/routes/pipeline"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operator HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return c.withApp(cmd, func(a *app) error {
				checker := health.NewChecker(a.cfg.Version)
				if a.db != nil {
					checker.AddCheck("database", health.PingFunc(a.db.PingContext))
				}
				if a.redis != nil {
					checker.AddCheck("redis", a.redis)
				}

				handler := pipeline.NewHandler(a.registry, a.contentClient(), func() crawl.Importer { return a.engine(crawl.NewMemoryVisitedSet()) }, a.store, a.renderer())
				e := routes.NewRouter(a.cfg, checker, handler, a.logger)

				server := &http.Server{
					Addr:              fmt.Sprintf(":%d", a.cfg.Port),
					Handler:           e,
					ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
					WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
					IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
					ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
					MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
				}

				errCh := make(chan error, 1)
				go func() {
					a.logger.Infof("Listening on %s", server.Addr)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()
				checker.SetReady(true)

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				checker.SetReady(false)
				a.logger.Info("Shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
}
