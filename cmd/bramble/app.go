package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/contentapi"
	"github.com/Ramsey-B/bramble/pkg/crawl"
	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/httpclient"
	"github.com/Ramsey-B/bramble/pkg/importer"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/redis"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/render"
	"github.com/Ramsey-B/bramble/pkg/startup"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/tracing"
	"github.com/Ramsey-B/bramble/pkg/tracing/exporters"
)

// app holds the process-wide collaborators. Optional ones stay nil when disabled.
type app struct {
	cfg      *config.Config
	logger   ectologger.Logger
	registry *registry.Registry
	startup  *startup.Startup

	db        database.DB
	store     store.Store
	redis     *redis.Client
	publisher *kafka.FrontierPublisher
}

func newApp(cfg *config.Config, logger ectologger.Logger) *app {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry.Default(),
		startup:  startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	var shutdownTracing func(context.Context) error
	a.startup.AddDependency(&startup.Dependency{
		Name: "tracing",
		OnStart: func(ctx context.Context) (err error) {
			shutdownTracing, err = tracing.Init(ctx, tracing.Config{
				ServiceName: cfg.AppName,
				Version:     cfg.Version,
				Enabled:     cfg.OTLPEnabled,
				OTLP: exporters.OTLPConfig{
					Endpoint: cfg.OTLPEndpoint,
					Protocol: cfg.OTLPProtocol,
					Insecure: cfg.OTLPInsecure,
				},
			})
			return err
		},
		OnStop: func(ctx context.Context) error {
			if shutdownTracing == nil {
				return nil
			}
			return shutdownTracing(ctx)
		},
	})

	a.startup.AddDependency(&startup.Dependency{
		Name:    "store",
		OnStart: a.openStore,
		OnStop: func(context.Context) error {
			if a.db == nil {
				return nil
			}
			return a.db.Close()
		},
	})

	if cfg.RedisEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "redis",
			OnStart: func(ctx context.Context) (err error) {
				a.redis, err = redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				return err
			},
			OnStop: func(context.Context) error { return a.redis.Close() },
		})
	}

	if cfg.KafkaEnabled {
		a.startup.AddDependency(&startup.Dependency{
			Name: "kafka",
			OnStart: func(context.Context) error {
				a.publisher = kafka.NewFrontierPublisher(kafka.Config{
					Brokers: cfg.KafkaBrokers,
					Topic:   cfg.KafkaFrontierTopic,
				}, logger)
				return nil
			},
			OnStop: func(context.Context) error { return a.publisher.Close() },
		})
	}

	return a
}

func (a *app) start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Warn("Shutdown finished with errors")
	}
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.DatabaseDriver {
	case "memory":
		a.logger.Warn("Using the in-memory store, nothing will be persisted")
		a.store = store.NewMemoryStore()
		return nil
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", a.cfg.DatabaseDriver)
	}

	db, err := database.Open(ctx, a.cfg.DatabaseDriver, a.cfg.DatabaseDSN(), database.PoolConfig{
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}, a.logger)
	if err != nil {
		return err
	}
	a.db = db

	if err := a.migrate(ctx); err != nil {
		return err
	}
	a.store = store.NewSQLStore(db, a.logger)
	return nil
}

// migrate brings the schema up to date: versioned migrations on postgres,
// generated DDL on sqlite.
func (a *app) migrate(ctx context.Context) error {
	if a.db.DriverName() == database.DriverSQLite {
		return store.EnsureSchema(ctx, a.db, a.registry)
	}
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	}).MigratePostgres(a.db)
}

func (a *app) contentClient() *contentapi.HTTPClient {
	hc := httpclient.DefaultConfig()
	hc.Timeout = a.cfg.ContentAPITimeout
	hc.UserAgent = a.cfg.ContentAPIUserAgent
	client := contentapi.NewHTTPClient(httpclient.NewClient(hc, a.logger), a.registry, contentapi.Config{
		BaseURL:  a.cfg.ContentAPIBaseURL,
		APIKey:   a.cfg.ContentAPIKey,
		CacheTTL: a.cfg.ContentAPICacheTTL,
	}, a.logger)
	if a.redis != nil && a.cfg.ContentAPIRateLimit > 0 {
		client.WithLimiter(redis.NewRateLimiter(a.redis, "", int64(a.cfg.ContentAPIRateLimit), a.cfg.ContentAPIRateWindow))
	}
	return client
}

// visitedSet is shared by redis when enabled so concurrent crawlers with the same run id cooperate.
func (a *app) visitedSet(runID string) crawl.VisitedSet {
	if a.redis != nil {
		return redis.NewVisitedSet(a.redis, runID, a.cfg.CrawlVisitedTTL)
	}
	return crawl.NewMemoryVisitedSet()
}

func (a *app) engine(visited crawl.VisitedSet) *importer.Engine {
	relations := crawl.NewRelationImporter(a.registry, a.store, visited, a.logger)
	return importer.NewEngine(a.registry, a.store, relations, a.logger)
}

func (a *app) renderer() *render.Renderer {
	return render.NewRenderer(a.registry, render.NewRelationReader(a.registry, a.store), a.cfg.ExportPageNamespace, a.logger)
}
