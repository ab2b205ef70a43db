package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"bramble"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3004" validate:"gt=0"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" validate:"gt=0"`

	// Relational store. "memory" keeps everything in process for dry runs.
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres" validate:"oneof=postgres sqlite memory"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"bramble"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseSQLitePath            string        `env:"DB_SQLITE_PATH" env-default:"bramble.db"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis backs the shared visited set and export locks. Disabled means in-process only.
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Kafka frontier stream
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaFrontierTopic string   `env:"KAFKA_FRONTIER_TOPIC" env-default:"bramble.frontier"`

	// Tracing
	OTLPEnabled  bool   `env:"OTLP_ENABLED" env-default:"false"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol string `env:"OTLP_PROTOCOL" env-default:"grpc" validate:"oneof=grpc http"`
	OTLPInsecure bool   `env:"OTLP_INSECURE" env-default:"true"`

	// Content API
	ContentAPIBaseURL   string        `env:"CONTENT_API_BASE_URL" env-default:"https://www.giantbomb.com/api" validate:"url"`
	ContentAPIKey       string        `env:"CONTENT_API_KEY" env-default:""`
	ContentAPIUserAgent string        `env:"CONTENT_API_USER_AGENT" env-default:"bramble/1.0"`
	ContentAPITimeout   time.Duration `env:"CONTENT_API_TIMEOUT" env-default:"30s"`
	ContentAPICacheTTL  time.Duration `env:"CONTENT_API_CACHE_TTL" env-default:"10m"`
	ContentAPIPageSize  int           `env:"CONTENT_API_PAGE_SIZE" env-default:"100" validate:"gt=0,lte=100"`

	// Requests per endpoint per window, enforced through redis when enabled.
	ContentAPIRateLimit  int           `env:"CONTENT_API_RATE_LIMIT" env-default:"200" validate:"gte=0"`
	ContentAPIRateWindow time.Duration `env:"CONTENT_API_RATE_WINDOW" env-default:"1h"`

	// Crawl
	CrawlWorkers    int           `env:"CRAWL_WORKERS" env-default:"4" validate:"gt=0"`
	CrawlMaxItems   int           `env:"CRAWL_MAX_ITEMS" env-default:"0" validate:"gte=0"`
	CrawlVisitedTTL time.Duration `env:"CRAWL_VISITED_TTL" env-default:"24h"`

	// Export
	ExportBatchSize     int    `env:"EXPORT_BATCH_SIZE" env-default:"500" validate:"gt=0"`
	ExportOutputDir     string `env:"EXPORT_OUTPUT_DIR" env-default:"export"`
	ExportPageNamespace int    `env:"PAGE_NAMESPACE" env-default:"0"`
	ExportUsername      string `env:"EXPORT_USERNAME" env-default:"Giantbomb"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msg := "invalid configuration:"
			for _, fe := range verrs {
				msg += fmt.Sprintf("\n • field '%s': rule '%s' expected '%s', got '%v'", fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
			}
			return errors.New(msg)
		}
		return err
	}
	return nil
}

func (c *Config) DatabaseDSN() string {
	if c.DatabaseDriver == "sqlite" {
		return c.DatabaseSQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
