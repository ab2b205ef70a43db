// Package contentapi fetches entity records from the Giant Bomb style content API.
package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/patrickmn/go-cache"

	perrors "github.com/Ramsey-B/bramble/pkg/errors"
	"github.com/Ramsey-B/bramble/pkg/httpclient"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/registry"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const (
	statusOK            = 1
	statusInvalidAPIKey = 100
	statusNotFound      = 101

	DefaultPageSize = 100
)

var (
	// ErrTransport wraps network failures and unexpected HTTP statuses.
	ErrTransport = errors.New("content api transport error")
	// ErrAPI wraps error envelopes returned by the API.
	ErrAPI = errors.New("content api error")
)

// Client supplies decoded records. A missing entity is reported as a
// PipelineError of kind ErrNotFound, never as a partial record.
type Client interface {
	Get(ctx context.Context, resourceType string, id int64) (models.EntityRecord, error)
	List(ctx context.Context, resourceType string, offset, limit int) ([]models.EntityRecord, error)
}

// Limiter throttles requests per endpoint.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

type Config struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
}

// HTTPClient implements Client over HTTP. Detail records are cached for CacheTTL.
type HTTPClient struct {
	http     *httpclient.Client
	registry *registry.Registry
	config   Config
	cache    *cache.Cache
	limiter  Limiter
	logger   ectologger.Logger
}

func NewHTTPClient(client *httpclient.Client, reg *registry.Registry, config Config, logger ectologger.Logger) *HTTPClient {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	c := &HTTPClient{
		http:     client,
		registry: reg,
		config:   config,
		logger:   logger,
	}
	if config.CacheTTL > 0 {
		c.cache = cache.New(config.CacheTTL, 2*config.CacheTTL)
	}
	return c
}

// WithLimiter makes every request wait for room under the endpoint's rate limit.
func (c *HTTPClient) WithLimiter(limiter Limiter) *HTTPClient {
	c.limiter = limiter
	return c
}

type envelope struct {
	Error      string          `json:"error"`
	StatusCode int             `json:"status_code"`
	Results    json.RawMessage `json:"results"`
}

func (c *HTTPClient) Get(ctx context.Context, resourceType string, id int64) (models.EntityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentAPI.Get")
	defer span.End()

	def, err := c.registry.Definition(resourceType)
	if err != nil {
		return nil, err
	}

	key := def.Guid(id)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached.(models.EntityRecord), nil
		}
	}

	endpoint := fmt.Sprintf("%s/%s/%s/", c.config.BaseURL, def.APIName, def.Guid(id))
	env, err := c.fetch(ctx, def.APIName, endpoint, nil)
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return nil, perrors.New(perrors.ErrNotFound, def.Name, id, "content api has no such entity")
		}
		return nil, err
	}

	var record models.EntityRecord
	if err := decode(env.Results, &record); err != nil || len(record) == 0 {
		return nil, perrors.New(perrors.ErrNotFound, def.Name, id, "content api returned no results")
	}

	if c.cache != nil {
		c.cache.SetDefault(key, record)
	}
	return record, nil
}

func (c *HTTPClient) List(ctx context.Context, resourceType string, offset, limit int) ([]models.EntityRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "ContentAPI.List")
	defer span.End()

	def, err := c.registry.Definition(resourceType)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	endpoint := fmt.Sprintf("%s/%s/", c.config.BaseURL, def.Plural)
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("sort", "id:asc")

	env, err := c.fetch(ctx, def.Plural, endpoint, query)
	if err != nil {
		return nil, err
	}

	var records []models.EntityRecord
	if len(env.Results) > 0 {
		if err := decode(env.Results, &records); err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", ErrAPI, def.Plural, err)
		}
	}
	return records, nil
}

func (c *HTTPClient) fetch(ctx context.Context, metricEndpoint, endpoint string, query url.Values) (*envelope, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.config.APIKey)
	query.Set("format", "json")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, metricEndpoint); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", ErrTransport, err)
		}
	}

	start := time.Now()
	resp, err := c.http.Get(ctx, endpoint+"?"+query.Encode(), map[string]string{"Accept": "application/json"})
	if err != nil {
		metrics.RecordContentAPIRequest(metricEndpoint, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	metrics.RecordContentAPIRequest(metricEndpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode == http.StatusNotFound {
		return nil, perrors.ErrNotFound
	}
	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrTransport, metricEndpoint, resp.StatusCode)
	}

	var env envelope
	if err := httpclient.DecodeJSON(resp, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	switch env.StatusCode {
	case statusOK:
		return &env, nil
	case statusNotFound:
		return nil, perrors.ErrNotFound
	case statusInvalidAPIKey:
		c.logger.WithContext(ctx).Error("Content API rejected the configured api key")
		return nil, fmt.Errorf("%w: %s", ErrAPI, env.Error)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPI, env.StatusCode, env.Error)
	}
}

// decode keeps numbers as json.Number so ids survive without float rounding.
func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
