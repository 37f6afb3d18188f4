// Package upstream talks to the third-party booking availability API.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/availbridge/libs/httpx"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/payload"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIKeyEnv names the variable the API key is read from.
const APIKeyEnv = "UPSTREAM_API_KEY"

const (
	methodResourceSearch   = "resource_search"
	methodGetResourceUsage = "get_resource_usage"

	maxBodyBytes = 4 << 20
)

type Config struct {
	BaseURL  string
	APIKey   string
	Username string
	Password string
	// Timeout bounds each outbound call. Zero leaves calls unbounded.
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Response is a decoded upstream body plus the raw bytes it came from.
type Response struct {
	Raw    []byte
	Body   gjson.Result
	Cached bool
}

// ResponseError returns the application-level error embedded in the body, if any.
func (r *Response) ResponseError() *ResponseError {
	return responseError(r.Body)
}

type SearchParams struct {
	Start       string
	End         string
	Quantity    float64
	ResourceIDs []string
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	cache      Cache
	logger     *slog.Logger
	maxBody    int64
}

// NewClient builds a client. cache may be nil.
func NewClient(cfg Config, cache Cache, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		cfg:     cfg,
		cache:   cache,
		logger:  logger,
		maxBody: maxBodyBytes,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// SearchResources asks the upstream which resources are free in [start, end).
func (c *Client) SearchResources(ctx context.Context, p SearchParams) (*Response, error) {
	q := c.baseParams(methodResourceSearch)
	q.Set("start_time", p.Start)
	q.Set("end_time", p.End)
	q.Set("quantity", strconv.FormatFloat(p.Quantity, 'f', -1, 64))
	if len(p.ResourceIDs) > 0 {
		q.Set("resource_ids", strings.Join(p.ResourceIDs, ","))
	}
	return c.get(ctx, q, "")
}

// ResourceUsage fetches the busy periods of one resource in [start, end).
func (c *Client) ResourceUsage(ctx context.Context, resourceID, start, end string) (*Response, error) {
	q := c.baseParams(methodGetResourceUsage)
	q.Set("resource_id", resourceID)
	q.Set("start_time", start)
	q.Set("end_time", end)
	q.Set("separate_periods", "true")
	return c.get(ctx, q, resourceID)
}

func (c *Client) baseParams(method string) url.Values {
	q := url.Values{}
	q.Set("method", method)
	q.Set("api_key", c.cfg.APIKey)
	q.Set("format", "json")
	if c.cfg.Username != "" {
		q.Set("username", c.cfg.Username)
	}
	if c.cfg.Password != "" {
		q.Set("password", c.cfg.Password)
	}
	return q
}

func (c *Client) get(ctx context.Context, q url.Values, resourceID string) (*Response, error) {
	endpoint, err := c.endpoint(q)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("request_id", httpx.RequestIDFromContext(ctx), "method", q.Get("method"))
	if resourceID != "" {
		logger = logger.With("resource_id", resourceID)
	}

	key := cacheKey(endpoint)
	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("upstream cache read failed", "err", err)
		} else if ok {
			if body, err := payload.Decode(raw); err == nil {
				logger.Debug("upstream cache hit")
				return &Response{Raw: raw, Body: body, Cached: true}, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resourceID != "" {
			return nil, fmt.Errorf("upstream request for resource %s: %w", resourceID, err)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return nil, &BodyTooLargeError{Limit: c.maxBody, ResourceID: resourceID}
	}
	logger.Debug("upstream call", "status", resp.StatusCode, "bytes", len(raw), "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       payload.Preview(raw, httpErrorExcerpt),
			ResourceID: resourceID,
		}
	}

	body, err := payload.Decode(raw)
	if err != nil {
		return nil, &ParseError{
			Body:       payload.Preview(raw, parseErrorExcerpt),
			ResourceID: resourceID,
			Err:        err,
		}
	}

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(ctx, key, raw, c.cfg.CacheTTL); err != nil {
			logger.Warn("upstream cache write failed", "err", err)
		}
	}
	return &Response{Raw: raw, Body: body}, nil
}

// endpoint merges q into the configured base URL, keeping any query it already has.
func (c *Client) endpoint(q url.Values) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid upstream base url: %w", err)
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}
