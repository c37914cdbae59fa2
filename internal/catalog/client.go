package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hanko-field/storefront/internal/domain"
)

// DefaultBaseURL is the public demo catalog.
const DefaultBaseURL = "https://dummyjson.com"

const (
	defaultTimeout      = 8 * time.Second
	defaultListLimit    = 10
	defaultSearchLimit  = 30
	defaultCategorySize = 10
)

// Client reads products and categories from the catalog API. Product lookups by id are memoised
// for the lifetime of the client.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
	metrics *clientMetrics

	group   singleflight.Group
	mu      sync.RWMutex
	product map[int]domain.Product
}

type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	meter      metric.Meter
}

// Option customises Client construction.
type Option func(*clientConfig)

// WithHTTPClient overrides the HTTP client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *clientConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *clientConfig) {
		cfg.meter = m
	}
}

// NewClient constructs a catalog client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  cfg.logger,
		metrics: newClientMetrics(cfg.meter, cfg.logger),
		product: make(map[int]domain.Product),
	}
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CloseIdleConnections releases pooled upstream connections.
func (c *Client) CloseIdleConnections() {
	if c != nil && c.http != nil {
		c.http.CloseIdleConnections()
	}
}

// ListProducts fetches one page of products. Non-positive limit selects 10.
func (c *Client) ListProducts(ctx context.Context, limit, skip int) (domain.ProductPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if skip < 0 {
		skip = 0
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))

	var payload productListPayload
	if err := c.getJSON(ctx, "list_products", query, &payload, "products"); err != nil {
		return domain.ProductPage{}, fmt.Errorf("catalog: list products: %w", err)
	}
	return payload.toPage(limit), nil
}

// SearchProducts runs a full text query. Non-positive limit selects 30.
func (c *Client) SearchProducts(ctx context.Context, q string, limit int) (domain.ProductPage, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	query := url.Values{}
	query.Set("q", strings.TrimSpace(q))
	query.Set("limit", strconv.Itoa(limit))

	var payload productListPayload
	if err := c.getJSON(ctx, "search_products", query, &payload, "products", "search"); err != nil {
		return domain.ProductPage{}, fmt.Errorf("catalog: search products: %w", err)
	}
	return payload.toPage(limit), nil
}

// ListProductsByCategory fetches products of one category. Non-positive limit selects 10.
func (c *Client) ListProductsByCategory(ctx context.Context, slug string, limit int) (domain.ProductPage, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.ProductPage{}, errors.New("catalog: category slug is required")
	}
	if limit <= 0 {
		limit = defaultCategorySize
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var payload productListPayload
	if err := c.getJSON(ctx, "list_category_products", query, &payload, "products", "category", slug); err != nil {
		return domain.ProductPage{}, fmt.Errorf("catalog: list category %s: %w", slug, err)
	}
	return payload.toPage(limit), nil
}

// ListCategories fetches every category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "list_categories", nil, &raw, "products", "categories"); err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	categories, err := decodeCategories(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: decode: %w", err)
	}
	return categories, nil
}

// GetProduct returns a single product. Concurrent callers for one id share a request; successful
// results are kept until Forget, failures are not kept. A caller whose ctx ends stops waiting while
// the shared fetch runs on.
func (c *Client) GetProduct(ctx context.Context, id int) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, fmt.Errorf("%w: product with ID %d not found", ErrProductNotFound, id)
	}
	if product, ok := c.cached(id); ok {
		c.metrics.recordMemoHit(ctx)
		return product, nil
	}

	key := strconv.Itoa(id)
	ch := c.group.DoChan(key, func() (any, error) {
		if product, ok := c.cached(id); ok {
			return product, nil
		}
		// The shared request must not die with whichever caller happened to start it.
		product, err := c.fetchProduct(context.WithoutCancel(ctx), id)
		if err != nil {
			return domain.Product{}, err
		}
		c.mu.Lock()
		c.product[id] = product
		c.mu.Unlock()
		return product, nil
	})
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("catalog: shared in-flight product fetch", zap.Int("product_id", id))
		}
		if res.Err != nil {
			return domain.Product{}, res.Err
		}
		return res.Val.(domain.Product), nil
	}
}

// Forget drops the memoised product so the next lookup refetches it.
func (c *Client) Forget(id int) {
	c.mu.Lock()
	delete(c.product, id)
	c.mu.Unlock()
	c.group.Forget(strconv.Itoa(id))
}

func (c *Client) cached(id int) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.product[id]
	return product, ok
}

func (c *Client) fetchProduct(ctx context.Context, id int) (domain.Product, error) {
	var payload productPayload
	err := c.getJSON(ctx, "get_product", nil, &payload, "products", strconv.Itoa(id))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return domain.Product{}, fmt.Errorf("%w: product with ID %d not found: %w", ErrProductNotFound, id, apiErr)
		}
		return domain.Product{}, fmt.Errorf("catalog: get product %d: %w", id, err)
	}
	product := payload.toProduct()
	if product.ID == 0 {
		product.ID = id
	}
	return product, nil
}

func (c *Client) getJSON(ctx context.Context, op string, query url.Values, dst any, segments ...string) error {
	start := time.Now()
	status := 0
	defer func() {
		c.metrics.recordLatency(ctx, op, status, time.Since(start))
	}()

	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("catalog: request failed", zap.String("op", op), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp)
		c.logger.Debug("catalog: upstream error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
