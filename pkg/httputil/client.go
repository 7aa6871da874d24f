package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/postermill/pkg/buildinfo"
	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/observability"
)

// Client defaults.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	DefaultMaxBytes = 32 << 20
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, bad statuses).
	ErrNetwork = errors.New("network error")

	// ErrTooLarge is returned when a body exceeds the client's size limit.
	ErrTooLarge = errors.New("response too large")
)

// DefaultHeaders are sent with every request unless overridden.
var DefaultHeaders = map[string]string{
	"User-Agent": buildinfo.UserAgent(),
	"Accept":     "image/*,*/*;q=0.8",
}

// Client downloads response bodies with caching and retry.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
	headers   map[string]string

	// Refresh bypasses cache reads; fresh bodies are still stored.
	Refresh  bool
	Attempts int
	Delay    time.Duration
	MaxBytes int64
}

// NewClient returns a client storing bodies in c under namespace for ttl.
// headers are merged over DefaultHeaders. A nil cache disables caching.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	merged := make(map[string]string, len(DefaultHeaders)+len(headers))
	for k, v := range DefaultHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		namespace: namespace,
		ttl:       ttl,
		headers:   merged,
		Attempts:  DefaultAttempts,
		Delay:     DefaultDelay,
		MaxBytes:  DefaultMaxBytes,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// WithKeyer replaces the cache keyer.
func (c *Client) WithKeyer(k cache.Keyer) *Client {
	if k != nil {
		c.keyer = k
	}
	return c
}

// SetTimeout sets the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.http.Timeout = d
	}
}

// GetBytes returns the body of a GET to rawURL, from cache when possible.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	key := c.keyer.HTTPKey(c.namespace, rawURL)
	return c.Cached(ctx, key, func() ([]byte, error) {
		return c.fetch(ctx, rawURL)
	})
}

// Cached returns the value stored under key, or runs fetch with retry and
// stores its result. Cache errors degrade to a miss.
func (c *Client) Cached(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	hooks := observability.Cache()
	if !c.Refresh {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, c.namespace)
			return data, nil
		}
		hooks.OnCacheMiss(ctx, c.namespace)
	}

	var data []byte
	err := Retry(ctx, c.Attempts, c.Delay, func() error {
		var err error
		data, err = fetch()
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err == nil {
		hooks.OnCacheSet(ctx, c.namespace, len(data))
	}
	return data, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrNetwork, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
