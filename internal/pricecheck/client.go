// Package pricecheck talks to the remote price-check service.
package pricecheck

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"grimvault/internal/cache"
	"grimvault/internal/metrics"
)

// ErrNoResult is returned by Fetch when the service answered but had nothing
// for the tooltip.
var ErrNoResult = errors.New("no price check result")

const endpoint = "/v1/price-check"

// Options configures a Client.
type Options struct {
	BaseURL   string
	Version   string
	InstallID string

	Timeout time.Duration
	// RateLimit is the sustained request rate per second. Zero disables
	// throttling.
	RateLimit float64

	CacheSize int
	CacheTTL  time.Duration

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultOptions returns options for baseURL with the stock timeout, retry
// and cache settings.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:      baseURL,
		Timeout:      15 * time.Second,
		RateLimit:    2,
		CacheSize:    100,
		CacheTTL:     cache.DefaultTTL,
		RetryMax:     2,
		RetryWaitMin: 250 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// Client looks up tooltip text. Results are cached by normalized text.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	cache   *cache.Service[map[string]any]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type envelope struct {
	Body map[string]any `json:"body"`
}

// New creates a Client.
func New(opts Options, m *metrics.Metrics, logger *zap.Logger) *Client {
	logger = logger.Named("lookup")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = leveledLogger{logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent(opts.Version, opts.InstallID))

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}

	c := &Client{
		resty:   restyClient,
		limiter: limiter,
		cache:   cache.New[map[string]any](opts.CacheSize, opts.CacheTTL),
		metrics: m,
		logger:  logger,
	}

	restyClient.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		c.logger.Debug("Price check request", zap.String("method", r.Method), zap.String("url", r.URL), zap.Any("query", r.QueryParam))
		return nil
	})
	restyClient.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		c.logger.Debug("Price check response",
			zap.Int("status", r.StatusCode()),
			zap.Duration("took", r.Time()),
			zap.ByteString("body", r.Body()),
		)
		return nil
	})

	return c
}

// UserAgent is the header value identifying this install to the service.
func UserAgent(version, installID string) string {
	return fmt.Sprintf("GrimVault v%s (%s)", version, installID)
}

// Lookup returns the item data for text, from the cache when possible. A nil
// map with a nil error means the service had no result; those are not cached.
func (c *Client) Lookup(ctx context.Context, text string) (map[string]any, error) {
	key := cache.NormalizeKey(text)
	if key == "" {
		return nil, nil
	}

	if body, ok := c.cache.Get(key); ok {
		c.metrics.CacheHits.Inc()
		c.logger.Debug("Price check cache hit", zap.String("key", key))
		return body, nil
	}
	c.metrics.CacheMisses.Inc()

	body, err := c.Fetch(ctx, text)
	if errors.Is(err, ErrNoResult) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, body)
	c.metrics.CacheEntries.Set(float64(c.CacheStats().Size))
	return body, nil
}

// Fetch asks the service about text, bypassing the cache.
func (c *Client) Fetch(ctx context.Context, text string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("price check throttled: %w", err)
	}

	start := time.Now()
	var result envelope
	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("tooltip", text).
		SetResult(&result).
		ForceContentType("application/json").
		Get(endpoint)
	metrics.ObserveSince(c.metrics.LookupDuration, start)

	if err != nil {
		c.metrics.LookupRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("price check request failed: %w", err)
	}

	c.metrics.LookupRequests.WithLabelValues(strconv.Itoa(resp.StatusCode())).Inc()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("price check returned %s", resp.Status())
	}
	if len(result.Body) == 0 {
		return nil, ErrNoResult
	}
	return result.Body, nil
}

// CacheStats reports the result cache.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// leveledLogger adapts zap to retryablehttp's LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
