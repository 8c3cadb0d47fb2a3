// Package prometheus provides a typed client for the Prometheus HTTP API
// with concurrent batch dispatch, retries and rate limiting.
package prometheus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/xscopehub/promtools/apierr"
	"github.com/xscopehub/promtools/config"
	"github.com/xscopehub/promtools/query"
	"github.com/xscopehub/promtools/transport"
)

// executor issues one API call. Satisfied by *transport.Transport; tests
// substitute recording fakes.
type executor interface {
	Execute(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (json.RawMessage, error)
}

// Client talks to one Prometheus server.
type Client struct {
	exec   executor
	cache  *resultCache
	logger *slog.Logger
}

// Option customizes client construction.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics transport.Registerer
	sleep   transport.SleepFunc
}

// WithLogger sets the logger used for retry and cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers transport instrumentation on the given registry.
func WithMetrics(reg transport.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

// WithSleep replaces the retry backoff sleep, for tests.
func WithSleep(sleep transport.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// New builds a Client from configuration.
func New(cfg config.PrometheusConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, &apierr.ConfigurationError{Reason: "prometheus url is required"}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	t, err := transport.New(cfg.URL, transport.Credentials{
		Token:    cfg.Token,
		Username: cfg.Username,
		Password: cfg.Password,
	}, transport.Options{
		Timeout:            cfg.Timeout,
		RateLimit:          cfg.RateLimit,
		Retry:              transport.DefaultRetryPolicy(cfg.MaxRetries),
		Headers:            cfg.Headers,
		InsecureSkipVerify: !cfg.VerifySSL,
		Logger:             o.logger,
		Metrics:            o.metrics,
		Sleep:              o.sleep,
	})
	if err != nil {
		return nil, err
	}

	cache, err := newResultCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	return &Client{exec: t, cache: cache, logger: o.logger}, nil
}

// QueryOptions carries optional parameters for instant queries.
type QueryOptions struct {
	// Time evaluates the query at a point in time instead of now.
	Time time.Time
	// Timeout is the Prometheus-side evaluation timeout, e.g. "30s".
	Timeout string
}

// Query executes an instant query. Execution failures are folded into the
// returned Result; the error carries the typed cause for callers that need
// to distinguish rate limiting or auth failures.
func (c *Client) Query(ctx context.Context, text string, opts QueryOptions) (query.Result, error) {
	params := url.Values{}
	params.Set("query", text)
	if !opts.Time.IsZero() {
		params.Set("time", transport.EpochSeconds(opts.Time))
	}
	if opts.Timeout != "" {
		params.Set("timeout", opts.Timeout)
	}

	start := time.Now()

	if body, ok := c.cache.get(cacheKey("query", params)); ok {
		return query.ResultFromResponse("", text, body, time.Since(start), query.TypeInstant), nil
	}

	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/query", params, nil, nil)
	if err != nil {
		return query.ResultFromError("", text, err, time.Since(start), query.TypeInstant), err
	}

	c.cache.set(cacheKey("query", params), body)
	return query.ResultFromResponse("", text, body, time.Since(start), query.TypeInstant), nil
}

// RangeOptions carries parameters for range queries. Start, End and Step are
// required by the API.
type RangeOptions struct {
	Start   time.Time
	End     time.Time
	Step    string
	Timeout string
}

// QueryRange executes a range query over [Start, End] at the given step.
func (c *Client) QueryRange(ctx context.Context, text string, opts RangeOptions) (query.Result, error) {
	params := url.Values{}
	params.Set("query", text)
	params.Set("start", transport.EpochSeconds(opts.Start))
	params.Set("end", transport.EpochSeconds(opts.End))
	params.Set("step", opts.Step)
	if opts.Timeout != "" {
		params.Set("timeout", opts.Timeout)
	}

	start := time.Now()

	if body, ok := c.cache.get(cacheKey("query_range", params)); ok {
		return query.ResultFromResponse("", text, body, time.Since(start), query.TypeRange), nil
	}

	body, err := c.exec.Execute(ctx, http.MethodGet, "api/v1/query_range", params, nil, nil)
	if err != nil {
		return query.ResultFromError("", text, err, time.Since(start), query.TypeRange), err
	}

	c.cache.set(cacheKey("query_range", params), body)
	return query.ResultFromResponse("", text, body, time.Since(start), query.TypeRange), nil
}

func cacheKey(endpoint string, params url.Values) string {
	return endpoint + "?" + params.Encode()
}
