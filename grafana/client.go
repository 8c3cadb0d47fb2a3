// Package grafana provides a typed client for the Grafana HTTP API:
// dashboards, folders, datasources, alerting and administration.
package grafana

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/xscopehub/promtools/config"
	"github.com/xscopehub/promtools/transport"
)

// executor abstracts the HTTP layer so tests can substitute a fake.
type executor interface {
	Execute(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (json.RawMessage, error)
}

// Client talks to a single Grafana instance.
type Client struct {
	exec   executor
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics transport.Registerer
	sleep   transport.SleepFunc
}

// WithLogger sets the structured logger used by the client.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the transport's self-metrics with reg.
func WithMetrics(reg transport.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

// WithSleep overrides the retry sleep function. Used in tests.
func WithSleep(fn transport.SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// New builds a Client from cfg. API key authentication takes precedence
// over basic auth when both are configured.
func New(cfg config.GrafanaConfig, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.OrgID > 0 {
		headers["X-Grafana-Org-Id"] = strconv.Itoa(cfg.OrgID)
	}

	creds := transport.Credentials{
		Token:    cfg.APIKey,
		Username: cfg.Username,
		Password: cfg.Password,
	}

	t, err := transport.New(cfg.URL, creds, transport.Options{
		Timeout:            cfg.Timeout,
		RateLimit:          cfg.RateLimit,
		Retry:              transport.DefaultRetryPolicy(cfg.MaxRetries),
		Headers:            headers,
		InsecureSkipVerify: !cfg.VerifySSL,
		Logger:             o.logger,
		Metrics:            o.metrics,
		Sleep:              o.sleep,
	})
	if err != nil {
		return nil, err
	}

	return &Client{exec: t, logger: o.logger}, nil
}

// Health reports the instance health from /api/health.
func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	if err := c.getJSON(ctx, "api/health", nil, &info); err != nil {
		return HealthInfo{}, err
	}
	return info, nil
}

// HealthInfo is the payload of /api/health.
type HealthInfo struct {
	Commit   string `json:"commit"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.exec.Execute(ctx, "GET", endpoint, params, nil, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := c.exec.Execute(ctx, "POST", endpoint, nil, in, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) putJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := c.exec.Execute(ctx, "PUT", endpoint, nil, in, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	_, err := c.exec.Execute(ctx, "DELETE", endpoint, nil, nil, nil)
	return err
}
