// Package transport issues single HTTP requests against a monitoring API,
// enforcing a shared rate limit, retrying transient failures with exponential
// backoff and mapping HTTP statuses to the apierr taxonomy.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/xscopehub/promtools/apierr"
)

// Credentials carries authentication material. Token wins over basic auth
// when both are set.
type Credentials struct {
	Token    string
	Username string
	Password string
}

// SleepFunc suspends for the given duration or until the context is done.
// Tests inject a recording implementation to avoid real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures transport construction. The zero value is usable.
type Options struct {
	// Timeout bounds each HTTP attempt. Defaults to 30s.
	Timeout time.Duration
	// RateLimit is the shared requests-per-second budget; zero means
	// unlimited.
	RateLimit float64
	// Retry controls transient-failure retries. Zero value means
	// DefaultRetryPolicy with MaxRetries taken from the client config.
	Retry RetryPolicy
	// Headers are sent with every request; per-call headers win on conflict.
	Headers map[string]string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// Logger receives retry and rate-limit events. Defaults to slog.Default.
	Logger *slog.Logger
	// Metrics, when set, registers request counters and latency histograms.
	Metrics Registerer
	// Sleep replaces the backoff sleep, for tests.
	Sleep SleepFunc
}

// Transport executes requests against one base URL. The underlying
// connection pool is shared by all concurrent callers; the rate limiter is a
// single token bucket per Transport instance.
type Transport struct {
	baseURL *url.URL
	http    *http.Client
	headers map[string]string
	creds   Credentials
	limiter *rate.Limiter
	retry   RetryPolicy
	sleep   SleepFunc
	logger  *slog.Logger
	metrics *clientMetrics
}

// New builds a Transport for the given base URL.
func New(baseURL string, creds Credentials, opts Options) (*Transport, error) {
	if baseURL == "" {
		return nil, &apierr.ConfigurationError{Reason: "base url is required"}
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, &apierr.ConfigurationError{Reason: fmt.Sprintf("parse base url: %v", err)}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} // #nosec G402
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	retry := opts.Retry
	if retry.BaseDelay <= 0 {
		retry = DefaultRetryPolicy(retry.MaxRetries)
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = defaultSleep
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		baseURL: parsed,
		http:    httpClient,
		headers: opts.Headers,
		creds:   creds,
		limiter: limiter,
		retry:   retry,
		sleep:   sleep,
		logger:  logger,
		metrics: newClientMetrics(opts.Metrics),
	}, nil
}

// Execute performs one API call and returns the raw response body. Callers
// are responsible for interpreting its shape. Failures are reported as typed
// errors from the apierr package, never as a malformed body.
func (t *Transport) Execute(ctx context.Context, method, endpoint string, params url.Values, body any, headers map[string]string) (json.RawMessage, error) {
	target := t.resolve(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &apierr.APIError{Endpoint: endpoint, Err: fmt.Errorf("encode body: %w", err)}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			t.metrics.retry()
			if err := t.sleep(ctx, t.retry.Backoff(attempt)); err != nil {
				return nil, &apierr.APIError{Endpoint: endpoint, Err: err}
			}
		}

		if t.limiter != nil {
			waitStart := time.Now()
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, &apierr.APIError{Endpoint: endpoint, Err: err}
			}
			t.metrics.limiterWait(time.Since(waitStart))
		}

		data, retryable, err := t.attempt(ctx, method, target, endpoint, payload, headers)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		t.logger.Debug("retrying request",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"error", err)
	}

	return nil, lastErr
}

// attempt runs a single HTTP round trip. The second return value reports
// whether the failure is transient (network error, 5xx, 429).
func (t *Transport) attempt(ctx context.Context, method, target, endpoint string, payload []byte, headers map[string]string) (json.RawMessage, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, false, &apierr.APIError{Endpoint: endpoint, Err: err}
	}

	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	// Auth headers are computed fresh on every call.
	for k, v := range t.authHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.metrics.observe(endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, false, &apierr.APIError{Endpoint: endpoint, Err: ctx.Err()}
		}
		return nil, true, &apierr.APIError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	t.metrics.observe(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, true, &apierr.APIError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, &apierr.AuthenticationError{Endpoint: endpoint}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &apierr.RateLimitError{
			Endpoint:   endpoint,
			RetryAfter: parseRetryAfter(resp.Header),
		}
	case resp.StatusCode >= 500:
		return nil, true, &apierr.APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(data)}
	case resp.StatusCode >= 400:
		return nil, false, &apierr.APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(data)}
	}

	return data, false, nil
}

func (t *Transport) authHeaders() map[string]string {
	headers := make(map[string]string, 1)
	switch {
	case t.creds.Token != "":
		headers["Authorization"] = "Bearer " + t.creds.Token
	case t.creds.Username != "" && t.creds.Password != "":
		raw := t.creds.Username + ":" + t.creds.Password
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}
	return headers
}

func (t *Transport) resolve(endpoint string) string {
	u := *t.baseURL
	u.Path = path.Join(t.baseURL.Path, endpoint)
	return u.String()
}

func parseRetryAfter(h http.Header) int {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return secs
}

// EpochSeconds formats a timestamp as fractional Unix epoch seconds, the
// representation Prometheus accepts for time parameters.
func EpochSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64)
}
