package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xscopehub/promtools/apierr"
)

// recordingSleep captures backoff durations instead of waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestTransport(t *testing.T, serverURL string, creds Credentials, opts Options) *Transport {
	t.Helper()
	if opts.Sleep == nil {
		opts.Sleep = (&recordingSleep{}).sleep
	}
	tr, err := New(serverURL, creds, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestAuthHeaders(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  string
	}{
		{"token wins over basic", Credentials{Token: "tok", Username: "u", Password: "p"}, "Bearer tok"},
		{"basic auth", Credentials{Username: "user", Password: "pass"},
			"Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))},
		{"no credentials", Credentials{}, ""},
		{"username without password", Credentials{Username: "user"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			tr := newTestTransport(t, srv.URL, tt.creds, Options{})
			if _, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderPrecedence(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, Credentials{}, Options{
		Headers: map[string]string{"X-Scope-OrgID": "base", "X-Keep": "yes"},
	})
	_, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil,
		map[string]string{"X-Scope-OrgID": "override"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v := got.Get("X-Scope-OrgID"); v != "override" {
		t.Fatalf("X-Scope-OrgID = %q, want override", v)
	}
	if v := got.Get("X-Keep"); v != "yes" {
		t.Fatalf("X-Keep = %q, want yes", v)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		headers    map[string]string
		wantRetry  bool
		checkError func(t *testing.T, err error)
	}{
		{
			name:   "401 authentication",
			status: http.StatusUnauthorized,
			checkError: func(t *testing.T, err error) {
				var aerr *apierr.AuthenticationError
				if !errors.As(err, &aerr) {
					t.Fatalf("got %v, want AuthenticationError", err)
				}
			},
		},
		{
			name:      "429 rate limited",
			status:    http.StatusTooManyRequests,
			headers:   map[string]string{"Retry-After": "7"},
			wantRetry: true,
			checkError: func(t *testing.T, err error) {
				var rerr *apierr.RateLimitError
				if !errors.As(err, &rerr) {
					t.Fatalf("got %v, want RateLimitError", err)
				}
				if rerr.RetryAfter != 7 {
					t.Fatalf("RetryAfter = %d, want 7", rerr.RetryAfter)
				}
			},
		},
		{
			name:      "503 server error",
			status:    http.StatusServiceUnavailable,
			wantRetry: true,
			checkError: func(t *testing.T, err error) {
				var aerr *apierr.APIError
				if !errors.As(err, &aerr) {
					t.Fatalf("got %v, want APIError", err)
				}
				if aerr.Status != http.StatusServiceUnavailable {
					t.Fatalf("Status = %d", aerr.Status)
				}
			},
		},
		{
			name:   "400 client error",
			status: http.StatusBadRequest,
			checkError: func(t *testing.T, err error) {
				var aerr *apierr.APIError
				if !errors.As(err, &aerr) {
					t.Fatalf("got %v, want APIError", err)
				}
				if aerr.Status != http.StatusBadRequest {
					t.Fatalf("Status = %d", aerr.Status)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			tr := newTestTransport(t, srv.URL, Credentials{}, Options{
				Retry: RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2},
			})
			_, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.checkError(t, err)

			wantCalls := int64(1)
			if tt.wantRetry {
				wantCalls = 3
			}
			if calls.Load() != wantCalls {
				t.Fatalf("server saw %d calls, want %d", calls.Load(), wantCalls)
			}
		})
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	rec := &recordingSleep{}
	tr := newTestTransport(t, srv.URL, Credentials{}, Options{
		Retry: RetryPolicy{MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2},
		Sleep: rec.sleep,
	})

	body, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(body) != `{"status":"success"}` {
		t.Fatalf("body = %s", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
	if len(rec.delays) != 2 {
		t.Fatalf("slept %d times, want 2", len(rec.delays))
	}
	if rec.delays[1] <= rec.delays[0] {
		t.Fatalf("backoff not increasing: %v", rec.delays)
	}
}

func TestNetworkErrorBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	tr := newTestTransport(t, srv.URL, Credentials{}, Options{
		Retry: RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2},
	})
	_, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil)

	var aerr *apierr.APIError
	if !errors.As(err, &aerr) {
		t.Fatalf("got %v, want APIError", err)
	}
	if aerr.Status != 0 {
		t.Fatalf("Status = %d, want 0 for network failure", aerr.Status)
	}
	if aerr.Unwrap() == nil {
		t.Fatal("network cause not wrapped")
	}
}

func TestQueryParamsAndPath(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL+"/prom", Credentials{}, Options{})
	params := url.Values{}
	params.Set("query", `up{job="api"}`)
	if _, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", params, nil, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotPath != "/prom/api/v1/query" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != `up{job="api"}` {
		t.Fatalf("query param = %q", gotQuery)
	}
}

func TestRateLimitThrottles(t *testing.T) {
	if testing.Short() {
		t.Skip("wall-clock rate limit test")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL, Credentials{}, Options{RateLimit: 20})

	start := time.Now()
	for i := 0; i < 11; i++ {
		if _, err := tr.Execute(context.Background(), http.MethodGet, "api/v1/query", nil, nil, nil); err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}
	// 11 requests at 20 rps with burst 1 need at least 10 refills: 500ms.
	if elapsed := time.Since(start); elapsed < 450*time.Millisecond {
		t.Fatalf("11 requests completed in %v, limiter not enforced", elapsed)
	}
}

func TestNewRejectsEmptyURL(t *testing.T) {
	_, err := New("", Credentials{}, Options{})
	var cerr *apierr.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("got %v, want ConfigurationError", err)
	}
}

func TestEpochSeconds(t *testing.T) {
	ts := time.Date(2026, 8, 26, 12, 0, 0, 500_000_000, time.UTC)
	got := EpochSeconds(ts)
	if got != "1787745600.5" {
		t.Fatalf("EpochSeconds = %q", got)
	}
}
