package grafana

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds concurrent dashboard fetches when
// BatchOptions does not set a limit.
const DefaultMaxConcurrent = 10

// BatchOptions configures DashboardsBatch.
type BatchOptions struct {
	// MaxConcurrent bounds in-flight requests. Defaults to
	// DefaultMaxConcurrent.
	MaxConcurrent int
}

// DashboardResult is the outcome of one fetch in a batch. Err is set and
// Dashboard is the zero value when the fetch failed.
type DashboardResult struct {
	UID       string
	Dashboard Dashboard
	Err       error
}

// DashboardsBatch fetches many dashboards concurrently under a counting
// semaphore and returns one result per UID in input order. Fetch failures
// are isolated per entry and never abort sibling fetches.
func (c *Client) DashboardsBatch(ctx context.Context, uids []string, opts BatchOptions) []DashboardResult {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	sem := semaphore.NewWeighted(int64(limit))
	results := make([]DashboardResult, len(uids))

	var wg sync.WaitGroup
	for i, uid := range uids {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			results[i] = c.fetchDashboard(ctx, uid, sem)
		}(i, uid)
	}
	wg.Wait()

	return results
}

func (c *Client) fetchDashboard(ctx context.Context, uid string, sem *semaphore.Weighted) (res DashboardResult) {
	res.UID = uid
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("dashboard fetch panicked: %v", r)
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		res.Err = err
		return res
	}
	defer sem.Release(1)

	res.Dashboard, res.Err = c.Dashboard(ctx, uid)
	return res
}
