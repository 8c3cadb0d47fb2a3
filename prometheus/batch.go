package prometheus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/xscopehub/promtools/query"
)

// DefaultMaxConcurrent is the batch concurrency gate used when BatchOptions
// does not set one.
const DefaultMaxConcurrent = 10

// BatchOptions configures QueryBatch.
type BatchOptions struct {
	// Time evaluates instant queries at this point instead of now.
	Time time.Time
	// MaxConcurrent bounds in-flight queries. Defaults to
	// DefaultMaxConcurrent.
	MaxConcurrent int
}

// QueryBatch normalizes the inputs, runs every query concurrently under a
// counting semaphore and returns one Result per input in input order. A
// normalization failure aborts the whole batch before any network call; all
// execution failures are isolated into their own Result and never affect
// sibling queries.
func (c *Client) QueryBatch(ctx context.Context, inputs []any, opts BatchOptions) ([]query.Result, error) {
	queries, err := query.Normalize(inputs)
	if err != nil {
		return nil, err
	}

	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	sem := semaphore.NewWeighted(int64(limit))
	results := make([]query.Result, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query.Query) {
			defer wg.Done()
			results[i] = c.runQuery(ctx, q, opts.Time, sem)
		}(i, q)
	}
	wg.Wait()

	return results, nil
}

// runQuery executes one normalized query to completion, measuring wall time
// from before the gate acquire. Panics and cancellation become failed
// Results so no task failure can abort its siblings.
func (c *Client) runQuery(ctx context.Context, q query.Query, at time.Time, sem *semaphore.Weighted) (res query.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = query.ResultFromError(q.Name, q.Text, fmt.Errorf("query panicked: %v", r), time.Since(start), q.Type())
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		return query.ResultFromError(q.Name, q.Text, err, time.Since(start), q.Type())
	}
	defer sem.Release(1)

	var result query.Result
	if q.IsRange() {
		result, _ = c.QueryRange(ctx, q.Text, RangeOptions{
			Start:   q.Start,
			End:     q.End,
			Step:    q.Step,
			Timeout: q.Timeout,
		})
	} else {
		result, _ = c.Query(ctx, q.Text, QueryOptions{Time: at, Timeout: q.Timeout})
	}

	result.Elapsed = time.Since(start)
	if q.Name != "" {
		result.QueryName = q.Name
	}
	return result
}

// BuildQueries converts loose maps into Query values, for callers assembling
// batches from decoded YAML or JSON files.
func BuildQueries(entries []map[string]any) ([]query.Query, error) {
	inputs := make([]any, len(entries))
	for i, e := range entries {
		inputs[i] = e
	}
	return query.Normalize(inputs)
}
