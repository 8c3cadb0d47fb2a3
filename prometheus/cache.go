package prometheus

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/xscopehub/promtools/config"
)

// resultCache keeps recent raw query responses so repeated dashboard-style
// batches skip the network. A nil receiver (cache disabled) is a no-op.
type resultCache struct {
	ttl   time.Duration
	store *ristretto.Cache
}

func newResultCache(cfg config.CacheConfig) (*resultCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	numCounters := cfg.NumCounters
	if numCounters <= 0 {
		numCounters = 1e4
	}
	maxCost := cfg.MaxCost
	if maxCost <= 0 {
		maxCost = 1 << 26
	}
	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &resultCache{ttl: ttl, store: store}, nil
}

func (c *resultCache) get(key string) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	body, ok := v.(json.RawMessage)
	return body, ok
}

func (c *resultCache) set(key string, body json.RawMessage) {
	if c == nil {
		return
	}
	c.store.SetWithTTL(key, body, int64(len(body)), c.ttl)
}
