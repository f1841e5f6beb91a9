package cache

import (
	"context"

	"tickerflow/internal/metadata"
	"tickerflow/internal/model"
	"tickerflow/pkg/exception"
)

// ExchangeCache keeps the active exchange snapshots in memory.
type ExchangeCache struct {
	inner *RefreshAhead[[]model.ExchangeSnapshot]
}

// NewExchangeCache creates a cache fed by store. An empty store answer is
// treated as a failed load.
func NewExchangeCache(store metadata.Store, cfg Config) *ExchangeCache {
	load := func(ctx context.Context) ([]model.ExchangeSnapshot, error) {
		snapshots, err := store.ActiveExchanges(ctx)
		if err != nil {
			return nil, err
		}
		if len(snapshots) == 0 {
			return nil, exception.ErrCacheEmptyValue
		}
		return snapshots, nil
	}
	return &ExchangeCache{inner: NewRefreshAhead("exchange", load, cfg)}
}

// Preload loads the snapshots before the first dispatch.
func (c *ExchangeCache) Preload(ctx context.Context) error {
	return c.inner.Preload(ctx)
}

// Exchanges returns the current snapshots. Callers must not mutate them.
func (c *ExchangeCache) Exchanges(ctx context.Context) ([]model.ExchangeSnapshot, error) {
	return c.inner.Get(ctx)
}

func (c *ExchangeCache) Close() {
	c.inner.Close()
}
