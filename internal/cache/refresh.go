package cache

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/internal/bus"
	"tickerflow/pkg/exception"
)

const (
	defaultMinTTL        = 10 * time.Minute
	defaultMaxTTL        = 20 * time.Minute
	defaultReloadWorkers = 4
	defaultReloadBacklog = 2000
	defaultReloadTimeout = time.Minute
)

// Loader produces a fresh value.
type Loader[V any] func(ctx context.Context) (V, error)

// Config controls expiry and the reload pool.
type Config struct {
	MinTTL        time.Duration
	MaxTTL        time.Duration
	ReloadWorkers int
	ReloadBacklog int
	ReloadTimeout time.Duration
}

// DefaultConfig returns the baseline cache configuration.
func DefaultConfig() Config {
	return Config{
		MinTTL:        defaultMinTTL,
		MaxTTL:        defaultMaxTTL,
		ReloadWorkers: defaultReloadWorkers,
		ReloadBacklog: defaultReloadBacklog,
		ReloadTimeout: defaultReloadTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MinTTL <= 0 {
		c.MinTTL = defaultMinTTL
	}
	if c.MaxTTL < c.MinTTL {
		c.MaxTTL = c.MinTTL
	}
	if c.ReloadWorkers <= 0 {
		c.ReloadWorkers = defaultReloadWorkers
	}
	if c.ReloadBacklog <= 0 {
		c.ReloadBacklog = defaultReloadBacklog
	}
	if c.ReloadTimeout <= 0 {
		c.ReloadTimeout = defaultReloadTimeout
	}
	return c
}

type entry[V any] struct {
	value    V
	expireAt time.Time
}

// RefreshAhead serves the last loaded value and reloads it in the background
// once it expires. A failed reload keeps the previous value.
type RefreshAhead[V any] struct {
	name      string
	cfg       Config
	load      Loader[V]
	pool      *bus.Pool
	current   atomic.Pointer[entry[V]]
	reloading atomic.Bool
	loadMu    sync.Mutex
	now       func() time.Time
}

// NewRefreshAhead creates a cache named name around load.
func NewRefreshAhead[V any](name string, load Loader[V], cfg Config) *RefreshAhead[V] {
	cfg = cfg.withDefaults()
	return &RefreshAhead[V]{
		name: name,
		cfg:  cfg,
		load: load,
		pool: bus.NewPool(name+"-reload", cfg.ReloadWorkers, cfg.ReloadBacklog),
		now:  time.Now,
	}
}

// Preload loads the value synchronously.
func (c *RefreshAhead[V]) Preload(ctx context.Context) error {
	_, err := c.loadSync(ctx, true)
	return err
}

// Get returns the cached value. The first call loads synchronously; later
// calls never block, and an expired value triggers a background reload.
func (c *RefreshAhead[V]) Get(ctx context.Context) (V, error) {
	e := c.current.Load()
	if e == nil {
		return c.loadSync(ctx, false)
	}
	if !c.now().Before(e.expireAt) {
		c.scheduleReload()
	}
	return e.value, nil
}

// Close stops the reload pool.
func (c *RefreshAhead[V]) Close() {
	c.pool.Shutdown()
}

func (c *RefreshAhead[V]) loadSync(ctx context.Context, force bool) (V, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if e := c.current.Load(); e != nil && !force {
		return e.value, nil
	}
	if c.load == nil {
		var zero V
		return zero, exception.ErrCacheNilLoader
	}
	v, err := c.load(ctx)
	if err != nil {
		var zero V
		if e := c.current.Load(); e != nil {
			logs.Errorf("%s cache load failed, keep previous value, err: %+v", c.name, err)
			return e.value, nil
		}
		return zero, errors.Wrapf(err, "load %s cache", c.name)
	}
	c.store(v)
	return v, nil
}

func (c *RefreshAhead[V]) scheduleReload() {
	if !c.reloading.CompareAndSwap(false, true) {
		return
	}
	if err := c.pool.Submit(c.reload); err != nil {
		c.reloading.Store(false)
		logs.Warnf("%s cache reload rejected, err: %+v", c.name, errors.Wrap(exception.ErrCacheReloadBusy, err.Error()))
	}
}

func (c *RefreshAhead[V]) reload() {
	defer c.reloading.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ReloadTimeout)
	defer cancel()

	v, err := c.load(ctx)
	if err != nil {
		logs.Errorf("%s cache reload failed, keep previous value, err: %+v", c.name, err)
		return
	}
	c.store(v)
	logs.Infof("%s cache reloaded", c.name)
}

func (c *RefreshAhead[V]) store(v V) {
	c.current.Store(&entry[V]{value: v, expireAt: c.now().Add(c.ttl())})
}

// ttl picks a duration in [MinTTL, MaxTTL] so that instances do not expire together.
func (c *RefreshAhead[V]) ttl() time.Duration {
	span := c.cfg.MaxTTL - c.cfg.MinTTL
	if span <= 0 {
		return c.cfg.MinTTL
	}
	return c.cfg.MinTTL + rand.N(span+1)
}
