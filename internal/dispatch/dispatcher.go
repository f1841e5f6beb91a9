package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/time/rate"

	"tickerflow/internal/broker"
	bizerr "tickerflow/internal/errors"
	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
	"tickerflow/pkg/exception"
)

const (
	defaultSendInterval = 7 * time.Millisecond
	defaultLockTTL      = 4 * time.Minute
	lockKeyPrefix       = "tickerflow:dispatch:"
)

// Source provides the cached exchange snapshots.
type Source interface {
	Exchanges(ctx context.Context) ([]model.ExchangeSnapshot, error)
}

// Locker guards a dispatch cycle across scheduler replicas.
type Locker interface {
	// Acquire returns ok=false when key is held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Config controls a Dispatcher.
type Config struct {
	Topic        string
	SendInterval time.Duration
	LockTTL      time.Duration
}

func (c Config) withDefaults() Config {
	if c.SendInterval <= 0 {
		c.SendInterval = defaultSendInterval
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaultLockTTL
	}
	return c
}

// Dispatcher turns cached exchanges into schedule tasks and publishes them.
type Dispatcher struct {
	cfg      Config
	source   Source
	producer broker.Producer
	locker   Locker
	newID    func() string
	now      func() time.Time
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLocker enables the cross-replica cycle lock.
func WithLocker(l Locker) Option {
	return func(d *Dispatcher) {
		d.locker = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a dispatcher publishing to cfg.Topic.
func New(source Source, producer broker.Producer, cfg Config, opts ...Option) (*Dispatcher, error) {
	if source == nil || producer == nil {
		return nil, exception.ErrNilInstance
	}
	d := &Dispatcher{
		cfg:      cfg.withDefaults(),
		source:   source,
		producer: producer,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// BuildTasks returns one full-market task per exchange that lists a market
// of category.
func BuildTasks(exchanges []model.ExchangeSnapshot, category enum.DataCategory) []model.ScheduleTask {
	tasks := make([]model.ScheduleTask, 0, len(exchanges))
	for _, e := range exchanges {
		if !e.HasCategory(category) {
			continue
		}
		tasks = append(tasks, model.ScheduleTask{
			ExchangeID:   e.ID,
			ExchangeName: e.Name,
			Type:         category,
		})
	}
	return tasks
}

// Dispatch runs one cycle for category and returns the number of tasks
// published. Configuration defects and empty cycles are business errors.
//
// With a locker, a cycle that published anything keeps the lock until
// LockTTL expires so replicas ticking later in the same window skip it.
// LockTTL must stay below the schedule period. A cycle that published
// nothing releases the lock for another replica to retry.
func (d *Dispatcher) Dispatch(ctx context.Context, category enum.DataCategory) (sent int, err error) {
	if !category.IsAvailable() {
		return 0, bizerr.Business(exception.ErrDispatchCategory, "dispatch "+category.String())
	}
	if d.cfg.Topic == "" {
		return 0, bizerr.Business(exception.ErrDispatchTopic, "dispatch "+category.String())
	}

	if d.locker != nil {
		release, ok, lockErr := d.locker.Acquire(ctx, lockKeyPrefix+category.String(), d.cfg.LockTTL)
		if lockErr != nil {
			return 0, errors.Wrap(lockErr, "acquire dispatch lock").With("category", category)
		}
		if !ok {
			return 0, exception.ErrDispatchLocked
		}
		defer func() {
			if sent == 0 {
				release()
			}
		}()
	}

	exchanges, err := d.source.Exchanges(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load exchanges").With("category", category)
	}

	tasks := BuildTasks(exchanges, category)
	if len(tasks) == 0 {
		return 0, bizerr.Business(exception.ErrDispatchNoTask, "dispatch "+category.String())
	}

	sent, err = d.publish(ctx, tasks)
	if err != nil {
		return sent, err
	}
	if sent == 0 {
		return 0, errors.Wrapf(exception.ErrDispatchNoSend, "category: %s, tasks: %d", category, len(tasks))
	}
	logs.Infof("dispatch %s, tasks: %d, published: %d", category, len(tasks), sent)
	return sent, nil
}

// publish streams tasks to the schedule topic, paced by the send interval.
// Failed sends are logged and do not stop the others.
func (d *Dispatcher) publish(ctx context.Context, tasks []model.ScheduleTask) (int, error) {
	var (
		wg      sync.WaitGroup
		sent    atomic.Int64
		limiter = rate.NewLimiter(rate.Every(d.cfg.SendInterval), 1)
	)
	for _, task := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			wg.Wait()
			return int(sent.Load()), errors.Wrap(err, "dispatch interrupted")
		}

		task.TranID = d.newID()
		task.ScheduleTime = d.now().UTC()
		value, err := broker.Encode(task)
		if err != nil {
			logs.Errorf("encode task, exchange: %d, err: %+v", task.ExchangeID, err)
			continue
		}

		wg.Add(1)
		d.producer.SendAsync([]byte(task.TranID), value, func(err error) {
			defer wg.Done()
			if err != nil {
				logs.Errorf("send task, exchange: %d(%s), tranId: %s, err: %+v", task.ExchangeID, task.ExchangeName, task.TranID, err)
				return
			}
			sent.Add(1)
		})
	}
	wg.Wait()
	return int(sent.Load()), nil
}
