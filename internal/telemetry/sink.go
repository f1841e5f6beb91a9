package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"tickerflow/internal/model"
	"tickerflow/pkg/exception"
)

// Store persists execution logs in batches.
type Store interface {
	SaveLogs(ctx context.Context, logs []*model.ExecutionLog) error
}

// Sink buffers execution logs and writes them to a Store in batches.
type Sink struct {
	cfg     Config
	store   Store
	metrics *Metrics
	ch      chan *model.ExecutionLog
	kick    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	started uint32
	closed  uint32
}

// NewSink creates a log sink. A nil store is allowed only when the sink is disabled.
func NewSink(cfg Config, store Store, metrics *Metrics) (*Sink, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Enable && store == nil {
		return nil, exception.ErrNilInstance
	}
	return &Sink{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		ch:      make(chan *model.ExecutionLog, cfg.QueueSize),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

// Enabled reports whether logs are persisted.
func (s *Sink) Enabled() bool {
	return s != nil && s.cfg.Enable
}

// Start runs the flush loop in a new goroutine.
func (s *Sink) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&s.started, 0, 1) {
		return exception.ErrAlreadyStart
	}
	if !s.cfg.Enable {
		logs.Info("database logs are not started")
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	logs.Infof("database logs started, queue: %d, batch: %d, interval: %s", s.cfg.QueueSize, s.cfg.BatchSize, s.cfg.FlushInterval)
	return nil
}

// Add enqueues a log without blocking. Logs are dropped when the queue is full.
func (s *Sink) Add(l *model.ExecutionLog) {
	if s == nil || l == nil {
		return
	}
	if !s.cfg.Enable {
		logs.Debugf("execution log: %+v", *l)
		return
	}
	if atomic.LoadUint32(&s.closed) != 0 {
		logs.Warnf("drop execution log, tranId: %s, err: %+v", l.TranID, exception.ErrSinkClosed)
		s.metrics.IncSinkDrop()
		return
	}

	select {
	case s.ch <- l:
	default:
		logs.Warnf("drop execution log, tranId: %s, err: %+v", l.TranID, exception.ErrSinkQueueFull)
		s.metrics.IncSinkDrop()
		return
	}

	if len(s.ch) > s.cfg.BatchSize {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of queued logs.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ch)
}

// Close stops the flush loop and writes every log still queued.
func (s *Sink) Close() error {
	if s == nil || !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return nil
	}
	close(s.stop)
	s.wg.Wait()
	if s.cfg.Enable {
		s.drain()
	}
	return nil
}

func (s *Sink) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.flush(s.cfg.BatchSize)
		case <-s.kick:
			for len(s.ch) >= s.cfg.BatchSize {
				if s.flush(s.cfg.BatchSize) == 0 {
					break
				}
			}
		}
	}
}

func (s *Sink) drain() {
	for s.flush(s.cfg.BatchSize) > 0 {
	}
}

// flush writes up to limit queued logs and returns how many were taken.
func (s *Sink) flush(limit int) int {
	batch := make([]*model.ExecutionLog, 0, min(limit, len(s.ch)))
loop:
	for len(batch) < limit {
		select {
		case l := <-s.ch:
			batch = append(batch, l)
		default:
			break loop
		}
	}
	if len(batch) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := s.store.SaveLogs(ctx, batch); err != nil {
		logs.Errorf("save execution logs, size: %d, err: %+v", len(batch), err)
		s.metrics.AddSinkFailure(len(batch))
	}
	return len(batch)
}
