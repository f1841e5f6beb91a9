package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/internal/broker"
	"tickerflow/internal/telemetry"
	"tickerflow/pkg/exception"
)

// Ring is the work buffer the loops feed.
type Ring interface {
	Publisher
	Shutdown()
}

// Definition declares Count consumers of one topic in one group.
type Definition struct {
	Name   string
	Config broker.ConsumerConfig
	Count  int
}

// Factory opens a broker consumer.
type Factory func(cfg broker.ConsumerConfig) (broker.Consumer, error)

// KafkaFactory opens kafka-go group consumers.
func KafkaFactory(cfg broker.ConsumerConfig) (broker.Consumer, error) {
	return broker.NewKafkaConsumer(cfg)
}

// Register owns every consumption loop of the process and the ring they feed.
type Register struct {
	ring        Ring
	factory     Factory
	metrics     *telemetry.Metrics
	pollTimeout time.Duration

	mu        sync.Mutex
	loops     []*Loop
	wg        sync.WaitGroup
	destroyed bool
}

// NewRegister creates a register feeding ring.
func NewRegister(ring Ring, factory Factory, metrics *telemetry.Metrics, pollTimeout time.Duration) (*Register, error) {
	if ring == nil || factory == nil {
		return nil, exception.ErrNilInstance
	}
	return &Register{
		ring:        ring,
		factory:     factory,
		metrics:     metrics,
		pollTimeout: pollTimeout,
	}, nil
}

// Start opens and runs the consumers of every definition, each on its own
// goroutine. Consumers already opened are closed when one fails to open.
func (r *Register) Start(ctx context.Context, defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return exception.ErrConsumerClosed
	}

	var started []*Loop
	for _, def := range defs {
		count := max(def.Count, 1)
		for i := range count {
			cfg := def.Config
			if count > 1 && cfg.ClientID != "" {
				cfg.ClientID = fmt.Sprintf("%s-%d", cfg.ClientID, i)
			}
			c, err := r.factory(cfg)
			if err != nil {
				for _, l := range started {
					_ = l.consumer.Close()
				}
				return errors.Wrap(err, "open consumer").With("name", def.Name).With("topic", cfg.Topic)
			}
			l := NewLoop(fmt.Sprintf("%s-%d", def.Name, i), c, r.ring, WithPollTimeout(r.pollTimeout), WithMetrics(r.metrics))
			started = append(started, l)
		}
	}

	for _, l := range started {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := l.Run(ctx); err != nil {
				logs.Errorf("consumer %s run, err: %+v", l.Name(), err)
			}
		}()
	}
	r.loops = append(r.loops, started...)
	logs.Infof("%d consumers started", len(started))
	return nil
}

// Loops returns the registered loops.
func (r *Register) Loops() []*Loop {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Loop(nil), r.loops...)
}

// Destroy stops every loop, waits for them to close their consumers and then
// shuts the ring down, draining in-flight tasks.
func (r *Register) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	loops := r.loops
	r.mu.Unlock()

	for _, l := range loops {
		l.Shutdown()
	}
	r.wg.Wait()
	r.ring.Shutdown()
	logs.Info("consumers destroyed")
}
