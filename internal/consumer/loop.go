package consumer

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"tickerflow/internal/broker"
	"tickerflow/internal/model"
	"tickerflow/internal/telemetry"
	"tickerflow/pkg/exception"
)

const defaultPollTimeout = 500 * time.Millisecond

// State is the lifecycle phase of a Loop.
type State int32

const (
	StateStarting State = iota
	StatePolling
	StateProcessing
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StatePolling:
		return "POLLING"
	case StateProcessing:
		return "PROCESSING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Publisher accepts tasks for the workers, blocking while they are saturated.
type Publisher interface {
	Publish(task model.ScheduleTask) (int64, error)
}

// Loop polls a schedule topic and hands every task to the ring. Each message
// is committed right after the hand-off.
type Loop struct {
	name        string
	consumer    broker.Consumer
	ring        Publisher
	metrics     *telemetry.Metrics
	pollTimeout time.Duration

	state    atomic.Int32
	shutdown atomic.Bool
	done     chan struct{}
}

// Option customizes a Loop.
type Option func(*Loop)

// WithPollTimeout overrides the poll timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.pollTimeout = d
		}
	}
}

// WithMetrics records commit failures.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// NewLoop creates a loop. The loop owns consumer and closes it on exit.
func NewLoop(name string, consumer broker.Consumer, ring Publisher, opts ...Option) *Loop {
	l := &Loop{
		name:        name,
		consumer:    consumer,
		ring:        ring,
		pollTimeout: defaultPollTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.name
}

// State returns the current lifecycle phase.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Done is closed once the loop has exited and closed its consumer.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Shutdown asks the loop to stop and interrupts a blocked poll.
func (l *Loop) Shutdown() {
	if l.shutdown.Swap(true) {
		return
	}
	l.setState(StateShuttingDown)
	l.consumer.Wakeup()
}

// Run polls until Shutdown is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if l.consumer == nil || l.ring == nil {
		close(l.done)
		return exception.ErrNilInstance
	}
	defer func() {
		if err := l.consumer.Close(); err != nil {
			logs.Errorf("consumer %s close, err: %+v", l.name, err)
		}
		l.setState(StateClosed)
		close(l.done)
		logs.Infof("consumer %s closed", l.name)
	}()

	logs.Infof("consumer %s started", l.name)
	for !l.shutdown.Load() {
		if ctx.Err() != nil {
			break
		}
		l.setState(StatePolling)
		err := l.pollOnce(ctx)
		switch {
		case err == nil:
		case errors.Is(err, exception.ErrConsumerWakeup):
		case errors.Is(err, exception.ErrConsumerClosed), errors.Is(err, exception.ErrRingShutdown):
			logs.Warnf("consumer %s stops, err: %+v", l.name, err)
			l.shutdown.Store(true)
		default:
			logs.Errorf("consumer %s poll, err: %+v", l.name, err)
			l.pause(ctx)
		}
	}
	l.setState(StateShuttingDown)
	return nil
}

// pollOnce runs one poll iteration. A panic ends only this iteration.
func (l *Loop) pollOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("consumer %s recovered from panic: %v\n%s", l.name, r, debug.Stack())
			err = nil
		}
	}()

	// Messages returned next to an error were already consumed and later
	// commits would skip them, so they are handled before the error.
	batch, err := l.consumer.Poll(ctx, l.pollTimeout)
	if batch.Len() == 0 {
		return err
	}

	l.setState(StateProcessing)
	for _, records := range batch.Partitions {
		for _, msg := range records.Messages {
			if herr := l.handle(msg); herr != nil {
				return herr
			}
		}
	}
	return err
}

// handle hands msg to the ring and requests its commit. Malformed payloads
// are committed and dropped.
func (l *Loop) handle(msg broker.Message) error {
	var task model.ScheduleTask
	if err := broker.Decode(msg.Value, &task); err != nil {
		logs.Errorf("consumer %s drop malformed task %s[%d]@%d, err: %+v", l.name, msg.Topic, msg.Partition, msg.Offset, err)
	} else if _, err := l.ring.Publish(task); err != nil {
		return err
	}
	l.consumer.CommitAsync(broker.CommitOf(msg), l.onCommit)
	return nil
}

func (l *Loop) onCommit(c broker.Commit, err error) {
	if err == nil {
		return
	}
	l.metrics.IncCommitFailure()
	logs.Errorf("consumer %s commit %s[%d]@%d failed, err: %+v", l.name, c.Topic, c.Partition, c.Offset, err)
}

func (l *Loop) pause(ctx context.Context) {
	t := time.NewTimer(l.pollTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (l *Loop) setState(s State) {
	for {
		cur := l.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if State(cur) == StateShuttingDown && s != StateClosed {
			return
		}
		if l.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}
