package worker

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickerflow/internal/broker"
	"tickerflow/internal/exchange"
	"tickerflow/internal/model"
	"tickerflow/internal/model/enum"
	"tickerflow/internal/telemetry"
	"tickerflow/pkg/exception"
)

// Resolver finds the adapter of an exchange.
type Resolver interface {
	Lookup(id int) (exchange.Adapter, error)
}

// Publisher sends a result downstream.
type Publisher interface {
	Publish(result *model.TickerResult) (int, error)
}

// Sink receives finished execution logs.
type Sink interface {
	Add(l *model.ExecutionLog)
}

// Worker runs one schedule task at a time against its exchange adapter.
type Worker struct {
	resolver  Resolver
	publisher Publisher
	sink      Sink
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// Option customizes a Worker.
type Option func(*Worker)

// WithMetrics records task outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// New creates a worker.
func New(resolver Resolver, publisher Publisher, sink Sink, opts ...Option) (*Worker, error) {
	if resolver == nil || publisher == nil || sink == nil {
		return nil, exception.ErrNilInstance
	}
	w := &Worker{
		resolver:  resolver,
		publisher: publisher,
		sink:      sink,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Handle is the ring handler: it processes task to completion.
func (w *Worker) Handle(ctx context.Context, task model.ScheduleTask, seq int64) {
	if err := w.Process(ctx, task); err != nil {
		logs.Errorf("process task, seq: %d, exchange: %d(%s), type: %s, tranId: %s, err: %+v",
			seq, task.ExchangeID, task.ExchangeName, task.Type, task.TranID, err)
	}
}

// Process fetches, normalizes and publishes the tickers of task. The execution
// log is always handed to the sink, whatever the outcome.
func (w *Worker) Process(ctx context.Context, task model.ScheduleTask) (err error) {
	trace := model.NewExecutionLog(task, w.now())
	noData := false
	defer func() {
		trace.Finish(w.now())
		w.sink.Add(trace)
		w.metrics.ObserveTask(err, noData, w.now().Sub(trace.StartedAt()))
	}()

	adapter, err := w.resolver.Lookup(task.ExchangeID)
	if err != nil {
		trace.Fail(err)
		return err
	}

	start := w.now()
	result, err := w.fetch(ctx, adapter, task, trace)
	w.metrics.ObserveAdapter(w.now().Sub(start))
	if err != nil {
		trace.MarkError(err)
		return err
	}
	if result == nil || result.Len() == 0 {
		noData = true
		logs.Debugf("no data, exchange: %d(%s), type: %s, tranId: %s", task.ExchangeID, task.ExchangeName, task.Type, task.TranID)
		return nil
	}

	now := w.now().UTC()
	if result.ExchangeID == 0 {
		result.ExchangeID = task.ExchangeID
		result.ExchangeName = task.ExchangeName
	}
	result.TranID = task.TranID
	result.DataType = task.Type
	result.PushTime = now
	if result.UpdatedTime.IsZero() {
		result.UpdatedTime = now
	}

	snapshot, err := broker.Encode(result)
	if err != nil {
		trace.MarkError(err)
		return err
	}
	trace.MarkResult(string(snapshot), now)

	if _, err = w.publisher.Publish(result); err != nil {
		trace.MarkError(err)
		return err
	}
	return nil
}

// fetch routes task to the adapter operation of its category. A panicking
// adapter is reported as an error of this task.
func (w *Worker) fetch(ctx context.Context, a exchange.Adapter, task model.ScheduleTask, trace *model.ExecutionLog) (result *model.TickerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("adapter panic: %v", r)
		}
	}()

	switch task.Type {
	case enum.CategorySpot:
		return a.FetchSpot(ctx, task, trace)
	case enum.CategoryPerpetual:
		result, err = a.FetchPerpetual(ctx, task, trace)
		if err != nil || (result != nil && result.Len() != 0) {
			return result, err
		}
		return a.FetchSwap(ctx, task, trace)
	case enum.CategoryOption:
		return a.FetchOptions(ctx, task, trace)
	case enum.CategoryFuture:
		return a.FetchFutures(ctx, task, trace)
	case enum.CategoryOrderBook:
		return nil, nil
	default:
		return nil, errors.Wrapf(exception.ErrExchangeUnsupported, "category: %q", task.Type)
	}
}
