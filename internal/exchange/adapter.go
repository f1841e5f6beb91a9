package exchange

import (
	"context"
	"time"

	"tickerflow/internal/model"
	"tickerflow/pkg/httpx"
)

// Adapter fetches tickers of one exchange. A nil result with a nil error
// means the exchange has no data for the category.
type Adapter interface {
	ID() int
	Name() string
	FetchSpot(ctx context.Context, task model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error)
	FetchSwap(ctx context.Context, task model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error)
	FetchOptions(ctx context.Context, task model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error)
	FetchPerpetual(ctx context.Context, task model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error)
	FetchFutures(ctx context.Context, task model.ScheduleTask, trace *model.ExecutionLog) (*model.TickerResult, error)
}

// Deps are the collaborators shared by every adapter.
type Deps struct {
	HTTP *httpx.Client
	// UseProxy routes adapter calls through the configured proxy.
	UseProxy bool
	Now      func() time.Time
}

// Base implements the no-data defaults and the plumbing adapters share.
type Base struct {
	id       int
	name     string
	http     *httpx.Client
	useProxy bool
	now      func() time.Time
}

// NewBase creates the shared adapter part.
func NewBase(id int, name string, deps Deps) Base {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return Base{
		id:       id,
		name:     name,
		http:     deps.HTTP,
		useProxy: deps.UseProxy,
		now:      now,
	}
}

func (b Base) ID() int {
	return b.id
}

func (b Base) Name() string {
	return b.name
}

func (Base) FetchSpot(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error) {
	return nil, nil
}

func (Base) FetchSwap(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error) {
	return nil, nil
}

func (Base) FetchOptions(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error) {
	return nil, nil
}

func (Base) FetchPerpetual(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error) {
	return nil, nil
}

func (Base) FetchFutures(context.Context, model.ScheduleTask, *model.ExecutionLog) (*model.TickerResult, error) {
	return nil, nil
}

// get fetches url, through the proxy when enabled, recording traffic on trace.
func (b Base) get(ctx context.Context, url string, trace *model.ExecutionLog, headers ...httpx.Header) ([]byte, error) {
	if b.useProxy {
		if proxied := b.http.ProxyURL(url); proxied != "" {
			url = proxied
		}
	}
	return b.http.Get(ctx, url, recorder(trace), headers...)
}

// newResult starts a result owned by this exchange.
func (b Base) newResult(capacity int) *model.TickerResult {
	return &model.TickerResult{
		ExchangeID:   b.id,
		ExchangeName: b.name,
		UpdatedTime:  b.now().UTC(),
		Tickers:      make([]model.Ticker, 0, capacity),
	}
}

// recorder avoids handing a typed nil to the transport.
func recorder(trace *model.ExecutionLog) httpx.Recorder {
	if trace == nil {
		return nil
	}
	return trace
}
