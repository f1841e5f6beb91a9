package ring

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"tickerflow/pkg/exception"
)

// Handler processes one item taken from the ring.
type Handler[T any] func(ctx context.Context, item T, seq int64)

// PanicHandler observes a panic raised by a Handler.
type PanicHandler[T any] func(recovered any, seq int64, item T)

// Pool drains a Buffer with a fixed number of workers.
type Pool[T any] struct {
	buf     *Buffer[T]
	workers int
	handle  Handler[T]
	onPanic PanicHandler[T]
	wg      sync.WaitGroup

	started uint32
	stopped uint32
}

// NewPool binds workers to buf. The pool does not consume until Start.
func NewPool[T any](buf *Buffer[T], workers int, handle Handler[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T]{
		buf:     buf,
		workers: workers,
		handle:  handle,
		onPanic: logPanic[T],
	}
}

// OnPanic replaces the default panic handler, which logs the item and sequence.
func (p *Pool[T]) OnPanic(h PanicHandler[T]) *Pool[T] {
	if h != nil {
		p.onPanic = h
	}
	return p
}

// Start runs the workers.
func (p *Pool[T]) Start(ctx context.Context) error {
	if p == nil || p.buf == nil || p.handle == nil {
		return exception.ErrNilInstance
	}
	if !atomic.CompareAndSwapUint32(&p.started, 0, 1) {
		return exception.ErrRingStarted
	}
	p.wg.Add(p.workers)
	for range p.workers {
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return nil
}

// Publish hands item to the ring, blocking while it is full.
func (p *Pool[T]) Publish(item T) (int64, error) {
	if p == nil || p.buf == nil {
		return -1, exception.ErrNilInstance
	}
	return p.buf.Publish(item)
}

// Shutdown closes the ring and waits until every published item is processed.
func (p *Pool[T]) Shutdown() {
	if p == nil || p.buf == nil {
		return
	}
	if !atomic.CompareAndSwapUint32(&p.stopped, 0, 1) {
		return
	}
	p.buf.Close()
	if atomic.LoadUint32(&p.started) == 1 {
		p.wg.Wait()
	}
}

func (p *Pool[T]) run(ctx context.Context) {
	for {
		s, ok := p.buf.take()
		if !ok {
			return
		}
		p.process(ctx, s)
	}
}

func (p *Pool[T]) process(ctx context.Context, s slot[T]) {
	defer func() {
		if r := recover(); r != nil {
			p.onPanic(r, s.seq, s.item)
		}
	}()
	p.handle(ctx, s.item, s.seq)
}

func logPanic[T any](recovered any, seq int64, item T) {
	logs.Errorf("ring worker panic, sequence: %d, item: %+v, err: %+v\n%s", seq, item, recovered, debug.Stack())
}
