package bus

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/yanun0323/logs"
)

// Pool runs submitted jobs on a fixed number of goroutines fed by a bounded
// backlog. Submissions beyond the backlog are rejected.
type Pool struct {
	name    string
	queue   *Queue[func()]
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped sync.Once
}

// NewPool allocates a pool with the given worker count and backlog.
func NewPool(name string, workers, backlog int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		name:  name,
		queue: NewQueue[func()](backlog),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			p.queue.Run(ctx, p.invoke)
		}()
	}
	return p
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job func()) error {
	if p == nil {
		return ErrQueueClosed
	}
	return p.queue.TryPublish(job)
}

// Pending returns the number of jobs waiting for a worker.
func (p *Pool) Pending() int {
	if p == nil {
		return 0
	}
	return p.queue.Len()
}

// Shutdown stops accepting jobs and waits for queued jobs to finish.
func (p *Pool) Shutdown() {
	if p == nil {
		return
	}
	p.stopped.Do(func() {
		p.queue.Close()
		p.wg.Wait()
		p.cancel()
	})
}

func (p *Pool) invoke(job func()) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("%s pool job panic, err: %+v\n%s", p.name, r, debug.Stack())
		}
	}()
	job()
}
