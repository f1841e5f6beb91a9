package ring

import (
	"sync"

	"tickerflow/pkg/exception"
)

type slot[T any] struct {
	seq  int64
	item T
}

// Buffer is a bounded ring of power-of-two size. Publishers block while the
// ring is full; each published item is taken by exactly one consumer.
type Buffer[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	slots    []slot[T]
	mask     int64
	head     int64 // next sequence to take
	tail     int64 // next sequence to publish
	closed   bool
}

// NewBuffer creates a ring with size slots. size must be a power of two.
func NewBuffer[T any](size int) (*Buffer[T], error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, exception.ErrRingNotPowerOfTwo
	}
	b := &Buffer[T]{
		slots: make([]slot[T], size),
		mask:  int64(size - 1),
	}
	b.notEmpty = sync.NewCond(&b.mu)
	b.notFull = sync.NewCond(&b.mu)
	return b, nil
}

// Publish claims the next sequence for item, blocking until a slot is free.
func (b *Buffer[T]) Publish(item T) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.closed {
			return -1, exception.ErrRingShutdown
		}
		if b.tail-b.head < int64(len(b.slots)) {
			seq := b.tail
			b.slots[seq&b.mask] = slot[T]{seq: seq, item: item}
			b.tail++
			b.notEmpty.Signal()
			return seq, nil
		}
		b.notFull.Wait()
	}
}

// take removes the oldest item, blocking until one is available. It reports
// false once the ring is closed and fully drained.
func (b *Buffer[T]) take() (slot[T], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.head < b.tail {
			idx := b.head & b.mask
			s := b.slots[idx]
			var zero slot[T]
			b.slots[idx] = zero
			b.head++
			b.notFull.Signal()
			return s, true
		}
		if b.closed {
			return slot[T]{}, false
		}
		b.notEmpty.Wait()
	}
}

// Close rejects further publishes. Items already published remain takeable.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.notEmpty.Broadcast()
	b.notFull.Broadcast()
	b.mu.Unlock()
}

// Len returns the number of published items not yet taken.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	n := b.tail - b.head
	b.mu.Unlock()
	return int(n)
}

// Cap returns the number of slots.
func (b *Buffer[T]) Cap() int {
	return len(b.slots)
}

// Cursor returns the last published sequence, or -1 when nothing was published.
func (b *Buffer[T]) Cursor() int64 {
	b.mu.Lock()
	c := b.tail - 1
	b.mu.Unlock()
	return c
}
