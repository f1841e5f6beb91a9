package ring

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerflow/pkg/exception"
)

func TestNewBufferSize(t *testing.T) {
	testCases := []struct {
		desc string
		size int
		ok   bool
	}{
		{"one", 1, true},
		{"sixteen", 16, true},
		{"1024", 1024, true},
		{"zero", 0, false},
		{"negative", -8, false},
		{"not power of two", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			b, err := NewBuffer[int](tc.size)
			if !tc.ok {
				require.ErrorIs(t, err, exception.ErrRingNotPowerOfTwo)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.size, b.Cap())
		})
	}
}

func TestPublishBlocksWhenFull(t *testing.T) {
	buf, err := NewBuffer[int](16)
	require.NoError(t, err)

	var processed int32
	pool := NewPool(buf, 2, func(_ context.Context, _ int, _ int64) {
		atomic.AddInt32(&processed, 1)
	})

	for i := range 16 {
		seq, err := pool.Publish(i)
		require.NoError(t, err)
		assert.EqualValues(t, i, seq)
	}

	published := make(chan int64, 1)
	go func() {
		seq, err := pool.Publish(16)
		if err == nil {
			published <- seq
		}
	}()

	select {
	case <-published:
		t.Fatal("17th publish should block while workers are paused")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 16, buf.Len())

	require.NoError(t, pool.Start(t.Context()))
	select {
	case seq := <-published:
		assert.EqualValues(t, 16, seq)
	case <-time.After(time.Second):
		t.Fatal("17th publish should complete once a slot frees")
	}

	pool.Shutdown()
	assert.EqualValues(t, 17, atomic.LoadInt32(&processed))
}

func TestEachItemProcessedOnce(t *testing.T) {
	buf, err := NewBuffer[int](8)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[int]int)
	pool := NewPool(buf, 4, func(_ context.Context, item int, _ int64) {
		mu.Lock()
		seen[item]++
		mu.Unlock()
	})
	require.NoError(t, pool.Start(t.Context()))

	for i := range 500 {
		_, err := pool.Publish(i)
		require.NoError(t, err)
	}
	pool.Shutdown()

	require.Len(t, seen, 500)
	for item, n := range seen {
		if n != 1 {
			t.Fatalf("item %d processed %d times", item, n)
		}
	}
}

func TestPanicDoesNotStopWorkers(t *testing.T) {
	buf, err := NewBuffer[string](4)
	require.NoError(t, err)

	var done int32
	var panics []int64
	var mu sync.Mutex
	pool := NewPool(buf, 1, func(_ context.Context, item string, _ int64) {
		if item == "bad" {
			panic("bad task")
		}
		atomic.AddInt32(&done, 1)
	}).OnPanic(func(_ any, seq int64, item string) {
		mu.Lock()
		panics = append(panics, seq)
		mu.Unlock()
		assert.Equal(t, "bad", item)
	})
	require.NoError(t, pool.Start(t.Context()))

	for _, item := range []string{"ok", "bad", "ok", "ok"} {
		_, err := pool.Publish(item)
		require.NoError(t, err)
	}
	pool.Shutdown()

	assert.EqualValues(t, 3, atomic.LoadInt32(&done))
	assert.Equal(t, []int64{1}, panics)
}

func TestShutdownRejectsPublish(t *testing.T) {
	buf, err := NewBuffer[int](2)
	require.NoError(t, err)
	pool := NewPool(buf, 1, func(context.Context, int, int64) {})
	require.NoError(t, pool.Start(t.Context()))
	pool.Shutdown()

	_, err = pool.Publish(1)
	assert.ErrorIs(t, err, exception.ErrRingShutdown)
	assert.ErrorIs(t, pool.Start(t.Context()), exception.ErrRingStarted)
}

func TestShutdownDrainsInFlight(t *testing.T) {
	buf, err := NewBuffer[int](4)
	require.NoError(t, err)

	var done int32
	pool := NewPool(buf, 1, func(context.Context, int, int64) {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&done, 1)
	})
	require.NoError(t, pool.Start(t.Context()))
	for i := range 4 {
		_, err := pool.Publish(i)
		require.NoError(t, err)
	}
	pool.Shutdown()
	assert.EqualValues(t, 4, atomic.LoadInt32(&done))
}
