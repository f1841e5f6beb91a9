package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickerflow/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	batches [][]*model.ExecutionLog
	err     error
}

func (s *fakeStore) SaveLogs(_ context.Context, items []*model.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]*model.ExecutionLog(nil), items...)
	s.batches = append(s.batches, cp)
	return s.err
}

func (s *fakeStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func newLog(tranID string) *model.ExecutionLog {
	return model.NewExecutionLog(model.ScheduleTask{ExchangeID: 270, TranID: tranID}, time.Now())
}

func TestSinkDisabledNeverWrites(t *testing.T) {
	store := &fakeStore{}
	sink, err := NewSink(Config{Enable: false}, store, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	for range 10 {
		sink.Add(newLog("t"))
	}
	require.NoError(t, sink.Close())
	require.Equal(t, 0, store.calls())
	require.Equal(t, 0, sink.Len())
}

func TestSinkEnabledRequiresStore(t *testing.T) {
	_, err := NewSink(Config{Enable: true}, nil, nil)
	require.Error(t, err)
}

func TestSinkCloseDrainsInBatches(t *testing.T) {
	store := &fakeStore{}
	sink, err := NewSink(Config{Enable: true, FlushInterval: time.Hour}, store, nil)
	require.NoError(t, err)

	for range 250 {
		sink.Add(newLog("t"))
	}
	require.NoError(t, sink.Close())

	require.Equal(t, 250, store.total())
	for _, b := range store.batches {
		if len(b) > defaultBatchSize {
			t.Fatalf("batch size %d exceeds %d", len(b), defaultBatchSize)
		}
	}
}

func TestSinkDropsWhenFull(t *testing.T) {
	metrics := NewMetrics()
	sink, err := NewSink(Config{Enable: true, QueueSize: 2}, &fakeStore{}, metrics)
	require.NoError(t, err)

	for range 5 {
		sink.Add(newLog("t"))
	}
	require.Equal(t, 2, sink.Len())
	require.Equal(t, uint64(3), metrics.Snapshot().SinkDrops)
}

func TestSinkFlushOnInterval(t *testing.T) {
	store := &fakeStore{}
	sink, err := NewSink(Config{Enable: true, FlushInterval: 10 * time.Millisecond}, store, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))
	defer sink.Close()

	for range 3 {
		sink.Add(newLog("t"))
	}
	require.Eventually(t, func() bool { return store.total() == 3 }, time.Second, 5*time.Millisecond)
}

func TestSinkEarlyFlushPastBatchSize(t *testing.T) {
	store := &fakeStore{}
	sink, err := NewSink(Config{Enable: true, BatchSize: 5, FlushInterval: time.Hour}, store, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))
	defer sink.Close()

	for range 6 {
		sink.Add(newLog("t"))
	}
	require.Eventually(t, func() bool { return store.total() >= 5 }, time.Second, 5*time.Millisecond)
}

func TestSinkStoreFailureDoesNotRequeue(t *testing.T) {
	metrics := NewMetrics()
	store := &fakeStore{err: errors.New("db down")}
	sink, err := NewSink(Config{Enable: true, FlushInterval: time.Hour}, store, metrics)
	require.NoError(t, err)

	for range 3 {
		sink.Add(newLog("t"))
	}
	require.NoError(t, sink.Close())
	require.Equal(t, 1, store.calls())
	require.Equal(t, 0, sink.Len())
	require.Equal(t, uint64(3), metrics.Snapshot().SinkFailures)
}

func TestSinkAddAfterCloseIsDropped(t *testing.T) {
	store := &fakeStore{}
	sink, err := NewSink(Config{Enable: true}, store, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	sink.Add(newLog("late"))
	require.Equal(t, 0, sink.Len())
	require.Equal(t, 0, store.calls())
}
