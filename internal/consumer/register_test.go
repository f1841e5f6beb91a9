package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickerflow/internal/broker"
)

func TestRegisterStartAndDestroy(t *testing.T) {
	var (
		mu        sync.Mutex
		consumers []*fakeConsumer
		clientIDs []string
	)
	factory := func(cfg broker.ConsumerConfig) (broker.Consumer, error) {
		mu.Lock()
		defer mu.Unlock()
		c := newFakeConsumer()
		consumers = append(consumers, c)
		clientIDs = append(clientIDs, cfg.ClientID)
		return c, nil
	}

	r := &fakeRing{}
	reg, err := NewRegister(r, factory, nil, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, reg.Start(context.Background(),
		Definition{Name: "spot", Config: broker.ConsumerConfig{Topic: "schedule", GroupID: "g", ClientID: "collector"}, Count: 2},
		Definition{Name: "perpetual", Config: broker.ConsumerConfig{Topic: "schedule-perp", GroupID: "g"}},
	))
	require.Len(t, reg.Loops(), 3)
	require.Equal(t, []string{"collector-0", "collector-1", ""}, clientIDs)

	reg.Destroy()
	for _, c := range consumers {
		require.True(t, c.closed.Load())
	}
	for _, l := range reg.Loops() {
		require.Equal(t, StateClosed, l.State())
	}
	require.True(t, r.shut.Load())

	require.Error(t, reg.Start(context.Background(), Definition{Name: "late"}))
}

func TestRegisterStartFailureClosesOpened(t *testing.T) {
	var opened []*fakeConsumer
	factory := func(cfg broker.ConsumerConfig) (broker.Consumer, error) {
		if len(opened) == 2 {
			return nil, errors.New("no brokers")
		}
		c := newFakeConsumer()
		opened = append(opened, c)
		return c, nil
	}

	reg, err := NewRegister(&fakeRing{}, factory, nil, 10*time.Millisecond)
	require.NoError(t, err)

	err = reg.Start(context.Background(), Definition{Name: "spot", Count: 3})
	require.Error(t, err)
	require.Empty(t, reg.Loops())
	for _, c := range opened {
		require.True(t, c.closed.Load())
	}
}

func TestNewRegisterRequiresDeps(t *testing.T) {
	_, err := NewRegister(nil, KafkaFactory, nil, 0)
	require.Error(t, err)
}
