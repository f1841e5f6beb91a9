package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]any
	setErr error
}

func (r *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if r.setErr != nil {
		return redis.NewBoolResult(false, r.setErr)
	}
	if _, ok := r.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	r.values[key] = value
	return redis.NewBoolResult(true, nil)
}

func (r *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	if r.values[keys[0]] == args[0] {
		delete(r.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (r *fakeRedis) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.EvalSha(ctx, "", keys, args...)
}

func (r *fakeRedis) EvalRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.EvalSha(ctx, "", keys, args...)
}

func (r *fakeRedis) EvalShaRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.EvalSha(ctx, "", keys, args...)
}

func (r *fakeRedis) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (r *fakeRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisLocker(t *testing.T) {
	client := &fakeRedis{values: map[string]any{}}
	locker := NewRedisLocker(client)

	release, ok, err := locker.Acquire(context.Background(), "tickerflow:dispatch:Spot", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(context.Background(), "tickerflow:dispatch:Spot", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	release()
	require.Empty(t, client.values)

	_, ok, err = locker.Acquire(context.Background(), "tickerflow:dispatch:Spot", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockerError(t *testing.T) {
	locker := NewRedisLocker(&fakeRedis{values: map[string]any{}, setErr: errors.New("connection refused")})
	_, ok, err := locker.Acquire(context.Background(), "k", time.Minute)
	require.Error(t, err)
	require.False(t, ok)
}
