package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/form-sender/formrunner/internal/config"
	"github.com/form-sender/formrunner/internal/worker"
)

type fakeTaskRunner struct {
	results []worker.TaskResult
	errs    []error
	calls   int64
}

func (f *fakeTaskRunner) RunOnce(ctx context.Context, targetDate time.Time, shardID, maxDaily *int) (worker.TaskResult, error) {
	i := atomic.AddInt64(&f.calls, 1) - 1
	if int(i) >= len(f.results) {
		return worker.TaskResult{Claimed: false}, nil
	}
	var err error
	if int(i) < len(f.errs) {
		err = f.errs[i]
	}
	return f.results[i], err
}

func TestRunnerStopsAtMaxProcessedBudget(t *testing.T) {
	task := &fakeTaskRunner{
		results: []worker.TaskResult{
			{Claimed: true, Success: true},
			{Claimed: true, Success: true},
			{Claimed: true, Success: true},
		},
	}
	r := New(Config{}, []WorkerSpec{{Task: task}}, 1, time.Now(), nil, nil, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Run(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, atomic.LoadInt64(&r.processed), int64(2))
}

func TestRunnerStopsOnShutdownContext(t *testing.T) {
	task := &fakeTaskRunner{} // always empty -> backs off
	r := New(Config{}, []WorkerSpec{{Task: task}}, 1, time.Now(), nil, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after shutdown context cancellation")
	}
}

func TestRunnerRecoversFromTaskError(t *testing.T) {
	task := &fakeTaskRunner{
		results: []worker.TaskResult{{}, {Claimed: true, Success: true}},
		errs:    []error{errors.New("transient"), nil},
	}
	r := New(Config{}, []WorkerSpec{{Task: task}}, 1, time.Now(), nil, nil, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Run(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, atomic.LoadInt64(&task.calls), int64(2))
}

func TestShardRotatorProbesUnshardedAfterEmptyWindow(t *testing.T) {
	shard := 3
	cfg := config.ShardRotationConfig{Enabled: true, EmptyWindowSec: 1, Random: false}
	r := newShardRotator(cfg, &shard, 8, 1)

	require.Equal(t, 3, *r.ShardID())

	now := time.Now()
	r.OnEmpty(now)
	require.Equal(t, 3, *r.ShardID(), "first empty just starts the window")

	r.OnEmpty(now.Add(2 * time.Second))
	require.Nil(t, r.ShardID(), "window elapsed: probe unsharded")

	r.OnEmpty(now.Add(4 * time.Second))
	require.NotNil(t, r.ShardID())
	require.Equal(t, 4, *r.ShardID(), "probe still empty: advance to next shard")
}

func TestShardRotatorOnClaimedResetsWindow(t *testing.T) {
	shard := 0
	cfg := config.ShardRotationConfig{Enabled: true, EmptyWindowSec: 1}
	r := newShardRotator(cfg, &shard, 4, 1)

	now := time.Now()
	r.OnEmpty(now)
	r.OnClaimed()
	r.OnEmpty(now.Add(2 * time.Second))
	require.Equal(t, 0, *r.ShardID(), "claim reset the empty window; no rotation yet")
}

func TestShardRotatorUnpinnedNeverRotates(t *testing.T) {
	cfg := config.ShardRotationConfig{Enabled: true, EmptyWindowSec: 1}
	r := newShardRotator(cfg, nil, 4, 1)
	r.OnEmpty(time.Now())
	r.OnEmpty(time.Now().Add(5 * time.Second))
	require.Nil(t, r.ShardID())
}

func TestSuccessCacheServesWithinTTL(t *testing.T) {
	counter := &fakeCounter{count: 2}
	cache := NewSuccessCache(counter, time.Minute)

	under, err := cache.UnderCap(context.Background(), 1, time.Now(), 5)
	require.NoError(t, err)
	require.True(t, under)
	require.Equal(t, int32(1), counter.calls)

	counter.count = 99 // source changes but cache should still serve stale value
	under, err = cache.UnderCap(context.Background(), 1, time.Now(), 5)
	require.NoError(t, err)
	require.True(t, under)
	require.Equal(t, int32(1), counter.calls)
}

func TestSuccessCacheRecordSuccessInvalidatesCap(t *testing.T) {
	counter := &fakeCounter{count: 4}
	cache := NewSuccessCache(counter, time.Minute)

	under, err := cache.UnderCap(context.Background(), 1, time.Now(), 5)
	require.NoError(t, err)
	require.True(t, under)

	cache.RecordSuccess(1)

	under, err = cache.UnderCap(context.Background(), 1, time.Now(), 5)
	require.NoError(t, err)
	require.False(t, under, "local increment should immediately reflect in the cap check")
}

func TestSuccessCacheUnlimitedWhenMaxDailyZero(t *testing.T) {
	counter := &fakeCounter{count: 1000}
	cache := NewSuccessCache(counter, time.Minute)
	under, err := cache.UnderCap(context.Background(), 1, time.Now(), 0)
	require.NoError(t, err)
	require.True(t, under)
	require.Equal(t, int32(0), counter.calls, "unlimited cap never consults the counter")
}

type fakeCounter struct {
	count int
	calls int32
}

func (f *fakeCounter) CountSuccessesToday(ctx context.Context, targetingID int64, day time.Time) (int, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.count, nil
}
