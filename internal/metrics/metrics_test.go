package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountersSnapshotReflectsIncrements(t *testing.T) {
	c := New()
	c.IncClaimed()
	c.IncClaimed()
	c.IncSucceeded()
	c.IncFailed("TIMEOUT")
	c.IncFailed("TIMEOUT")
	c.IncFailed("BOT_DETECTED")
	c.IncRetried()
	c.IncBotDetected()
	c.IncProhibited()
	c.IncStaleRequeue(3)
	c.IncClaimEmpty()

	s := c.Snapshot()
	require.Equal(t, int64(2), s.Claimed)
	require.Equal(t, int64(1), s.ClaimEmpty)
	require.Equal(t, int64(1), s.Succeeded)
	require.Equal(t, int64(3), s.Failed)
	require.Equal(t, int64(1), s.Retried)
	require.Equal(t, int64(1), s.BotDetected)
	require.Equal(t, int64(1), s.Prohibited)
	require.Equal(t, int64(3), s.StaleRequeue)
	require.Equal(t, int64(2), s.FailuresByCode["TIMEOUT"])
	require.Equal(t, int64(1), s.FailuresByCode["BOT_DETECTED"])
}

func TestCountersConcurrentIncrementsAreRaceFree(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncClaimed()
			c.IncFailed("SYSTEM")
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	require.Equal(t, int64(50), s.Claimed)
	require.Equal(t, int64(50), s.Failed)
	require.Equal(t, int64(50), s.FailuresByCode["SYSTEM"])
}

func TestLogPeriodicStopsOnSignal(t *testing.T) {
	c := New()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.LogPeriodic(10*time.Millisecond, stop)
		close(done)
	}()
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogPeriodic did not stop after signal")
	}
}
