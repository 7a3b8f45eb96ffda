// Package metrics provides the lightweight, in-process counters the
// runner and worker increment during a run, surfaced through
// structured logs rather than a scrape endpoint (SPEC_FULL.md's
// ambient observability stack explicitly scopes this out of a full
// metrics/tracing system). Grounded on the teacher's
// internal/core/shards/spawn_queue.go atomic-counter + GetMetrics()
// snapshot idiom.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/form-sender/formrunner/internal/logging"
)

// Counters tracks run-wide totals across every worker goroutine. The
// scalar fields are accessed only through atomic operations so workers
// can increment concurrently without a lock; the per-code breakdown
// uses a small mutex since it is read far less often than it's written.
type Counters struct {
	claimed      int64
	claimEmpty   int64
	succeeded    int64
	failed       int64
	retried      int64
	botDetected  int64
	prohibited   int64
	staleRequeue int64

	codeMu sync.Mutex
	byCode map[string]int64
}

// New constructs a zeroed counter set.
func New() *Counters {
	return &Counters{byCode: make(map[string]int64)}
}

func (c *Counters) IncClaimed()      { atomic.AddInt64(&c.claimed, 1) }
func (c *Counters) IncClaimEmpty()   { atomic.AddInt64(&c.claimEmpty, 1) }
func (c *Counters) IncSucceeded()    { atomic.AddInt64(&c.succeeded, 1) }
func (c *Counters) IncRetried()      { atomic.AddInt64(&c.retried, 1) }
func (c *Counters) IncBotDetected()  { atomic.AddInt64(&c.botDetected, 1) }
func (c *Counters) IncProhibited()   { atomic.AddInt64(&c.prohibited, 1) }
func (c *Counters) IncStaleRequeue(n int64) {
	atomic.AddInt64(&c.staleRequeue, n)
}

// IncFailed records a non-success outcome under its error code, so the
// periodic snapshot can show a breakdown without a full metrics
// backend.
func (c *Counters) IncFailed(code string) {
	atomic.AddInt64(&c.failed, 1)
	c.codeMu.Lock()
	c.byCode[code]++
	c.codeMu.Unlock()
}

// Snapshot is a point-in-time read of every counter, safe to log or
// compare across intervals.
type Snapshot struct {
	Claimed        int64
	ClaimEmpty     int64
	Succeeded      int64
	Failed         int64
	Retried        int64
	BotDetected    int64
	Prohibited     int64
	StaleRequeue   int64
	FailuresByCode map[string]int64
}

// Snapshot reads every counter atomically.
func (c *Counters) Snapshot() Snapshot {
	c.codeMu.Lock()
	byCode := make(map[string]int64, len(c.byCode))
	for k, v := range c.byCode {
		byCode[k] = v
	}
	c.codeMu.Unlock()

	return Snapshot{
		Claimed:        atomic.LoadInt64(&c.claimed),
		ClaimEmpty:     atomic.LoadInt64(&c.claimEmpty),
		Succeeded:      atomic.LoadInt64(&c.succeeded),
		Failed:         atomic.LoadInt64(&c.failed),
		Retried:        atomic.LoadInt64(&c.retried),
		BotDetected:    atomic.LoadInt64(&c.botDetected),
		Prohibited:     atomic.LoadInt64(&c.prohibited),
		StaleRequeue:   atomic.LoadInt64(&c.staleRequeue),
		FailuresByCode: byCode,
	}
}

// LogPeriodic emits a single structured log line every interval until
// stop is closed, summarizing the run so far. Intended to be started
// once per runner process.
func (c *Counters) LogPeriodic(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log := logging.For(logging.CategoryWorker)

	for {
		select {
		case <-stop:
			c.logSnapshot(log, "metrics_final")
			return
		case <-ticker.C:
			c.logSnapshot(log, "metrics_snapshot")
		}
	}
}

func (c *Counters) logSnapshot(log *zap.Logger, event string) {
	s := c.Snapshot()
	log.Info(event,
		zap.Int64("claimed", s.Claimed),
		zap.Int64("claim_empty", s.ClaimEmpty),
		zap.Int64("succeeded", s.Succeeded),
		zap.Int64("failed", s.Failed),
		zap.Int64("retried", s.Retried),
		zap.Int64("bot_detected", s.BotDetected),
		zap.Int64("prohibited", s.Prohibited),
		zap.Int64("stale_requeue", s.StaleRequeue),
		zap.Any("failures_by_code", s.FailuresByCode),
	)
}
