// Package runner implements the orchestrator (spec.md §4.20): spawns
// N workers (1-4, clamped), each running an independent claim loop
// with exponential backoff + jitter on empty claims, shard rotation,
// a worker-0-only periodic stale-requeue sweep, and tenant
// daily-success-cap enforcement via a short-TTL cache. Grounded on the
// teacher's internal/core/shards/spawn_queue.go worker-pool idiom
// (per-worker goroutine loop, atomic counters, capped exponential
// backoff with jitter) adapted from a single in-process spawn queue to
// N independent per-worker claim loops against a remote queue, fanned
// out with golang.org/x/sync/errgroup in place of a bare
// WaitGroup so a future hard failure in one worker has somewhere to
// surface instead of being silently swallowed.
package runner

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/form-sender/formrunner/internal/config"
	"github.com/form-sender/formrunner/internal/logging"
	"github.com/form-sender/formrunner/internal/worker"
)

// TaskRunner is the subset of *worker.Worker the runner drives per
// loop iteration.
type TaskRunner interface {
	RunOnce(ctx context.Context, targetDate time.Time, shardID, maxDaily *int) (worker.TaskResult, error)
}

// StaleRequeuer performs the periodic stale-assignment sweep
// worker 0 runs (spec.md §4.20).
type StaleRequeuer interface {
	RequeueStaleAssigned(ctx context.Context, targetDate time.Time, targetingID int64, staleMinutes int) (int, error)
}

// WorkerSpec is everything the runner needs to build and drive one
// worker slot.
type WorkerSpec struct {
	Task        TaskRunner
	PinnedShard *int
}

// Config bounds the orchestrator's own behavior, independent of any
// one worker's settings.
type Config struct {
	ShardRotation config.ShardRotationConfig
	NumShards     int // 0 = unbounded sequential increment, no wraparound
	MaxDaily      *int
	HardWatchdog  time.Duration
}

// Runner fans a claim loop out across N worker slots.
type Runner struct {
	cfg         Config
	workers     []WorkerSpec
	targetingID int64
	targetDate  time.Time
	queue       StaleRequeuer
	successCap  *SuccessCache

	maxProcessed int64 // 0 = unbounded; shared budget across all workers
	processed    int64
}

// New builds a Runner. maxProcessed<=0 means no global cap on
// companies processed (spec.md's --max-processed CLI flag plumbs this
// through).
func New(cfg Config, workers []WorkerSpec, targetingID int64, targetDate time.Time, queue StaleRequeuer, successCap *SuccessCache, maxProcessed int) *Runner {
	return &Runner{
		cfg:          cfg,
		workers:      workers,
		targetingID:  targetingID,
		targetDate:   targetDate,
		queue:        queue,
		successCap:   successCap,
		maxProcessed: int64(maxProcessed),
	}
}

// Run drives every worker slot until shutdownCtx is cancelled or the
// max-processed budget is exhausted. On SIGTERM/SIGINT (shutdownCtx
// cancellation, per spec.md §5) each worker finishes its in-flight
// company before returning — the cancellation is only observed
// between tasks, never injected into a running task's own context.
func (r *Runner) Run(shutdownCtx context.Context) error {
	var g errgroup.Group
	for i, spec := range r.workers {
		id, spec := i, spec
		g.Go(func() error {
			return r.workerLoop(shutdownCtx, id, spec)
		})
	}

	if len(r.workers) > 0 && r.cfg.ShardRotation.StaleRequeueEveryMin > 0 && r.queue != nil {
		g.Go(func() error {
			r.staleRequeueLoop(shutdownCtx)
			return nil
		})
	}

	return g.Wait()
}

// workerLoop drives one worker's claim loop until shutdownCtx is
// cancelled or the shared budget is exhausted. It never returns a
// non-nil error itself (task errors are logged and retried with
// backoff) but reports one via the errgroup so a future hard failure
// mode has somewhere to surface.
func (r *Runner) workerLoop(shutdownCtx context.Context, id int, spec WorkerSpec) error {
	log := logging.For(logging.CategoryWorker)
	rotator := newShardRotator(r.cfg.ShardRotation, spec.PinnedShard, r.cfg.NumShards, int64(id)+time.Now().UnixNano())

	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for {
		if shutdownCtx.Err() != nil {
			return nil
		}
		if r.budgetExhausted() {
			return nil
		}
		if r.successCap != nil && r.cfg.MaxDaily != nil {
			if under, err := r.successCap.UnderCap(shutdownCtx, r.targetingID, r.targetDate, *r.cfg.MaxDaily); err == nil && !under {
				return nil
			}
		}

		taskCtx, cancel := r.taskContext()
		result, err := spec.Task.RunOnce(taskCtx, r.targetDate, rotator.ShardID(), r.cfg.MaxDaily)
		cancel()

		if err != nil {
			log.Warn("worker task error", zap.Int("worker_id", id), zap.Error(err))
			if !sleepWithJitter(shutdownCtx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		if !result.Claimed {
			rotator.OnEmpty(time.Now())
			if !sleepWithJitter(shutdownCtx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		rotator.OnClaimed()
		backoff = 500 * time.Millisecond
		atomic.AddInt64(&r.processed, 1)
		if result.Success && r.successCap != nil {
			r.successCap.RecordSuccess(r.targetingID)
		}
	}
}

func (r *Runner) budgetExhausted() bool {
	if r.maxProcessed <= 0 {
		return false
	}
	return atomic.LoadInt64(&r.processed) >= r.maxProcessed
}

// taskContext derives a fresh per-company context bounded by the hard
// watchdog, independent of the shutdown context so an in-flight
// company is never aborted by SIGTERM/SIGINT (spec.md §5).
func (r *Runner) taskContext() (context.Context, context.CancelFunc) {
	watchdog := r.cfg.HardWatchdog
	if watchdog <= 0 {
		watchdog = 180 * time.Second
	}
	return context.WithTimeout(context.Background(), watchdog)
}

func (r *Runner) staleRequeueLoop(shutdownCtx context.Context) {
	interval := time.Duration(r.cfg.ShardRotation.StaleRequeueEveryMin) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	staleMinutes := r.cfg.ShardRotation.StaleThresholdMin
	if staleMinutes <= 0 {
		staleMinutes = 15
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log := logging.For(logging.CategoryWorker)

	for {
		select {
		case <-shutdownCtx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := r.queue.RequeueStaleAssigned(ctx, r.targetDate, r.targetingID, staleMinutes)
			cancel()
			if err != nil {
				log.Warn("stale requeue sweep failed", zap.Error(err))
				continue
			}
			if count > 0 {
				log.Info("stale requeue sweep reclaimed entries", zap.Int("count", count))
			}
		}
	}
}

// sleepWithJitter sleeps for base +/- up to 50% jitter, returning false if
// shutdownCtx is cancelled first.
func sleepWithJitter(shutdownCtx context.Context, base time.Duration) bool {
	jitter := time.Duration(rand.Int63n(int64(base) / 2 + 1))
	if rand.Intn(2) == 0 {
		base += jitter
	} else {
		base -= jitter
	}
	select {
	case <-shutdownCtx.Done():
		return false
	case <-time.After(base):
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
