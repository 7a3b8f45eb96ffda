package runner

import (
	"math/rand"
	"time"

	"github.com/form-sender/formrunner/internal/config"
)

// shardRotator tracks one worker goroutine's shard-claim state (spec.md
// §4.20): a worker pinned to a shard that finds no work for a
// configured window first probes the unsharded claim, then — if still
// empty and rotation is enabled — advances to the next shard id.
type shardRotator struct {
	cfg        config.ShardRotationConfig
	pinned     *int
	current    *int
	numShards  int
	emptySince time.Time
	probed     bool
	rnd        *rand.Rand
}

func newShardRotator(cfg config.ShardRotationConfig, pinnedShard *int, numShards int, rndSeed int64) *shardRotator {
	var current *int
	if pinnedShard != nil {
		v := *pinnedShard
		current = &v
	}
	return &shardRotator{
		cfg:       cfg,
		pinned:    pinnedShard,
		current:   current,
		numShards: numShards,
		rnd:       rand.New(rand.NewSource(rndSeed)),
	}
}

// ShardID returns the shard id to claim against right now.
func (r *shardRotator) ShardID() *int {
	return r.current
}

// OnEmpty records an empty claim result and rotates state per spec.md
// §4.20's window/probe/advance sequence. Only pinned workers rotate;
// an unpinned worker keeps claiming unsharded forever.
func (r *shardRotator) OnEmpty(now time.Time) {
	if r.pinned == nil {
		return
	}
	if r.emptySince.IsZero() {
		r.emptySince = now
		return
	}
	windowSec := r.cfg.EmptyWindowSec
	if windowSec <= 0 {
		windowSec = 120
	}
	if now.Sub(r.emptySince) < time.Duration(windowSec)*time.Second {
		return
	}

	if !r.probed {
		// Probe the unsharded claim once the empty window elapses.
		r.current = nil
		r.probed = true
		r.emptySince = now
		return
	}

	if !r.cfg.Enabled {
		// Rotation disabled: fall back to the pinned shard and keep waiting.
		v := *r.pinned
		r.current = &v
		r.probed = false
		r.emptySince = now
		return
	}

	r.advance()
	r.probed = false
	r.emptySince = now
}

// OnClaimed resets the empty-window tracking once work is found.
func (r *shardRotator) OnClaimed() {
	r.emptySince = time.Time{}
	r.probed = false
}

func (r *shardRotator) advance() {
	var next int
	if r.cfg.Random && r.numShards > 0 {
		next = r.rnd.Intn(r.numShards)
	} else {
		base := 0
		if r.current != nil {
			base = *r.current
		} else if r.pinned != nil {
			base = *r.pinned
		}
		next = base + 1
		if r.numShards > 0 {
			next = next % r.numShards
		}
	}
	r.current = &next
}
