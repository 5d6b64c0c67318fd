// Package gc runs chain garbage collection in the background of a node.
package gc

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/engine"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/module/component"
	"github.com/shardchain/node/module/irrecoverable"
	storagegc "github.com/shardchain/node/storage/gc"
	"github.com/shardchain/node/storage/trie"
)

// Engine runs one garbage collection pass every GCStepPeriod, and one right
// after a new head is announced. A failed pass is logged and retried on the
// next step; only exceptions from the storage layer stop the engine.
//
// Archival nodes keep blocks and state and only thin out chunk data.
type Engine struct {
	*component.ComponentManager
	log       zerolog.Logger
	cfg       config.GCConfig
	archive   bool
	collector *storagegc.Collector
	epochs    module.EpochManager
	tracker   storagegc.ShardTracker
	tries     *trie.ShardTries
	metrics   module.GCMetrics

	newHead  engine.Notifier
	headSeen *atomic.Uint64
	passes   *atomic.Uint64
	failures *atomic.Uint64
}

func New(
	log zerolog.Logger,
	cfg *config.Config,
	collector *storagegc.Collector,
	epochs module.EpochManager,
	tracker storagegc.ShardTracker,
	tries *trie.ShardTries,
	metrics module.GCMetrics,
) (*Engine, error) {
	if err := cfg.GC.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gc config: %w", err)
	}
	e := &Engine{
		log:       log.With().Str("engine", "gc").Bool("archive", cfg.Archive).Logger(),
		cfg:       cfg.GC,
		archive:   cfg.Archive,
		collector: collector,
		epochs:    epochs,
		tracker:   tracker,
		tries:     tries,
		metrics:   metrics,
		newHead:   engine.NewNotifier(),
		headSeen:  atomic.NewUint64(0),
		passes:    atomic.NewUint64(0),
		failures:  atomic.NewUint64(0),
	}
	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.loop).
		Build()
	return e, nil
}

// OnNewHead schedules a pass. Heads arriving while a pass runs collapse into
// one pass after it.
func (e *Engine) OnNewHead(height uint64) {
	e.headSeen.Store(height)
	e.newHead.Notify()
}

// Passes returns the number of passes run so far.
func (e *Engine) Passes() uint64 {
	return e.passes.Load()
}

// Failures returns the number of passes that returned an error.
func (e *Engine) Failures() uint64 {
	return e.failures.Load()
}

func (e *Engine) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	ticker := time.NewTicker(e.cfg.GCStepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.newHead.Channel():
		}

		err := e.runPass()
		if irrecoverable.IsException(err) {
			ctx.Throw(err)
			return
		}
		if err != nil {
			e.failures.Inc()
			e.log.Error().Err(err).Bool("gc_error", storagegc.IsGCError(err)).Msg("garbage collection pass failed, retrying on next step")
		}
	}
}

func (e *Engine) runPass() error {
	start := time.Now()
	var err error
	if e.archive {
		err = e.collector.ClearArchiveData(e.cfg.GCBlocksLimit, e.epochs)
	} else {
		err = e.collector.ClearData(e.cfg, e.epochs, e.tracker, e.tries)
	}
	duration := time.Since(start)
	e.metrics.GCPassDuration(duration)
	e.passes.Inc()

	e.log.Debug().
		Dur("duration", duration).
		Uint64("head_seen", e.headSeen.Load()).
		Msg("garbage collection pass done")
	return err
}
