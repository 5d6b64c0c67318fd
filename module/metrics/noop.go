package metrics

import (
	"time"

	"github.com/shardchain/node/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.CacheMetrics = (*NoopCollector)(nil)
var _ module.GCMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) CacheEntries(resource string, entries uint)    {}
func (nc *NoopCollector) CacheHit(resource string)                      {}
func (nc *NoopCollector) CacheNotFound(resource string)                 {}
func (nc *NoopCollector) CacheMiss(resource string)                     {}
func (nc *NoopCollector) TailHeight(height uint64)                      {}
func (nc *NoopCollector) ForkTailHeight(height uint64)                  {}
func (nc *NoopCollector) ChunkTailHeight(height uint64)                 {}
func (nc *NoopCollector) GCStopHeight(height uint64)                    {}
func (nc *NoopCollector) BlockCleared(mode string)                      {}
func (nc *NoopCollector) ShardStateReclaimed()                          {}
func (nc *NoopCollector) StateTransitionDataEntries(total, cleared int) {}
func (nc *NoopCollector) GCPassDuration(duration time.Duration)         {}
