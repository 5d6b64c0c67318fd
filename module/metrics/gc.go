package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shardchain/node/module"
)

type GCCollector struct {
	tailHeight                 prometheus.Gauge
	forkTailHeight             prometheus.Gauge
	chunkTailHeight            prometheus.Gauge
	gcStopHeight               prometheus.Gauge
	stateTransitionDataEntries prometheus.Gauge
	stateTransitionDataCleared prometheus.Counter
	blocksCleared              *prometheus.CounterVec
	shardStateReclaimed        prometheus.Counter
	passDuration               prometheus.Histogram
}

var _ module.GCMetrics = (*GCCollector)(nil)

func NewGCCollector(registerer prometheus.Registerer) *GCCollector {
	factory := promauto.With(registerer)

	return &GCCollector{
		tailHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "tail_height",
			Help:      "the lowest height of retained blocks",
		}),
		forkTailHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "fork_tail_height",
			Help:      "the height up to which forks have been swept",
		}),
		chunkTailHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "chunk_tail_height",
			Help:      "the lowest height of retained chunk data",
		}),
		gcStopHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "stop_height",
			Help:      "the height below which blocks may be garbage collected",
		}),
		stateTransitionDataEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "state_transition_data_total_entries",
			Help:      "the number of state transition rows seen by the last cleanup",
		}),
		stateTransitionDataCleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "state_transition_data_cleared_entries",
			Help:      "the number of state transition rows deleted",
		}),
		blocksCleared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "blocks_cleared_total",
			Help:      "the number of blocks deleted, by gc mode",
		}, []string{LabelMode}),
		shardStateReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "shard_state_reclaimed_total",
			Help:      "the number of shard uids whose trie state was dropped",
		}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceNode,
			Subsystem: subsystemGC,
			Name:      "pass_duration_seconds",
			Help:      "the duration of one garbage collection pass",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

func (c *GCCollector) TailHeight(height uint64) {
	c.tailHeight.Set(float64(height))
}

func (c *GCCollector) ForkTailHeight(height uint64) {
	c.forkTailHeight.Set(float64(height))
}

func (c *GCCollector) ChunkTailHeight(height uint64) {
	c.chunkTailHeight.Set(float64(height))
}

func (c *GCCollector) GCStopHeight(height uint64) {
	c.gcStopHeight.Set(float64(height))
}

func (c *GCCollector) BlockCleared(mode string) {
	c.blocksCleared.With(prometheus.Labels{LabelMode: mode}).Inc()
}

func (c *GCCollector) ShardStateReclaimed() {
	c.shardStateReclaimed.Inc()
}

func (c *GCCollector) StateTransitionDataEntries(total int, cleared int) {
	c.stateTransitionDataEntries.Set(float64(total))
	c.stateTransitionDataCleared.Add(float64(cleared))
}

func (c *GCCollector) GCPassDuration(duration time.Duration) {
	c.passDuration.Observe(duration.Seconds())
}
