package module

import (
	"time"
)

type CacheMetrics interface {
	// CacheEntries report the total number of cached items
	CacheEntries(resource string, entries uint)
	// CacheHit report the number of times the queried item is found in the cache
	CacheHit(resource string)
	// CacheNotFound records the number of times the queried item was not found in either cache or database.
	CacheNotFound(resource string)
	// CacheMiss report the number of times the queried item is not found in the cache, but found in the database.
	CacheMiss(resource string)
}

// GCMetrics reports the progress of chain garbage collection. Operators
// detect a stalled collector from the tail heights not moving.
type GCMetrics interface {
	// TailHeight reports the lowest height of retained blocks.
	TailHeight(height uint64)
	// ForkTailHeight reports the height up to which forks were swept.
	ForkTailHeight(height uint64)
	// ChunkTailHeight reports the lowest height of retained chunk data.
	ChunkTailHeight(height uint64)
	// GCStopHeight reports the highest height garbage collection may delete below.
	GCStopHeight(height uint64)
	// BlockCleared counts one block deleted in the given mode.
	BlockCleared(mode string)
	// ShardStateReclaimed counts one shard uid whose state was dropped.
	ShardStateReclaimed()
	// StateTransitionDataEntries reports the rows seen and the rows deleted by
	// one state transition cleanup.
	StateTransitionDataEntries(total int, cleared int)
	// GCPassDuration reports the wall time of one garbage collection pass.
	GCPassDuration(duration time.Duration)
}
