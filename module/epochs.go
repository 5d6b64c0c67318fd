package module

import (
	"github.com/shardchain/node/model/flow"
)

// EpochManager answers epoch questions about stored blocks. Garbage collection
// receives it per pass and never retains it.
type EpochManager interface {
	// GCStopHeight returns the height below which blocks may be garbage
	// collected, given the current head. The epochs that must be retained
	// start at or above it.
	GCStopHeight(head flow.Identifier) uint64

	// ShardLayout returns the shard layout of the epoch.
	ShardLayout(epochID flow.EpochID) (flow.ShardLayout, error)

	// IsLastBlockInFinishedEpoch returns true if the block is the last block of
	// its epoch and the next epoch has started.
	IsLastBlockInFinishedEpoch(blockHash flow.Identifier) (bool, error)

	// BlockInfo returns the epoch bookkeeping of the block.
	// Expected errors during normal operations:
	//   - storage.ErrNotFound if the block is unknown or its info was garbage collected
	BlockInfo(blockHash flow.Identifier) (*flow.BlockInfo, error)

	// EpochID returns the epoch of the block.
	EpochID(blockHash flow.Identifier) (flow.EpochID, error)

	// EpochIDFromPrevBlock returns the epoch of a block whose parent is given.
	EpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error)

	// NextEpochIDFromPrevBlock returns the epoch following the one of a block
	// whose parent is given.
	NextEpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error)

	// PrevEpochIDFromPrevBlock returns the epoch preceding the one of a block
	// whose parent is given.
	PrevEpochIDFromPrevBlock(parentHash flow.Identifier) (flow.EpochID, error)

	// EpochInfo returns what is known about the epoch.
	EpochInfo(epochID flow.EpochID) (*flow.EpochInfo, error)

	// CaresAboutShardInEpoch returns true if the validator account is assigned
	// to track the shard in the epoch.
	CaresAboutShardInEpoch(epochID flow.EpochID, account flow.AccountID, shardID flow.ShardID) (bool, error)
}

// BlockInfoEvictor is implemented by epoch managers that cache block infos.
// Garbage collection calls it after a deletion of the block's info committed.
type BlockInfoEvictor interface {
	EvictBlockInfo(blockHash flow.Identifier)
}
