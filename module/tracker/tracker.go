// Package tracker decides which shards the node cares about.
package tracker

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
)

// DefaultMaskCacheSize is the number of epochs tracking masks are cached for.
const DefaultMaskCacheSize = 1024

// ShardTracker answers whether the node tracks a shard in the epoch of a block
// given by its parent. Queries never fail: when the epoch data needed is
// missing, the shard is treated as not tracked.
//
// The optional account is a validator account. Its assignment is consulted
// first; isMe tells whether the node's own configuration applies when the
// account is not assigned the shard.
type ShardTracker struct {
	log    zerolog.Logger
	config TrackedConfig
	epochs module.EpochManager
	masks  *lru.Cache[flow.EpochID, []bool]
}

func NewShardTracker(log zerolog.Logger, config TrackedConfig, epochs module.EpochManager) (*ShardTracker, error) {
	if schedule, ok := config.(Schedule); ok && len(schedule) == 0 {
		return nil, fmt.Errorf("tracked shard schedule must not be empty")
	}
	masks, err := lru.New[flow.EpochID, []bool](DefaultMaskCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create tracking mask cache: %w", err)
	}
	return &ShardTracker{
		log:    log.With().Str("module", "shard_tracker").Logger(),
		config: config,
		epochs: epochs,
		masks:  masks,
	}, nil
}

// TracksAllShards returns true if the node is configured to track every shard.
func (t *ShardTracker) TracksAllShards() bool {
	_, ok := t.config.(AllShards)
	return ok
}

func (t *ShardTracker) tracksShardAtEpoch(shardID flow.ShardID, epochID flow.EpochID) (bool, error) {
	switch config := t.config.(type) {
	case Accounts:
		layout, err := t.epochs.ShardLayout(epochID)
		if err != nil {
			return false, err
		}
		mask, ok := t.masks.Get(epochID)
		if !ok {
			mask = make([]bool, layout.NumShards())
			for _, account := range config {
				index, err := layout.ShardIndex(layout.AccountIDToShardID(account))
				if err != nil {
					return false, err
				}
				mask[index] = true
			}
			t.masks.Add(epochID, mask)
		}
		index, err := layout.ShardIndex(shardID)
		if err != nil {
			return false, err
		}
		return index < len(mask) && mask[index], nil
	case AllShards:
		return true, nil
	case Schedule:
		info, err := t.epochs.EpochInfo(epochID)
		if err != nil {
			return false, err
		}
		for _, tracked := range config[info.EpochHeight%uint64(len(config))] {
			if tracked == shardID {
				return true, nil
			}
		}
		return false, nil
	case ShadowValidator:
		return t.epochs.CaresAboutShardInEpoch(epochID, flow.AccountID(config), shardID)
	default:
		return false, fmt.Errorf("unknown tracked config %T", t.config)
	}
}

// epochOf resolves an epoch of a block given by its parent.
type epochOf func(parentHash flow.Identifier) (flow.EpochID, error)

func (t *ShardTracker) caresAboutShard(epoch epochOf, account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool {
	if account != "" {
		epochID, err := epoch(parentHash)
		if err == nil {
			assigned, err := t.epochs.CaresAboutShardInEpoch(epochID, account, shardID)
			if err == nil && assigned {
				return true
			}
		}
		if !isMe {
			return false
		}
	}
	if t.TracksAllShards() {
		return true
	}
	epochID, err := epoch(parentHash)
	if err != nil {
		t.log.Debug().Err(err).Str("parent_hash", parentHash.String()).Msg("could not resolve epoch, shard treated as untracked")
		return false
	}
	tracked, err := t.tracksShardAtEpoch(shardID, epochID)
	if err != nil {
		t.log.Debug().Err(err).Uint64("shard_id", uint64(shardID)).Msg("could not resolve tracking, shard treated as untracked")
		return false
	}
	return tracked
}

// CaresAboutShard returns whether the shard is tracked in the epoch of the
// block following parentHash. An empty account skips the validator check.
func (t *ShardTracker) CaresAboutShard(account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool {
	return t.caresAboutShard(t.epochs.EpochIDFromPrevBlock, account, parentHash, shardID, isMe)
}

// WillCareAboutShard is CaresAboutShard for the epoch after.
func (t *ShardTracker) WillCareAboutShard(account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool {
	return t.caresAboutShard(t.epochs.NextEpochIDFromPrevBlock, account, parentHash, shardID, isMe)
}

// CaredAboutShardInPrevEpoch is CaresAboutShard for the epoch before.
func (t *ShardTracker) CaredAboutShardInPrevEpoch(account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool {
	return t.caresAboutShard(t.epochs.PrevEpochIDFromPrevBlock, account, parentHash, shardID, isMe)
}

func (t *ShardTracker) CaresAboutShardThisOrNextEpoch(account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool {
	return t.CaresAboutShard(account, parentHash, shardID, isMe) ||
		t.WillCareAboutShard(account, parentHash, shardID, isMe)
}
