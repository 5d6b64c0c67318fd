package gc

import (
	"fmt"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/trie"
)

// gcState drops the trie state of shards the node stopped tracking, once the
// last block of their epoch is garbage collected. A shard is kept if the node
// tracks it now or next epoch, or if the last block of any later epoch still
// holds trie changes for it.
func (u *ChainStoreUpdate) gcState(em module.EpochManager, tracker ShardTracker, tries *trie.ShardTries, blockHash flow.Identifier) error {
	last, err := em.IsLastBlockInFinishedEpoch(blockHash)
	if err != nil {
		return fmt.Errorf("could not check epoch end at %v: %w", blockHash, err)
	}
	if !last {
		return nil
	}
	info, err := em.BlockInfo(blockHash)
	if err != nil {
		return fmt.Errorf("could not get block info of %v: %w", blockHash, err)
	}
	layout, err := em.ShardLayout(info.EpochID)
	if err != nil {
		return fmt.Errorf("could not get shard layout of epoch %v: %w", info.EpochID, err)
	}
	head, err := u.Head()
	if err != nil {
		return err
	}

	var candidates []flow.ShardUID
	for _, uid := range layout.ShardUIDs() {
		if tracker.CaresAboutShardThisOrNextEpoch("", head.LastBlockHash, uid.ShardIDValue(), true) {
			continue
		}
		candidates = append(candidates, uid)
	}
	if len(candidates) == 0 {
		return nil
	}

	epochBlock, err := em.BlockInfo(head.LastBlockHash)
	if err != nil {
		return fmt.Errorf("could not get block info of head %v: %w", head.LastBlockHash, err)
	}
	for len(candidates) > 0 {
		first, err := em.BlockInfo(epochBlock.EpochFirstBlock)
		if err != nil {
			return fmt.Errorf("could not get first block of epoch %v: %w", epochBlock.EpochID, err)
		}
		prevLast := first.PrevHash
		if prevLast == blockHash || prevLast.IsZero() || first.Height <= info.Height {
			break
		}
		epochBlock, err = em.BlockInfo(prevLast)
		if err != nil {
			return fmt.Errorf("could not get block info of %v: %w", prevLast, err)
		}
		kept := candidates[:0]
		for _, uid := range candidates {
			exists, err := operation.TrieChangesExist(u.Reader(), prevLast, uid)
			if err != nil {
				return err
			}
			if !exists {
				kept = append(kept, uid)
			}
		}
		candidates = kept
	}

	for _, uid := range candidates {
		u.log.Debug().Str("shard_uid", uid.String()).Msg("reclaiming state of untracked shard")
		if err := tries.DeleteShardUIDPrefixedState(u.batch, uid); err != nil {
			return fmt.Errorf("could not delete state of shard %v: %w", uid, err)
		}
		u.onCommit(u.metrics.ShardStateReclaimed)
	}
	return nil
}

// gcParentShardAfterResharding drops the state of shards split at the end of
// the block's epoch once no child reads through them anymore.
func (u *ChainStoreUpdate) gcParentShardAfterResharding(em module.EpochManager, tries *trie.ShardTries, blockHash flow.Identifier) error {
	last, err := em.IsLastBlockInFinishedEpoch(blockHash)
	if err != nil {
		return fmt.Errorf("could not check epoch end at %v: %w", blockHash, err)
	}
	if !last {
		return nil
	}
	next, err := u.NextBlockHash(blockHash)
	if err != nil {
		return storage.RequirePresent(err, "epoch end %v has no canonical successor", blockHash)
	}
	epochID, err := em.EpochID(next)
	if err != nil {
		return fmt.Errorf("could not get epoch of %v: %w", next, err)
	}
	layout, err := em.ShardLayout(epochID)
	if err != nil {
		return fmt.Errorf("could not get shard layout of epoch %v: %w", epochID, err)
	}

	for _, parent := range layout.SplitParentShardUIDs() {
		children, err := layout.ChildrenShardUIDs(parent.ShardIDValue())
		if err != nil {
			return err
		}
		referenced := false
		for _, child := range children {
			mapped, err := trie.ShardUIDMapping(u.Reader(), child)
			if err != nil {
				return err
			}
			if mapped == parent && child != parent {
				referenced = true
				break
			}
		}
		if referenced {
			continue
		}
		u.log.Debug().Str("shard_uid", parent.String()).Msg("reclaiming state of split parent shard")
		if err := tries.DeleteShardUIDPrefixedState(u.batch, parent); err != nil {
			return fmt.Errorf("could not delete state of parent shard %v: %w", parent, err)
		}
		u.onCommit(u.metrics.ShardStateReclaimed)
	}
	return nil
}
