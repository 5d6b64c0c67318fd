package gc

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/store"
	"github.com/shardchain/node/storage/trie"
	"github.com/shardchain/node/utils/logging"
	"github.com/shardchain/node/utils/merr"
)

// ShardTracker tells whether the node keeps the state of a shard.
type ShardTracker interface {
	CaresAboutShardThisOrNextEpoch(account flow.AccountID, parentHash flow.Identifier, shardID flow.ShardID, isMe bool) bool
}

// Collector garbage collects the chain store. Every step is committed
// atomically, so an interrupted pass resumes from the persisted tails. It is
// not safe for concurrent use.
type Collector struct {
	log     zerolog.Logger
	store   *store.ChainStore
	metrics module.GCMetrics
}

func NewCollector(log zerolog.Logger, chain *store.ChainStore, metrics module.GCMetrics) *Collector {
	return &Collector{
		log:     log.With().Str("module", "gc").Logger(),
		store:   chain,
		metrics: metrics,
	}
}

// update runs fn against a fresh update and commits it. The update is
// discarded if fn fails.
func (c *Collector) update(fn func(u *ChainStoreUpdate) error) error {
	u := newChainStoreUpdate(c.log, c.store, c.metrics)
	err := fn(u)
	if err != nil {
		return merr.CloseAndMergeError(u, err)
	}
	return u.Commit()
}

// ClearData runs one garbage collection pass of a regular node: stale state
// transition data first, then old blocks. Both run even if the first fails;
// the first error is returned.
func (c *Collector) ClearData(cfg config.GCConfig, em module.EpochManager, tracker ShardTracker, tries *trie.ShardTries) error {
	transitionErr := c.ClearStateTransitionData(em)
	if transitionErr != nil {
		c.log.Warn().Err(transitionErr).Msg("could not clear state transition data")
	}
	blocksErr := c.ClearOldBlocksData(cfg, em, tracker, tries)
	if transitionErr != nil {
		return transitionErr
	}
	return blocksErr
}

func (c *Collector) publishTails(gcStopHeight uint64) error {
	tail, err := c.store.Tail()
	if err != nil {
		return err
	}
	forkTail, err := c.store.ForkTail()
	if err != nil {
		return err
	}
	chunkTail, err := c.store.ChunkTail()
	if err != nil {
		return err
	}
	c.metrics.TailHeight(tail)
	c.metrics.ForkTailHeight(forkTail)
	c.metrics.ChunkTailHeight(chunkTail)
	c.metrics.GCStopHeight(gcStopHeight)
	return nil
}

// gcStopHeight returns the stop height for the head and checks it is not
// above the head.
func (c *Collector) gcStopHeight(em module.EpochManager, head *flow.Tip) (uint64, error) {
	gcStopHeight := em.GCStopHeight(head.LastBlockHash)
	if gcStopHeight > head.Height {
		return 0, NewGCErrorf("gc stop height %d is above head height %d", gcStopHeight, head.Height)
	}
	if err := c.publishTails(gcStopHeight); err != nil {
		return 0, err
	}
	return gcStopHeight, nil
}

// ClearOldBlocksData deletes at most cfg.GCBlocksLimit blocks: first blocks of
// abandoned forks in a window of cfg.GCForkCleanStep heights below the fork
// tail, then canonical blocks from the tail up to the gc stop height.
//
// Expected errors during normal operations:
//   - ErrGC if the gc stop height is above the head or a canonical block has no children
//   - storage.ErrInconsistentState if data the chain requires is missing
func (c *Collector) ClearOldBlocksData(cfg config.GCConfig, em module.EpochManager, tracker ShardTracker, tries *trie.ShardTries) error {
	head, err := c.store.Head()
	if err != nil {
		return fmt.Errorf("could not read head: %w", err)
	}
	genesisHeight, err := c.store.GenesisHeight()
	if err != nil {
		return err
	}
	if head.Height == genesisHeight {
		return nil
	}

	gcStopHeight, err := c.gcStopHeight(em, head)
	if err != nil {
		return err
	}

	storedStopHeight, err := c.store.GCStopHeight()
	if err != nil {
		return err
	}
	if storedStopHeight != gcStopHeight {
		err = c.update(func(u *ChainStoreUpdate) error {
			if err := u.updateGCStopHeight(gcStopHeight); err != nil {
				return err
			}
			forkTail, err := u.ForkTail()
			if err != nil {
				return err
			}
			if forkTail < gcStopHeight {
				return u.updateForkTail(gcStopHeight)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("could not persist gc stop height %d: %w", gcStopHeight, err)
		}
	}

	remaining := cfg.GCBlocksLimit

	tail, err := c.store.Tail()
	if err != nil {
		return err
	}
	forkTail, err := c.store.ForkTail()
	if err != nil {
		return err
	}
	stop := tail
	if forkTail > cfg.GCForkCleanStep && forkTail-cfg.GCForkCleanStep > tail {
		stop = forkTail - cfg.GCForkCleanStep
	}
	for h := forkTail; h > stop; h-- {
		height := h - 1
		if err := c.clearForksData(em, tries, height, &remaining); err != nil {
			return fmt.Errorf("could not clear forks at height %d: %w", height, err)
		}
		if remaining == 0 {
			// the height may hold more forks; it is revisited next pass
			return nil
		}
		if err := c.update(func(u *ChainStoreUpdate) error { return u.updateForkTail(height) }); err != nil {
			return err
		}
	}

	for height := tail + 1; height < gcStopHeight; height++ {
		if remaining == 0 {
			break
		}
		stopped, err := c.clearCanonicalHeight(em, tracker, tries, height, &remaining)
		if err != nil {
			return fmt.Errorf("could not clear canonical chain at height %d: %w", height, err)
		}
		if stopped {
			break
		}
	}
	return nil
}

// clearCanonicalHeight makes the height the new tail and deletes the block
// below it. It stops without changes if the parent of the block at the height
// still has fork children, which the fork pass removes first. Past that check
// the height must hold a single block.
func (c *Collector) clearCanonicalHeight(em module.EpochManager, tracker ShardTracker, tries *trie.ShardTries, height uint64, remaining *uint64) (bool, error) {
	u := newChainStoreUpdate(c.log, c.store, c.metrics)
	defer u.Close()

	index, err := u.AllBlockHashesByHeight(height)
	if err != nil {
		return false, err
	}
	hashes := index.All()
	if len(hashes) > 0 {
		blockHash := hashes[0]
		header, err := u.BlockHeader(blockHash)
		if err != nil {
			return false, storage.RequirePresent(err, "missing header of %v", blockHash)
		}
		refcount, err := u.BlockRefcount(header.PrevHash)
		if err != nil {
			return false, storage.RequirePresent(err, "missing refcount of %v", header.PrevHash)
		}
		if refcount > 1 {
			c.log.Debug().Uint64("height", height).Uint64("refcount", refcount).Msg("fork starts below the tail, stopping")
			return true, nil
		}
		if refcount == 0 {
			return false, NewGCErrorf("block on canonical chain shouldn't have refcount 0")
		}
		if len(hashes) > 1 {
			return false, storage.InconsistentStatef("%d blocks at canonical height %d", len(hashes), height)
		}
		if err := u.ClearBlockData(em, blockHash, CanonicalMode{Tries: tries}); err != nil {
			return false, err
		}
		if err := u.gcParentShardAfterResharding(em, tries, blockHash); err != nil {
			return false, err
		}
		if err := u.gcState(em, tracker, tries, blockHash); err != nil {
			return false, err
		}
		*remaining--
	}
	if err := u.updateTail(height); err != nil {
		return false, err
	}
	return false, u.Commit()
}

// clearForksData walks back from every block at the height that has no
// children, deleting blocks while they stay childless. Each block is deleted
// in its own step.
func (c *Collector) clearForksData(em module.EpochManager, tries *trie.ShardTries, height uint64, remaining *uint64) error {
	index, err := c.store.AllBlockHashesByHeight(height)
	if err != nil {
		return err
	}
	var cleared []flow.Identifier
	defer func() {
		if len(cleared) > 0 {
			c.log.Debug().Uint64("height", height).Strs("blocks", logging.IDs(cleared)).Msg("fork blocks deleted")
		}
	}()
	for _, blockHash := range index.All() {
		current := blockHash
		for {
			if *remaining == 0 {
				return nil
			}
			refcount, err := c.store.BlockRefcount(current)
			if err != nil {
				return storage.RequirePresent(err, "missing refcount of %v", current)
			}
			if refcount != 0 {
				break
			}
			header, err := c.store.BlockHeader(current)
			if err != nil {
				return storage.RequirePresent(err, "missing header of %v", current)
			}
			err = c.update(func(u *ChainStoreUpdate) error {
				return u.ClearBlockData(em, current, ForkMode{Tries: tries})
			})
			if err != nil {
				return err
			}
			*remaining--
			cleared = append(cleared, current)
			current = header.PrevHash
		}
	}
	return nil
}

// ClearStateTransitionData deletes state transition rows no longer needed to
// validate witnesses: rows of blocks below the height the last final block's
// chunk of the shard was created at, and rows of shards the final block
// neither carries nor will carry in the next epoch.
func (c *Collector) ClearStateTransitionData(em module.EpochManager) error {
	head, err := c.store.Head()
	if err != nil {
		return fmt.Errorf("could not read head: %w", err)
	}
	headHeader, err := c.store.BlockHeader(head.LastBlockHash)
	if err != nil {
		return storage.RequirePresent(err, "missing header of head %v", head.LastBlockHash)
	}
	finalHash := headHeader.LastFinalBlock
	if finalHash.IsZero() {
		return nil
	}
	finalBlock, err := c.store.Block(finalHash)
	if errors.Is(err, storage.ErrNotFound) {
		c.log.Debug().Str("final_block", finalHash.String()).Msg("final block is not stored, skipping state transition cleanup")
		return nil
	}
	if err != nil {
		return err
	}

	createdAt := make(map[flow.ShardID]uint64, len(finalBlock.Chunks))
	for _, chunk := range finalBlock.Chunks {
		createdAt[chunk.ShardID] = chunk.HeightCreated
	}
	relevant := make(map[flow.ShardID]struct{})
	for _, epochID := range []flow.EpochID{finalBlock.Header.EpochID, finalBlock.Header.NextEpochID} {
		layout, err := em.ShardLayout(epochID)
		if err != nil {
			return fmt.Errorf("could not get shard layout of epoch %v: %w", epochID, err)
		}
		for _, shardID := range layout.ShardIDs {
			relevant[shardID] = struct{}{}
		}
	}

	keys, err := operation.CollectKeysByPrefix(c.store.Reader(), operation.ColStateTransitionData.Prefix())
	if err != nil {
		return fmt.Errorf("could not list state transition data: %w", err)
	}

	cleared := 0
	err = c.update(func(u *ChainStoreUpdate) error {
		for _, key := range keys {
			blockHash, shardID, err := operation.ParseBlockShardKey(key[1:])
			if err != nil {
				return storage.InconsistentStatef("malformed state transition key %x: %v", key, err)
			}
			heightCreated, ok := createdAt[shardID]
			if !ok {
				if _, ok := relevant[shardID]; ok {
					continue
				}
			} else {
				header, err := u.BlockHeader(blockHash)
				if err != nil {
					return storage.RequirePresent(err, "missing header of %v", blockHash)
				}
				if header.Height >= heightCreated {
					continue
				}
			}
			if err := u.gcCol(operation.ColStateTransitionData, key[1:]); err != nil {
				return err
			}
			cleared++
		}
		total := len(keys)
		u.onCommit(func() { c.metrics.StateTransitionDataEntries(total, cleared) })
		return nil
	})
	if err != nil {
		return err
	}
	c.log.Debug().Int("total", len(keys)).Int("cleared", cleared).Msg("state transition data cleaned")
	return nil
}

// ClearArchiveData runs one pass of an archival node, which keeps blocks and
// state and only drops the chunk data that can be rebuilt.
func (c *Collector) ClearArchiveData(heightLimit uint64, em module.EpochManager) error {
	head, err := c.store.Head()
	if err != nil {
		return fmt.Errorf("could not read head: %w", err)
	}
	gcStopHeight, err := c.gcStopHeight(em, head)
	if err != nil {
		return err
	}
	return c.update(func(u *ChainStoreUpdate) error {
		return u.clearRedundantChunkData(gcStopHeight, heightLimit)
	})
}

// ResetDataPreStateSync deletes the blocks and chunks the node keeps below the
// state sync point and drops the whole trie state. The block info of the
// parent of the sync block is kept. Tail and fork tail are reset.
func (c *Collector) ResetDataPreStateSync(syncHash flow.Identifier, em module.EpochManager, tries *trie.ShardTries) error {
	head, err := c.store.Head()
	if err != nil {
		return fmt.Errorf("could not read head: %w", err)
	}
	if head.PrevBlockHash.IsZero() {
		return nil
	}
	syncHeader, err := c.store.BlockHeader(syncHash)
	if err != nil {
		return storage.RequirePresent(err, "missing header of sync block %v", syncHash)
	}
	prevHeader, err := c.store.BlockHeader(syncHeader.PrevHash)
	if err != nil {
		return storage.RequirePresent(err, "missing header of %v", syncHeader.PrevHash)
	}
	gcHeight := min(head.Height+1, prevHeader.Height)

	tail, err := c.store.Tail()
	if err != nil {
		return err
	}
	tailParentCleared := false
	for height := tail; height < gcHeight; height++ {
		index, err := c.store.AllBlockHashesByHeight(height)
		if err != nil {
			return err
		}
		for _, blockHash := range index.All() {
			err = c.update(func(u *ChainStoreUpdate) error {
				if !tailParentCleared {
					header, err := u.BlockHeader(blockHash)
					if err != nil {
						return storage.RequirePresent(err, "missing header of %v", blockHash)
					}
					exists, err := u.BlockExists(header.PrevHash)
					if err != nil {
						return err
					}
					if exists {
						if err := u.ClearBlockData(em, header.PrevHash, StateSyncMode{ClearBlockInfo: true}); err != nil {
							return err
						}
					}
				}
				return u.ClearBlockData(em, blockHash, StateSyncMode{ClearBlockInfo: blockHash != syncHeader.PrevHash})
			})
			if err != nil {
				return fmt.Errorf("could not clear block %v at height %d: %w", blockHash, height, err)
			}
			tailParentCleared = true
		}
	}

	err = c.update(func(u *ChainStoreUpdate) error {
		return u.clearChunkDataAndHeaders(min(head.Height+2, syncHeader.Height))
	})
	if err != nil {
		return fmt.Errorf("could not clear chunks below sync block: %w", err)
	}

	return c.update(func(u *ChainStoreUpdate) error {
		if err := tries.DeleteAllState(u.batch); err != nil {
			return err
		}
		return u.resetTail()
	})
}

// UndoHeadBlock deletes the head block and moves the head and header head
// back to its parent.
func (c *Collector) UndoHeadBlock(em module.EpochManager) (*flow.Tip, error) {
	var rewound *flow.Tip
	err := c.update(func(u *ChainStoreUpdate) error {
		head, err := u.Head()
		if err != nil {
			return err
		}
		if head.PrevBlockHash.IsZero() {
			return fmt.Errorf("cannot undo the genesis block")
		}
		parent, err := u.BlockHeader(head.PrevBlockHash)
		if err != nil {
			return storage.RequirePresent(err, "missing header of %v", head.PrevBlockHash)
		}
		if err := u.ClearHeadBlockData(em); err != nil {
			return err
		}
		if err := c.store.UpdateHead(u.batch, parent); err != nil {
			return err
		}
		rewound = flow.TipFromHeader(parent)
		return c.store.UpdateHeaderHead(u.writer(), rewound)
	})
	if err != nil {
		return nil, err
	}
	return rewound, nil
}
