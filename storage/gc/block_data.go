package gc

import (
	"errors"
	"fmt"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// ClearBlockData deletes the data of a block in the given mode.
//
// In CanonicalMode the block passed is the new tail and its parent is the one
// deleted; only the trie changes of the tail itself are applied and dropped.
// In ForkMode and StateSyncMode the block itself is deleted.
//
// Expected errors during normal operations:
//   - storage.ErrInconsistentState if data the chain requires is missing
//   - ErrGC if a refcount is already zero
func (u *ChainStoreUpdate) ClearBlockData(em module.EpochManager, blockHash flow.Identifier, mode Mode) error {
	u.log.Debug().Str("mode", mode.String()).Str("block_hash", blockHash.String()).Msg("gc block")

	err := u.gcTrieChanges(em, blockHash, mode)
	if err != nil {
		return fmt.Errorf("could not gc trie changes of %v: %w", blockHash, err)
	}

	if _, ok := mode.(CanonicalMode); ok {
		header, err := u.BlockHeader(blockHash)
		if err != nil {
			return storage.RequirePresent(err, "missing header of %v", blockHash)
		}
		blockHash = header.PrevHash
	}

	block, err := u.Block(blockHash)
	if err != nil {
		return storage.RequirePresent(err, "block data of %v is already cleaned", blockHash)
	}
	header := block.Header
	layout, err := em.ShardLayout(header.EpochID)
	if err != nil {
		return fmt.Errorf("could not get shard layout of epoch %v: %w", header.EpochID, err)
	}

	for _, shardID := range layout.ShardIDs {
		key := operation.BlockShardKey(blockHash, shardID)
		if err := u.gcOutgoingReceipts(blockHash, shardID); err != nil {
			return err
		}
		if err := u.gcCol(operation.ColIncomingReceipts, key); err != nil {
			return err
		}
		if err := u.gcCol(operation.ColChunkApplyStats, key); err != nil {
			return err
		}
		if err := u.gcStateHeader(blockHash, shardID); err != nil {
			return err
		}
	}

	uids, err := u.shardUIDsToGC(em, blockHash)
	if err != nil {
		return err
	}
	for _, uid := range uids {
		if err := u.gcCol(operation.ColChunkExtra, operation.BlockShardUIDKey(blockHash, uid)); err != nil {
			return err
		}
	}

	hashKey := operation.BlockHashKey(blockHash)
	for _, col := range []operation.Column{
		operation.ColBlock,
		operation.ColNextBlockHashes,
		operation.ColChallengedBlocks,
		operation.ColBlocksToCatchup,
	} {
		if err := u.gcCol(col, hashKey); err != nil {
			return err
		}
	}
	if err := u.gcStateChanges(blockHash); err != nil {
		return err
	}
	if err := u.gcCol(operation.ColBlockRefCount, hashKey); err != nil {
		return err
	}
	if err := u.gcOutcomes(block); err != nil {
		return err
	}
	if stateSync, ok := mode.(StateSyncMode); !ok || stateSync.ClearBlockInfo {
		if err := u.gcBlockInfo(em, blockHash); err != nil {
			return err
		}
	}
	if err := u.gcCol(operation.ColStateDlInfos, hashKey); err != nil {
		return err
	}

	if err := u.gcColBlockPerHeight(blockHash, header.Height, header.EpochID); err != nil {
		return err
	}

	switch mode.(type) {
	case ForkMode:
		if err := u.decBlockRefcount(header.PrevHash); err != nil {
			return err
		}
	case CanonicalMode:
		minChunkHeight, err := u.Tail()
		if err != nil {
			return err
		}
		for _, chunk := range block.Chunks {
			if chunk.HeightCreated < minChunkHeight {
				minChunkHeight = chunk.HeightCreated
			}
		}
		if err := u.clearChunkDataAndHeaders(minChunkHeight); err != nil {
			return err
		}
	case StateSyncMode:
		// chunks are cleared by the state sync reset
	default:
		panic(fmt.Sprintf("unknown gc mode %T", mode))
	}

	modeName := mode.String()
	u.onCommit(func() { u.metrics.BlockCleared(modeName) })
	return nil
}

// shardUIDsToGC returns the shard uids whose per-block rows a block carries:
// those of its epoch layout, and those of the next epoch layout when it
// differs. The last blocks before a layout change already hold rows for the
// new shards.
func (u *ChainStoreUpdate) shardUIDsToGC(em module.EpochManager, blockHash flow.Identifier) ([]flow.ShardUID, error) {
	header, err := u.BlockHeader(blockHash)
	if err != nil {
		return nil, storage.RequirePresent(err, "missing header of %v", blockHash)
	}
	layout, err := em.ShardLayout(header.EpochID)
	if err != nil {
		return nil, fmt.Errorf("could not get shard layout of epoch %v: %w", header.EpochID, err)
	}
	uids := layout.ShardUIDs()
	nextLayout, err := em.ShardLayout(header.NextEpochID)
	if err != nil {
		return nil, fmt.Errorf("could not get shard layout of epoch %v: %w", header.NextEpochID, err)
	}
	if layout.Equal(nextLayout) {
		return uids, nil
	}
	seen := make(map[flow.ShardUID]struct{}, len(uids))
	for _, uid := range uids {
		seen[uid] = struct{}{}
	}
	for _, uid := range nextLayout.ShardUIDs() {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid)
	}
	return uids, nil
}

func (u *ChainStoreUpdate) gcTrieChanges(em module.EpochManager, blockHash flow.Identifier, mode Mode) error {
	uids, err := u.shardUIDsToGC(em, blockHash)
	if err != nil {
		return err
	}
	for _, uid := range uids {
		var changes flow.TrieChanges
		err := operation.RetrieveTrieChanges(u.Reader(), blockHash, uid, &changes)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not read trie changes of shard %v: %w", uid, err)
		}

		switch m := mode.(type) {
		case ForkMode:
			err = m.Tries.RevertInsertions(u.batch, &changes, uid)
		case CanonicalMode:
			err = m.Tries.ApplyDeletions(u.batch, &changes, uid)
		case StateSyncMode:
			// trie state is dropped wholesale
		default:
			panic(fmt.Sprintf("unknown gc mode %T", mode))
		}
		if err != nil {
			return err
		}

		if err := u.gcCol(operation.ColTrieChanges, operation.BlockShardUIDKey(blockHash, uid)); err != nil {
			return err
		}
	}
	return nil
}

// gcBlockInfo deletes the epoch bookkeeping of the block and evicts it from
// the epoch manager's cache once the step commits.
func (u *ChainStoreUpdate) gcBlockInfo(em module.EpochManager, blockHash flow.Identifier) error {
	if err := u.gcCol(operation.ColBlockInfo, operation.BlockHashKey(blockHash)); err != nil {
		return err
	}
	if evictor, ok := em.(module.BlockInfoEvictor); ok {
		u.onCommit(func() { evictor.EvictBlockInfo(blockHash) })
	}
	return nil
}

func (u *ChainStoreUpdate) gcOutgoingReceipts(blockHash flow.Identifier, shardID flow.ShardID) error {
	return operation.RemoveByKey(u.writer(), operation.ColOutgoingReceipts.Key(operation.BlockShardKey(blockHash, shardID)))
}

// gcStateHeader deletes the state header of the shard at the block, if one
// was stored, and every state part it announces.
func (u *ChainStoreUpdate) gcStateHeader(blockHash flow.Identifier, shardID flow.ShardID) error {
	stateHeader, err := u.StateHeader(shardID, blockHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := u.gcColStateParts(blockHash, shardID, stateHeader.NumStateParts); err != nil {
		return err
	}
	return u.gcCol(operation.ColStateHeaders, operation.StateHeaderKey(shardID, blockHash))
}

func (u *ChainStoreUpdate) gcColStateParts(syncHash flow.Identifier, shardID flow.ShardID, numParts uint64) error {
	for partID := uint64(0); partID < numParts; partID++ {
		if err := u.gcCol(operation.ColStateParts, operation.StatePartKey(syncHash, shardID, partID)); err != nil {
			return err
		}
	}
	return nil
}

// gcStateChanges deletes every state change row of the block. Keys are
// collected before any is deleted.
func (u *ChainStoreUpdate) gcStateChanges(blockHash flow.Identifier) error {
	keys, err := operation.CollectKeysByPrefix(u.Reader(), operation.StateChangesPrefix(blockHash))
	if err != nil {
		return fmt.Errorf("could not collect state changes of %v: %w", blockHash, err)
	}
	for _, key := range keys {
		if err := u.gcCol(operation.ColStateChanges, key[1:]); err != nil {
			return err
		}
	}
	return nil
}

// gcOutcomes deletes the outcomes of the chunks new in the block. Carried
// over chunks had their outcomes stored with the block that included them.
func (u *ChainStoreUpdate) gcOutcomes(block *flow.Block) error {
	blockHash := block.ID()
	for _, chunk := range block.NewChunks() {
		ids, err := u.OutcomeIDs(blockHash, chunk.ShardID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := u.gcCol(operation.ColTransactionResultForBlock, operation.OutcomeKey(id, blockHash)); err != nil {
				return err
			}
		}
		if err := u.gcCol(operation.ColOutcomeIds, operation.BlockShardKey(blockHash, chunk.ShardID)); err != nil {
			return err
		}
	}
	return nil
}

// gcColBlockPerHeight removes the block from the per-height index. The index
// is cloned before it is changed; epochs left without blocks are dropped, and
// so is the row once no epoch remains.
func (u *ChainStoreUpdate) gcColBlockPerHeight(blockHash flow.Identifier, height uint64, epochID flow.EpochID) error {
	index, err := u.AllBlockHashesByHeight(height)
	if err != nil {
		return err
	}
	index = index.Clone()
	hashes, ok := index[epochID]
	if !ok {
		return storage.InconsistentStatef("epoch %v of block %v missing from the index at height %d", epochID, blockHash, height)
	}
	delete(hashes, blockHash)
	if len(hashes) == 0 {
		delete(index, epochID)
	}
	if len(index) == 0 {
		err = operation.RemoveBlocksPerHeight(u.writer(), height)
	} else {
		err = operation.UpsertBlocksPerHeight(u.writer(), height, index)
	}
	if err != nil {
		return fmt.Errorf("could not update blocks at height %d: %w", height, err)
	}

	processed, err := operation.HeightProcessed(u.Reader(), height)
	if err != nil {
		return err
	}
	if processed {
		return u.gcCol(operation.ColProcessedBlockHeights, operation.HeightKey(height))
	}
	return nil
}

// decBlockRefcount removes one child from the block. The row stays at zero.
func (u *ChainStoreUpdate) decBlockRefcount(blockHash flow.Identifier) error {
	refcount, err := u.BlockRefcount(blockHash)
	if err != nil {
		return storage.RequirePresent(err, "missing refcount of %v", blockHash)
	}
	if refcount == 0 {
		return NewGCErrorf("refcount of block %v is already 0", blockHash)
	}
	return operation.UpsertBlockRefcount(u.writer(), blockHash, refcount-1)
}

// clearChunk deletes a chunk, its partial chunk and invalid marker, and drops
// one reference from each of its transactions and carried receipts.
func (u *ChainStoreUpdate) clearChunk(chunkHash flow.Identifier) error {
	chunk, err := u.Chunk(chunkHash)
	if err != nil {
		return storage.RequirePresent(err, "missing chunk %v", chunkHash)
	}
	for i := range chunk.Transactions {
		txHash := chunk.Transactions[i].ID()
		if err := u.gcCol(operation.ColTransactions, txHash[:]); err != nil {
			return err
		}
	}

	partial, err := u.PartialChunk(chunkHash)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err == nil {
		for _, proof := range partial.PrevOutgoingReceipts {
			for _, receipt := range proof.Receipts {
				if err := u.gcCol(operation.ColReceipts, receipt.ReceiptID[:]); err != nil {
					return err
				}
			}
		}
	}

	key := operation.BlockHashKey(chunkHash)
	for _, col := range []operation.Column{operation.ColChunks, operation.ColPartialChunks, operation.ColInvalidChunks} {
		if err := u.gcCol(col, key); err != nil {
			return err
		}
	}
	return nil
}

// clearChunkDataAndHeaders deletes the chunks created below minChunkHeight
// together with the height indexes of chunks and headers. Block headers are
// kept for header sync. The chunk tail never moves backwards.
func (u *ChainStoreUpdate) clearChunkDataAndHeaders(minChunkHeight uint64) error {
	chunkTail, err := u.ChunkTail()
	if err != nil {
		return err
	}
	for height := chunkTail; height < minChunkHeight; height++ {
		chunkHashes, err := u.AllChunkHashesByHeight(height)
		if err != nil {
			return err
		}
		for _, chunkHash := range chunkHashes {
			if err := u.clearChunk(chunkHash); err != nil {
				return err
			}
		}
		key := operation.HeightKey(height)
		if err := u.gcCol(operation.ColChunkHashesByHeight, key); err != nil {
			return err
		}
		if err := u.gcCol(operation.ColHeaderHashesByHeight, key); err != nil {
			return err
		}
	}
	if minChunkHeight > chunkTail {
		return u.updateChunkTail(minChunkHeight)
	}
	return nil
}

// clearChunkDataAtHeight deletes the chunks created at the height.
func (u *ChainStoreUpdate) clearChunkDataAtHeight(height uint64) error {
	chunkHashes, err := u.AllChunkHashesByHeight(height)
	if err != nil {
		return err
	}
	for _, chunkHash := range chunkHashes {
		if err := u.clearChunk(chunkHash); err != nil {
			return err
		}
	}
	return u.gcCol(operation.ColChunkHashesByHeight, operation.HeightKey(height))
}

// clearHeaderDataForHeights drops the header hash index of the heights
// start..end, both inclusive. The headers themselves are kept.
func (u *ChainStoreUpdate) clearHeaderDataForHeights(start, end uint64) error {
	for height := start; height <= end; height++ {
		if err := u.gcCol(operation.ColHeaderHashesByHeight, operation.HeightKey(height)); err != nil {
			return err
		}
		if height == end {
			break
		}
	}
	return nil
}

// clearRedundantChunkData deletes partial chunks and invalid chunk markers of
// up to limit non-empty heights, from the chunk tail towards gcStopHeight.
// Partial chunks can be rebuilt from chunks, so archival nodes keep only the
// latter. The chunk tail moves past the heights visited.
func (u *ChainStoreUpdate) clearRedundantChunkData(gcStopHeight uint64, limit uint64) error {
	height, err := u.ChunkTail()
	if err != nil {
		return err
	}
	remaining := limit
	for height < gcStopHeight && remaining > 0 {
		chunkHashes, err := u.AllChunkHashesByHeight(height)
		if err != nil {
			return err
		}
		height++
		if len(chunkHashes) == 0 {
			continue
		}
		remaining--
		for _, chunkHash := range chunkHashes {
			key := operation.BlockHashKey(chunkHash)
			if err := u.gcCol(operation.ColPartialChunks, key); err != nil {
				return err
			}
			if err := u.gcCol(operation.ColInvalidChunks, key); err != nil {
				return err
			}
		}
	}
	return u.updateChunkTail(height)
}

// ClearHeadBlockData deletes everything indexed by the head block and unlinks
// it from its parent. Chunks created at the head height and the header index
// from the head up to the header head are dropped too. The caller rewinds the
// head pointers.
func (u *ChainStoreUpdate) ClearHeadBlockData(em module.EpochManager) error {
	head, err := u.Head()
	if err != nil {
		return err
	}
	headerHead, err := u.HeaderHead()
	if err != nil {
		return err
	}
	blockHash := head.LastBlockHash
	block, err := u.Block(blockHash)
	if err != nil {
		return storage.RequirePresent(err, "block data of head %v is already cleaned", blockHash)
	}
	header := block.Header
	layout, err := em.ShardLayout(header.EpochID)
	if err != nil {
		return fmt.Errorf("could not get shard layout of epoch %v: %w", header.EpochID, err)
	}

	for _, shardID := range layout.ShardIDs {
		uidKey := operation.BlockShardUIDKey(blockHash, layout.ShardUID(shardID))
		shardKey := operation.BlockShardKey(blockHash, shardID)
		if err := u.gcCol(operation.ColTrieChanges, uidKey); err != nil {
			return err
		}
		if err := u.gcOutgoingReceipts(blockHash, shardID); err != nil {
			return err
		}
		for _, col := range []operation.Column{
			operation.ColIncomingReceipts,
			operation.ColStateTransitionData,
			operation.ColChunkApplyStats,
		} {
			if err := u.gcCol(col, shardKey); err != nil {
				return err
			}
		}
		if err := u.gcCol(operation.ColChunkExtra, uidKey); err != nil {
			return err
		}
		if err := u.gcStateHeader(blockHash, shardID); err != nil {
			return err
		}
	}

	hashKey := operation.BlockHashKey(blockHash)
	for _, col := range []operation.Column{
		operation.ColBlock,
		operation.ColNextBlockHashes,
		operation.ColChallengedBlocks,
		operation.ColBlocksToCatchup,
	} {
		if err := u.gcCol(col, hashKey); err != nil {
			return err
		}
	}
	if err := u.gcStateChanges(blockHash); err != nil {
		return err
	}
	if err := u.gcCol(operation.ColBlockRefCount, hashKey); err != nil {
		return err
	}
	if err := u.gcOutcomes(block); err != nil {
		return err
	}
	if err := u.gcBlockInfo(em, blockHash); err != nil {
		return err
	}
	for _, col := range []operation.Column{operation.ColStateDlInfos, operation.ColStateSyncNewChunks} {
		if err := u.gcCol(col, hashKey); err != nil {
			return err
		}
	}

	if err := u.decBlockRefcount(header.PrevHash); err != nil {
		return err
	}
	if err := u.gcCol(operation.ColNextBlockHashes, operation.BlockHashKey(header.PrevHash)); err != nil {
		return err
	}

	if err := u.gcColBlockPerHeight(blockHash, header.Height, header.EpochID); err != nil {
		return err
	}
	if err := u.clearChunkDataAtHeight(header.Height); err != nil {
		return err
	}
	return u.clearHeaderDataForHeights(header.Height, headerHead.Height)
}
