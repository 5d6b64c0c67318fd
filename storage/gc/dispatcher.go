package gc

import (
	"fmt"

	"github.com/shardchain/node/storage/operation"
)

// gcCol deletes one row of a column, given its column-relative key. It is the
// only place the deletion policy of a column is written down:
//   - refcounted columns shared between chunks lose one reference
//   - columns with a dedicated helper panic, so callers cannot skip the helper
//   - columns that are never garbage collected panic
//   - every other collectable column is deleted outright
func (u *ChainStoreUpdate) gcCol(col operation.Column, key []byte) error {
	switch col {
	case operation.ColOutgoingReceipts:
		panic("outgoing receipts must be garbage collected by calling gcOutgoingReceipts")
	case operation.ColBlockPerHeight:
		panic("block per height must be garbage collected by calling gcColBlockPerHeight")
	case operation.ColState:
		panic("trie state must be garbage collected through the trie store")

	case operation.ColTransactions,
		operation.ColReceipts:
		return operation.DecrementRefcountByKey(u.Reader(), u.writer(), col.Key(key), 1)

	case operation.ColIncomingReceipts,
		operation.ColStateHeaders,
		operation.ColBlock,
		operation.ColNextBlockHashes,
		operation.ColChallengedBlocks,
		operation.ColBlocksToCatchup,
		operation.ColStateChanges,
		operation.ColBlockRefCount,
		operation.ColChunks,
		operation.ColChunkExtra,
		operation.ColPartialChunks,
		operation.ColInvalidChunks,
		operation.ColChunkHashesByHeight,
		operation.ColStateParts,
		operation.ColTrieChanges,
		operation.ColTransactionResultForBlock,
		operation.ColOutcomeIds,
		operation.ColStateDlInfos,
		operation.ColBlockInfo,
		operation.ColProcessedBlockHeights,
		operation.ColHeaderHashesByHeight,
		operation.ColStateTransitionData,
		operation.ColLatestChunkStateWitnesses,
		operation.ColLatestWitnessesByIndex,
		operation.ColInvalidChunkStateWitnesses,
		operation.ColInvalidWitnessesByIndex,
		operation.ColStateSyncNewChunks,
		operation.ColChunkApplyStats:
		return operation.RemoveByKey(u.writer(), col.Key(key))

	default:
		// BlockHeader is kept for header sync; the rest are anchored at
		// genesis, epoch scoped or peer data.
		panic(fmt.Sprintf("unreachable: column %v is not garbage collected", col))
	}
}
