package operation

import (
	"bytes"
	"sort"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
)

func InsertHeader(w storage.Writer, blockHash flow.Identifier, header *flow.Header) error {
	return UpsertByKey(w, MakePrefix(ColBlockHeader, blockHash), header)
}

func RetrieveHeader(r storage.Reader, blockHash flow.Identifier, header *flow.Header) error {
	return RetrieveByKey(r, MakePrefix(ColBlockHeader, blockHash), header)
}

func InsertBlock(w storage.Writer, blockHash flow.Identifier, block *flow.Block) error {
	return UpsertByKey(w, MakePrefix(ColBlock, blockHash), block)
}

func RetrieveBlock(r storage.Reader, blockHash flow.Identifier, block *flow.Block) error {
	return RetrieveByKey(r, MakePrefix(ColBlock, blockHash), block)
}

// IndexCanonicalHeight maps a height to the hash of the canonical block at it.
func IndexCanonicalHeight(w storage.Writer, height uint64, blockHash flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColBlockHeight, height), blockHash)
}

func LookupCanonicalHeight(r storage.Reader, height uint64, blockHash *flow.Identifier) error {
	return RetrieveByKey(r, MakePrefix(ColBlockHeight, height), blockHash)
}

// blockPerHeightEntry is the stored form of one epoch of the per-height index.
type blockPerHeightEntry struct {
	EpochID flow.EpochID
	Hashes  []flow.Identifier
}

// UpsertBlocksPerHeight stores the epoch→hashes map of a height.
func UpsertBlocksPerHeight(w storage.Writer, height uint64, index flow.BlockHashesByEpoch) error {
	epochs := make([]flow.EpochID, 0, len(index))
	for epoch := range index {
		epochs = append(epochs, epoch)
	}
	sort.Slice(epochs, func(i, j int) bool { return bytes.Compare(epochs[i][:], epochs[j][:]) < 0 })

	entries := make([]blockPerHeightEntry, 0, len(epochs))
	for _, epoch := range epochs {
		hashes := make([]flow.Identifier, 0, len(index[epoch]))
		for hash := range index[epoch] {
			hashes = append(hashes, hash)
		}
		sort.Slice(hashes, func(i, j int) bool { return bytes.Compare(hashes[i][:], hashes[j][:]) < 0 })
		entries = append(entries, blockPerHeightEntry{EpochID: epoch, Hashes: hashes})
	}
	return UpsertByKey(w, MakePrefix(ColBlockPerHeight, height), entries)
}

// RetrieveBlocksPerHeight reads the epoch→hashes map of a height.
// Error returns:
//   - [storage.ErrNotFound] if no block is indexed at the height
func RetrieveBlocksPerHeight(r storage.Reader, height uint64) (flow.BlockHashesByEpoch, error) {
	var entries []blockPerHeightEntry
	err := RetrieveByKey(r, MakePrefix(ColBlockPerHeight, height), &entries)
	if err != nil {
		return nil, err
	}
	index := make(flow.BlockHashesByEpoch, len(entries))
	for _, entry := range entries {
		set := make(map[flow.Identifier]struct{}, len(entry.Hashes))
		for _, hash := range entry.Hashes {
			set[hash] = struct{}{}
		}
		index[entry.EpochID] = set
	}
	return index, nil
}

func RemoveBlocksPerHeight(w storage.Writer, height uint64) error {
	return RemoveByKey(w, MakePrefix(ColBlockPerHeight, height))
}

func UpsertBlockRefcount(w storage.Writer, blockHash flow.Identifier, refcount uint64) error {
	return UpsertByKey(w, MakePrefix(ColBlockRefCount, blockHash), refcount)
}

func RetrieveBlockRefcount(r storage.Reader, blockHash flow.Identifier, refcount *uint64) error {
	return RetrieveByKey(r, MakePrefix(ColBlockRefCount, blockHash), refcount)
}

func UpsertNextBlockHash(w storage.Writer, blockHash flow.Identifier, next flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColNextBlockHashes, blockHash), next)
}

func RetrieveNextBlockHash(r storage.Reader, blockHash flow.Identifier, next *flow.Identifier) error {
	return RetrieveByKey(r, MakePrefix(ColNextBlockHashes, blockHash), next)
}

func UpsertBlockInfo(w storage.Writer, blockHash flow.Identifier, info *flow.BlockInfo) error {
	return UpsertByKey(w, MakePrefix(ColBlockInfo, blockHash), info)
}

func RetrieveBlockInfo(r storage.Reader, blockHash flow.Identifier, info *flow.BlockInfo) error {
	return RetrieveByKey(r, MakePrefix(ColBlockInfo, blockHash), info)
}

func MarkHeightProcessed(w storage.Writer, height uint64) error {
	return UpsertByKey(w, MakePrefix(ColProcessedBlockHeights, height), true)
}

func HeightProcessed(r storage.Reader, height uint64) (bool, error) {
	return KeyExists(r, MakePrefix(ColProcessedBlockHeights, height))
}

func UpsertHeaderHashesByHeight(w storage.Writer, height uint64, hashes []flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColHeaderHashesByHeight, height), hashes)
}

func RetrieveHeaderHashesByHeight(r storage.Reader, height uint64, hashes *[]flow.Identifier) error {
	return RetrieveByKey(r, MakePrefix(ColHeaderHashesByHeight, height), hashes)
}

// InsertBlockToCatchup queues a block whose shards must be caught up, keyed by
// the block hash.
func InsertBlockToCatchup(w storage.Writer, blockHash flow.Identifier, pending []flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColBlocksToCatchup, blockHash), pending)
}

func MarkBlockChallenged(w storage.Writer, blockHash flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColChallengedBlocks, blockHash), true)
}

// InsertStateSyncInfo records the shards a block started state sync for.
func InsertStateSyncInfo(w storage.Writer, blockHash flow.Identifier, shards []flow.ShardID) error {
	return UpsertByKey(w, MakePrefix(ColStateDlInfos, blockHash), shards)
}

// InsertStateSyncNewChunks stores, per shard, how many new chunks were seen
// since the epoch start, up to the block.
func InsertStateSyncNewChunks(w storage.Writer, blockHash flow.Identifier, counts []uint64) error {
	return UpsertByKey(w, MakePrefix(ColStateSyncNewChunks, blockHash), counts)
}

func InsertStateChange(w storage.Writer, blockHash flow.Identifier, change *flow.StateChange) error {
	return UpsertByKey(w, ColStateChanges.Key(StateChangesKey(blockHash, change.Key)), change)
}

// StateChangesPrefix is the prefix of all state change rows of the block.
func StateChangesPrefix(blockHash flow.Identifier) []byte {
	return MakePrefix(ColStateChanges, blockHash)
}
