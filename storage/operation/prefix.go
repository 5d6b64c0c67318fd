package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/shardchain/node/model/flow"
)

// Column is the one-byte code every key of a column starts with.
type Column byte

const (
	// codes for special database markers
	ColDbVersion Column = 1
	ColMisc      Column = 2
	ColBlockMisc Column = 3

	// codes for block-hash indexed data
	ColBlock              Column = 10
	ColBlockHeader        Column = 11
	ColBlockHeight        Column = 12
	ColBlockInfo          Column = 13
	ColBlockPerHeight     Column = 14
	ColBlockRefCount      Column = 15
	ColNextBlockHashes    Column = 16
	ColBlocksToCatchup    Column = 17
	ColChallengedBlocks   Column = 18
	ColStateDlInfos       Column = 19
	ColStateChanges       Column = 20
	ColBlockMerkleTree    Column = 21
	ColBlockOrdinal       Column = 22
	ColStateSyncNewChunks Column = 23
	ColStateSyncHashes    Column = 24

	// codes for height indexes
	ColProcessedBlockHeights Column = 30
	ColHeaderHashesByHeight  Column = 31
	ColChunkHashesByHeight   Column = 32

	// codes for chunk data
	ColChunks          Column = 40
	ColPartialChunks   Column = 41
	ColInvalidChunks   Column = 42
	ColChunkExtra      Column = 43
	ColChunkApplyStats Column = 44

	// codes for receipts, transactions and outcomes
	ColIncomingReceipts          Column = 50
	ColOutgoingReceipts          Column = 51
	ColTransactions              Column = 52
	ColReceipts                  Column = 53
	ColTransactionResultForBlock Column = 54
	ColOutcomeIds                Column = 55

	// codes for state and state sync
	ColStateHeaders               Column = 60
	ColStateParts                 Column = 61
	ColTrieChanges                Column = 62
	ColState                      Column = 63
	ColStateShardUIDMapping       Column = 64
	ColStateTransitionData        Column = 65
	ColStateChangesForSplitStates Column = 66
	ColCachedContractCode         Column = 67
	ColFlatState                  Column = 68
	ColFlatStateChanges           Column = 69
	ColFlatStateDeltaMetadata     Column = 70
	ColFlatStorageStatus          Column = 71

	// codes for chunk state witnesses
	ColLatestChunkStateWitnesses  Column = 80
	ColLatestWitnessesByIndex     Column = 81
	ColInvalidChunkStateWitnesses Column = 82
	ColInvalidWitnessesByIndex    Column = 83

	// codes for epoch data
	ColEpochInfo              Column = 90
	ColEpochStart             Column = 91
	ColEpochValidatorInfo     Column = 92
	ColEpochLightClientBlocks Column = 93
	ColEpochSyncProof         Column = 94

	// codes for peer data
	ColAccountAnnouncements      Column = 100
	ColPeerComponent             Column = 101
	ColLastComponentNonce        Column = 102
	ColComponentEdges            Column = 103
	ColRecentOutboundConnections Column = 104
)

var columnNames = map[Column]string{
	ColDbVersion:                  "DbVersion",
	ColMisc:                       "Misc",
	ColBlockMisc:                  "BlockMisc",
	ColBlock:                      "Block",
	ColBlockHeader:                "BlockHeader",
	ColBlockHeight:                "BlockHeight",
	ColBlockInfo:                  "BlockInfo",
	ColBlockPerHeight:             "BlockPerHeight",
	ColBlockRefCount:              "BlockRefCount",
	ColNextBlockHashes:            "NextBlockHashes",
	ColBlocksToCatchup:            "BlocksToCatchup",
	ColChallengedBlocks:           "ChallengedBlocks",
	ColStateDlInfos:               "StateDlInfos",
	ColStateChanges:               "StateChanges",
	ColBlockMerkleTree:            "BlockMerkleTree",
	ColBlockOrdinal:               "BlockOrdinal",
	ColStateSyncNewChunks:         "StateSyncNewChunks",
	ColStateSyncHashes:            "StateSyncHashes",
	ColProcessedBlockHeights:      "ProcessedBlockHeights",
	ColHeaderHashesByHeight:       "HeaderHashesByHeight",
	ColChunkHashesByHeight:        "ChunkHashesByHeight",
	ColChunks:                     "Chunks",
	ColPartialChunks:              "PartialChunks",
	ColInvalidChunks:              "InvalidChunks",
	ColChunkExtra:                 "ChunkExtra",
	ColChunkApplyStats:            "ChunkApplyStats",
	ColIncomingReceipts:           "IncomingReceipts",
	ColOutgoingReceipts:           "OutgoingReceipts",
	ColTransactions:               "Transactions",
	ColReceipts:                   "Receipts",
	ColTransactionResultForBlock:  "TransactionResultForBlock",
	ColOutcomeIds:                 "OutcomeIds",
	ColStateHeaders:               "StateHeaders",
	ColStateParts:                 "StateParts",
	ColTrieChanges:                "TrieChanges",
	ColState:                      "State",
	ColStateShardUIDMapping:       "StateShardUIdMapping",
	ColStateTransitionData:        "StateTransitionData",
	ColStateChangesForSplitStates: "StateChangesForSplitStates",
	ColCachedContractCode:         "CachedContractCode",
	ColFlatState:                  "FlatState",
	ColFlatStateChanges:           "FlatStateChanges",
	ColFlatStateDeltaMetadata:     "FlatStateDeltaMetadata",
	ColFlatStorageStatus:          "FlatStorageStatus",
	ColLatestChunkStateWitnesses:  "LatestChunkStateWitnesses",
	ColLatestWitnessesByIndex:     "LatestWitnessesByIndex",
	ColInvalidChunkStateWitnesses: "InvalidChunkStateWitnesses",
	ColInvalidWitnessesByIndex:    "InvalidWitnessesByIndex",
	ColEpochInfo:                  "EpochInfo",
	ColEpochStart:                 "EpochStart",
	ColEpochValidatorInfo:         "EpochValidatorInfo",
	ColEpochLightClientBlocks:     "EpochLightClientBlocks",
	ColEpochSyncProof:             "EpochSyncProof",
	ColAccountAnnouncements:       "AccountAnnouncements",
	ColPeerComponent:              "PeerComponent",
	ColLastComponentNonce:         "LastComponentNonce",
	ColComponentEdges:             "ComponentEdges",
	ColRecentOutboundConnections:  "RecentOutboundConnections",
}

func (c Column) String() string {
	name, ok := columnNames[c]
	if !ok {
		return fmt.Sprintf("Column(%d)", byte(c))
	}
	return name
}

// AllColumns returns every known column in code order.
func AllColumns() []Column {
	cols := make([]Column, 0, len(columnNames))
	for code := 0; code < 256; code++ {
		if _, ok := columnNames[Column(code)]; ok {
			cols = append(cols, Column(code))
		}
	}
	return cols
}

// Key prepends the column code to a column-relative key.
func (c Column) Key(key []byte) []byte {
	full := make([]byte, 0, 1+len(key))
	full = append(full, byte(c))
	return append(full, key...)
}

// Prefix returns the prefix shared by all keys of the column.
func (c Column) Prefix() []byte {
	return []byte{byte(c)}
}

// MakePrefix builds the full key from a column code and key parts.
func MakePrefix(col Column, keys ...interface{}) []byte {
	prefix := make([]byte, 1)
	prefix[0] = byte(col)
	for _, key := range keys {
		prefix = append(prefix, EncodeKeyPart(key)...)
	}
	return prefix
}

// EncodeKeyPart encodes one key part. Heights are big-endian so that keys sort
// by height. Shard ids are little-endian u64, matching the block-shard key
// layout of the chain database.
func EncodeKeyPart(v interface{}) []byte {
	switch i := v.(type) {
	case uint8:
		return []byte{i}
	case uint32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, i)
		return b
	case uint64:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, i)
		return b
	case string:
		return []byte(i)
	case []byte:
		return i
	case flow.Identifier:
		return i[:]
	case flow.EpochID:
		return i[:]
	case flow.ShardID:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(i))
		return b
	case flow.ShardUID:
		return i.Bytes()
	default:
		panic(fmt.Sprintf("unsupported type to convert (%T)", v))
	}
}
