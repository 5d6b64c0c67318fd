package operation

import (
	"encoding/binary"
	"fmt"

	"github.com/shardchain/node/model/flow"
)

// The helpers below build column-relative keys: the key without the column
// code. Full keys are obtained with Column.Key.

// HeightKey encodes a height as a big-endian u64.
func HeightKey(height uint64) []byte {
	return EncodeKeyPart(height)
}

// BlockHashKey is the key of block-hash indexed rows.
func BlockHashKey(blockHash flow.Identifier) []byte {
	key := make([]byte, flow.IdentifierLen)
	copy(key, blockHash[:])
	return key
}

// BlockShardKey is block_hash ‖ shard_id (u64 LE).
func BlockShardKey(blockHash flow.Identifier, shardID flow.ShardID) []byte {
	key := make([]byte, 0, flow.IdentifierLen+8)
	key = append(key, blockHash[:]...)
	return append(key, EncodeKeyPart(shardID)...)
}

// ParseBlockShardKey is the inverse of BlockShardKey.
func ParseBlockShardKey(key []byte) (flow.Identifier, flow.ShardID, error) {
	if len(key) != flow.IdentifierLen+8 {
		return flow.ZeroID, 0, fmt.Errorf("invalid block shard key length %d", len(key))
	}
	blockHash, err := flow.ByteSliceToId(key[:flow.IdentifierLen])
	if err != nil {
		return flow.ZeroID, 0, err
	}
	return blockHash, flow.ShardID(binary.LittleEndian.Uint64(key[flow.IdentifierLen:])), nil
}

// BlockShardUIDKey is block_hash ‖ shard_uid.
func BlockShardUIDKey(blockHash flow.Identifier, uid flow.ShardUID) []byte {
	key := make([]byte, 0, flow.IdentifierLen+flow.ShardUIDLen)
	key = append(key, blockHash[:]...)
	return append(key, uid.Bytes()...)
}

// OutcomeKey is outcome_id ‖ block_hash.
func OutcomeKey(outcomeID flow.Identifier, blockHash flow.Identifier) []byte {
	key := make([]byte, 0, 2*flow.IdentifierLen)
	key = append(key, outcomeID[:]...)
	return append(key, blockHash[:]...)
}

// StateHeaderKey is shard_id ‖ sync_hash.
func StateHeaderKey(shardID flow.ShardID, syncHash flow.Identifier) []byte {
	key := make([]byte, 0, 8+flow.IdentifierLen)
	key = append(key, EncodeKeyPart(shardID)...)
	return append(key, syncHash[:]...)
}

// StatePartKey is sync_hash ‖ shard_id ‖ part_id, both u64 LE.
func StatePartKey(syncHash flow.Identifier, shardID flow.ShardID, partID uint64) []byte {
	key := make([]byte, 0, flow.IdentifierLen+16)
	key = append(key, syncHash[:]...)
	key = append(key, EncodeKeyPart(shardID)...)
	return binary.LittleEndian.AppendUint64(key, partID)
}

// StateChangesKey is block_hash ‖ raw trie key.
func StateChangesKey(blockHash flow.Identifier, trieKey []byte) []byte {
	key := make([]byte, 0, flow.IdentifierLen+len(trieKey))
	key = append(key, blockHash[:]...)
	return append(key, trieKey...)
}

// StateNodeKey is shard_uid ‖ node_hash.
func StateNodeKey(uid flow.ShardUID, nodeHash flow.Identifier) []byte {
	key := make([]byte, 0, flow.ShardUIDLen+flow.IdentifierLen)
	key = append(key, uid.Bytes()...)
	return append(key, nodeHash[:]...)
}
