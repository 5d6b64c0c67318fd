package operation

import (
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
)

func InsertStateHeader(w storage.Writer, header *flow.StateHeader) error {
	return UpsertByKey(w, ColStateHeaders.Key(StateHeaderKey(header.ShardID, header.SyncHash)), header)
}

func RetrieveStateHeader(r storage.Reader, shardID flow.ShardID, syncHash flow.Identifier, header *flow.StateHeader) error {
	return RetrieveByKey(r, ColStateHeaders.Key(StateHeaderKey(shardID, syncHash)), header)
}

func InsertStatePart(w storage.Writer, syncHash flow.Identifier, shardID flow.ShardID, partID uint64, part []byte) error {
	return UpsertByKey(w, ColStateParts.Key(StatePartKey(syncHash, shardID, partID)), part)
}

func StatePartExists(r storage.Reader, syncHash flow.Identifier, shardID flow.ShardID, partID uint64) (bool, error) {
	return KeyExists(r, ColStateParts.Key(StatePartKey(syncHash, shardID, partID)))
}

func InsertTrieChanges(w storage.Writer, blockHash flow.Identifier, uid flow.ShardUID, changes *flow.TrieChanges) error {
	return UpsertByKey(w, ColTrieChanges.Key(BlockShardUIDKey(blockHash, uid)), changes)
}

func RetrieveTrieChanges(r storage.Reader, blockHash flow.Identifier, uid flow.ShardUID, changes *flow.TrieChanges) error {
	return RetrieveByKey(r, ColTrieChanges.Key(BlockShardUIDKey(blockHash, uid)), changes)
}

func TrieChangesExist(r storage.Reader, blockHash flow.Identifier, uid flow.ShardUID) (bool, error) {
	return KeyExists(r, ColTrieChanges.Key(BlockShardUIDKey(blockHash, uid)))
}

func InsertStateTransitionData(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, data *flow.StateTransitionData) error {
	return UpsertByKey(w, ColStateTransitionData.Key(BlockShardKey(blockHash, shardID)), data)
}

func StateTransitionDataExists(r storage.Reader, blockHash flow.Identifier, shardID flow.ShardID) (bool, error) {
	return KeyExists(r, ColStateTransitionData.Key(BlockShardKey(blockHash, shardID)))
}

func UpsertShardUIDMapping(w storage.Writer, child flow.ShardUID, mapped flow.ShardUID) error {
	return UpsertByKey(w, MakePrefix(ColStateShardUIDMapping, child), mapped)
}

func RetrieveShardUIDMapping(r storage.Reader, child flow.ShardUID, mapped *flow.ShardUID) error {
	return RetrieveByKey(r, MakePrefix(ColStateShardUIDMapping, child), mapped)
}

// StateNodePrefix is the prefix of all trie nodes stored under the shard uid.
func StateNodePrefix(uid flow.ShardUID) []byte {
	return MakePrefix(ColState, uid)
}
