// Package trie stores the nodes of the per-shard state tries. Nodes are content
// addressed and refcounted under a shard uid prefix; a node disappears when its
// count reaches zero.
package trie

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// shardUIDPrefixedColumns hold rows keyed by shard uid first, so dropping a
// shard clears a contiguous key range in each of them.
var shardUIDPrefixedColumns = []operation.Column{
	operation.ColState,
	operation.ColFlatState,
	operation.ColFlatStateChanges,
	operation.ColFlatStateDeltaMetadata,
	operation.ColFlatStorageStatus,
}

// ShardTries is the write side of the trie node table used by block
// application and garbage collection.
type ShardTries struct {
	log zerolog.Logger
}

func NewShardTries(log zerolog.Logger) *ShardTries {
	return &ShardTries{
		log: log.With().Str("module", "shard_tries").Logger(),
	}
}

// ShardUIDMapping returns the uid whose prefix holds the trie nodes of the
// given shard. Children of a resharding read their parent's nodes until they
// diverge; shards without a mapping map to themselves.
// No errors are expected during normal operation.
func ShardUIDMapping(r storage.Reader, uid flow.ShardUID) (flow.ShardUID, error) {
	var mapped flow.ShardUID
	err := operation.RetrieveShardUIDMapping(r, uid, &mapped)
	if errors.Is(err, storage.ErrNotFound) {
		return uid, nil
	}
	if err != nil {
		return flow.ShardUID{}, fmt.Errorf("could not read shard uid mapping of %v: %w", uid, err)
	}
	return mapped, nil
}

// SetShardUIDMapping records that the child shard reads the state stored under
// mapped. Mapping a shard to itself marks it as diverged.
func SetShardUIDMapping(w storage.Writer, child flow.ShardUID, mapped flow.ShardUID) error {
	return operation.UpsertShardUIDMapping(w, child, mapped)
}

func nodeKey(r storage.Reader, uid flow.ShardUID, hash flow.Identifier) ([]byte, error) {
	mapped, err := ShardUIDMapping(r, uid)
	if err != nil {
		return nil, err
	}
	return operation.ColState.Key(operation.StateNodeKey(mapped, hash)), nil
}

// IncrementRefcount adds delta references to the node, storing its value on
// first insertion.
func (t *ShardTries) IncrementRefcount(rw storage.ReaderBatchWriter, uid flow.ShardUID, hash flow.Identifier, value []byte, delta uint32) error {
	key, err := nodeKey(rw.BatchReader(), uid, hash)
	if err != nil {
		return err
	}
	return operation.UpdateRefcountByKey(rw.BatchReader(), rw.Writer(), key, value, int64(delta))
}

// DecrementRefcount removes delta references from the node. Decrementing a
// node that is no longer stored is a no-op.
func (t *ShardTries) DecrementRefcount(rw storage.ReaderBatchWriter, uid flow.ShardUID, hash flow.Identifier, delta uint32) error {
	key, err := nodeKey(rw.BatchReader(), uid, hash)
	if err != nil {
		return err
	}
	return operation.UpdateRefcountByKey(rw.BatchReader(), rw.Writer(), key, nil, -int64(delta))
}

// ApplyInsertions stores the nodes a block added to the trie of the shard.
func (t *ShardTries) ApplyInsertions(rw storage.ReaderBatchWriter, changes *flow.TrieChanges, uid flow.ShardUID) error {
	for _, insertion := range changes.Insertions {
		err := t.IncrementRefcount(rw, uid, insertion.Hash, insertion.Value, insertion.RC)
		if err != nil {
			return fmt.Errorf("could not insert trie node %v: %w", insertion.Hash, err)
		}
	}
	return nil
}

// RevertInsertions undoes ApplyInsertions. It is used when a fork block is
// garbage collected.
func (t *ShardTries) RevertInsertions(rw storage.ReaderBatchWriter, changes *flow.TrieChanges, uid flow.ShardUID) error {
	for _, insertion := range changes.Insertions {
		err := t.DecrementRefcount(rw, uid, insertion.Hash, insertion.RC)
		if err != nil {
			return fmt.Errorf("could not revert trie node %v: %w", insertion.Hash, err)
		}
	}
	return nil
}

// ApplyDeletions drops the references to the nodes a block removed from the
// trie of the shard. It is applied once the block falls behind the tail.
func (t *ShardTries) ApplyDeletions(rw storage.ReaderBatchWriter, changes *flow.TrieChanges, uid flow.ShardUID) error {
	for _, deletion := range changes.Deletions {
		err := t.DecrementRefcount(rw, uid, deletion.Hash, deletion.RC)
		if err != nil {
			return fmt.Errorf("could not delete trie node %v: %w", deletion.Hash, err)
		}
	}
	return nil
}

// DeleteShardUIDPrefixedState drops every row stored under the shard uid.
func (t *ShardTries) DeleteShardUIDPrefixedState(rw storage.ReaderBatchWriter, uid flow.ShardUID) error {
	for _, col := range shardUIDPrefixedColumns {
		err := operation.RemoveByKeyPrefix(rw.BatchReader(), rw.Writer(), operation.MakePrefix(col, uid))
		if err != nil {
			return fmt.Errorf("could not delete %v state of shard %v: %w", col, uid, err)
		}
	}
	t.log.Info().Str("shard_uid", uid.String()).Msg("deleted shard state")
	return nil
}

// DeleteAllState drops every trie node of every shard, together with the
// shard uid mappings.
func (t *ShardTries) DeleteAllState(rw storage.ReaderBatchWriter) error {
	cols := append([]operation.Column{operation.ColStateShardUIDMapping}, shardUIDPrefixedColumns...)
	for _, col := range cols {
		err := operation.RemoveByKeyPrefix(rw.BatchReader(), rw.Writer(), col.Prefix())
		if err != nil {
			return fmt.Errorf("could not delete column %v: %w", col, err)
		}
	}
	t.log.Info().Msg("deleted all state")
	return nil
}

// ReadNode returns the value and refcount of a trie node.
// Error returns:
//   - [storage.ErrNotFound] if the node is not stored
func ReadNode(r storage.Reader, uid flow.ShardUID, hash flow.Identifier) ([]byte, int64, error) {
	key, err := nodeKey(r, uid, hash)
	if err != nil {
		return nil, 0, err
	}
	return operation.RetrieveRefcountedByKey(r, key)
}

// HasState reports whether any trie node is stored directly under the uid.
func HasState(r storage.Reader, uid flow.ShardUID) (bool, error) {
	keys := 0
	err := operation.IterateKeysByPrefixRange(r, operation.StateNodePrefix(uid), operation.StateNodePrefix(uid), func(key []byte) error {
		keys++
		return nil
	})
	if err != nil {
		return false, err
	}
	return keys > 0, nil
}
