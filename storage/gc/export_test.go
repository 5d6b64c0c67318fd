package gc

import (
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/trie"
)

// Update runs fn against a fresh update of the collector and commits it.
func (c *Collector) Update(fn func(u *ChainStoreUpdate) error) error {
	return c.update(fn)
}

func (u *ChainStoreUpdate) GCCol(col operation.Column, key []byte) error {
	return u.gcCol(col, key)
}

func (u *ChainStoreUpdate) GCParentShardAfterResharding(em module.EpochManager, tries *trie.ShardTries, blockHash flow.Identifier) error {
	return u.gcParentShardAfterResharding(em, tries, blockHash)
}

func (u *ChainStoreUpdate) ClearChunkDataAndHeaders(minChunkHeight uint64) error {
	return u.clearChunkDataAndHeaders(minChunkHeight)
}
