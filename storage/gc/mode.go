package gc

import (
	"github.com/shardchain/node/storage/trie"
)

// Mode selects how ClearBlockData treats a block. It is one of ForkMode,
// CanonicalMode or StateSyncMode.
type Mode interface {
	// String names the mode in logs and metrics.
	String() string
	isMode()
}

// ForkMode deletes a block of an abandoned fork. The trie nodes the block
// inserted are released and the parent loses a child.
type ForkMode struct {
	Tries *trie.ShardTries
}

// CanonicalMode deletes the parent of a canonical block that just became the
// tail. The trie nodes the block deleted are released.
type CanonicalMode struct {
	Tries *trie.ShardTries
}

// StateSyncMode deletes a block ahead of a state sync. Trie state is dropped
// wholesale by the caller, so trie changes are discarded unapplied.
type StateSyncMode struct {
	// ClearBlockInfo is false for the parent of the sync block, whose epoch
	// bookkeeping anchors the node after the sync.
	ClearBlockInfo bool
}

func (ForkMode) String() string      { return "fork" }
func (CanonicalMode) String() string { return "canonical" }
func (StateSyncMode) String() string { return "state_sync" }

func (ForkMode) isMode()      {}
func (CanonicalMode) isMode() {}
func (StateSyncMode) isMode() {}
