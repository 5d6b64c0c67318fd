package flow

// StateHeader describes a state snapshot of a shard at a sync hash.
type StateHeader struct {
	ShardID       ShardID
	SyncHash      Identifier
	StateRoot     Identifier
	NumStateParts uint64
}

// TrieRefcountChange is a trie node insertion or deletion carrying an explicit
// refcount delta.
type TrieRefcountChange struct {
	Hash  Identifier
	Value []byte
	RC    uint32
}

// TrieChanges are the node-level changes one block applied to the trie of one
// shard.
type TrieChanges struct {
	OldRoot    Identifier
	NewRoot    Identifier
	Insertions []TrieRefcountChange
	Deletions  []TrieRefcountChange
}

// StateTransitionData is the transient per-(block, shard) data kept to validate
// chunk state witnesses.
type StateTransitionData struct {
	BaseState        [][]byte
	ReceiptsHash     Identifier
	ContractAccesses []Identifier
}

// ChunkExtra is the post-state of a shard after applying a chunk.
type ChunkExtra struct {
	StateRoot Identifier
	GasUsed   uint64
	GasLimit  uint64
}

// StateChange is one raw key change within a block, stored under the block
// hash prefix.
type StateChange struct {
	Key   []byte
	Value []byte
}

// Outcome is a transaction or receipt execution outcome.
type Outcome struct {
	OutcomeID Identifier
	BlockHash Identifier
	Logs      []string
	GasBurnt  uint64
}
