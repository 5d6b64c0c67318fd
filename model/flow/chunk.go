package flow

// ChunkHeader is the per-shard entry of a block. If no chunk was produced for a
// shard at a height, the block carries the previous chunk header again, whose
// HeightIncluded is then lower than the block height.
type ChunkHeader struct {
	ChunkHash      Identifier
	ShardID        ShardID
	HeightCreated  uint64
	HeightIncluded uint64
}

// Transaction is a signed transaction as stored in the Transactions column.
type Transaction struct {
	SignerID AccountID
	Nonce    uint64
	Payload  []byte
}

// ID returns the hash of the transaction.
func (t *Transaction) ID() Identifier {
	return MakeID(t)
}

// Receipt is an execution receipt routed between shards.
type Receipt struct {
	ReceiptID     Identifier
	PredecessorID AccountID
	ReceiverID    AccountID
	Payload       []byte
}

// ReceiptProof bundles the receipts a shard sent to another shard.
type ReceiptProof struct {
	FromShardID ShardID
	ToShardID   ShardID
	Receipts    []Receipt
}

// Chunk is the execution unit of one shard at one height.
type Chunk struct {
	ChunkHash     Identifier
	ShardID       ShardID
	HeightCreated uint64
	Transactions  []Transaction
}

// PartialChunk is the erasure-coded part of a chunk a node keeps. It can be
// derived from Chunk rows and carries the previous outgoing receipts.
type PartialChunk struct {
	ChunkHash            Identifier
	ShardID              ShardID
	HeightCreated        uint64
	Parts                [][]byte
	PrevOutgoingReceipts []ReceiptProof
}
