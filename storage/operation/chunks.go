package operation

import (
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
)

func InsertChunk(w storage.Writer, chunk *flow.Chunk) error {
	return UpsertByKey(w, MakePrefix(ColChunks, chunk.ChunkHash), chunk)
}

func RetrieveChunk(r storage.Reader, chunkHash flow.Identifier, chunk *flow.Chunk) error {
	return RetrieveByKey(r, MakePrefix(ColChunks, chunkHash), chunk)
}

func InsertPartialChunk(w storage.Writer, partial *flow.PartialChunk) error {
	return UpsertByKey(w, MakePrefix(ColPartialChunks, partial.ChunkHash), partial)
}

func RetrievePartialChunk(r storage.Reader, chunkHash flow.Identifier, partial *flow.PartialChunk) error {
	return RetrieveByKey(r, MakePrefix(ColPartialChunks, chunkHash), partial)
}

func MarkChunkInvalid(w storage.Writer, chunkHash flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColInvalidChunks, chunkHash), true)
}

func UpsertChunkHashesByHeight(w storage.Writer, height uint64, hashes []flow.Identifier) error {
	return UpsertByKey(w, MakePrefix(ColChunkHashesByHeight, height), hashes)
}

func RetrieveChunkHashesByHeight(r storage.Reader, height uint64, hashes *[]flow.Identifier) error {
	return RetrieveByKey(r, MakePrefix(ColChunkHashesByHeight, height), hashes)
}

func InsertChunkExtra(w storage.Writer, blockHash flow.Identifier, uid flow.ShardUID, extra *flow.ChunkExtra) error {
	return UpsertByKey(w, ColChunkExtra.Key(BlockShardUIDKey(blockHash, uid)), extra)
}

func RetrieveChunkExtra(r storage.Reader, blockHash flow.Identifier, uid flow.ShardUID, extra *flow.ChunkExtra) error {
	return RetrieveByKey(r, ColChunkExtra.Key(BlockShardUIDKey(blockHash, uid)), extra)
}

// InsertChunkApplyStats stores the gas used to apply the chunk of a shard in a block.
func InsertChunkApplyStats(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, gasUsed uint64) error {
	return UpsertByKey(w, ColChunkApplyStats.Key(BlockShardKey(blockHash, shardID)), gasUsed)
}

func InsertIncomingReceipts(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, proofs []flow.ReceiptProof) error {
	return UpsertByKey(w, ColIncomingReceipts.Key(BlockShardKey(blockHash, shardID)), proofs)
}

func InsertOutgoingReceipts(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, receipts []flow.Receipt) error {
	return UpsertByKey(w, ColOutgoingReceipts.Key(BlockShardKey(blockHash, shardID)), receipts)
}

func RetrieveOutgoingReceipts(r storage.Reader, blockHash flow.Identifier, shardID flow.ShardID, receipts *[]flow.Receipt) error {
	return RetrieveByKey(r, ColOutgoingReceipts.Key(BlockShardKey(blockHash, shardID)), receipts)
}

// IncrementTransaction stores a transaction or bumps its refcount when it is
// already referenced by another chunk.
func IncrementTransaction(r storage.Reader, w storage.Writer, tx *flow.Transaction) error {
	return IncrementRefcountByKey(r, w, MakePrefix(ColTransactions, tx.ID()), tx, 1)
}

// RetrieveTransaction returns the transaction and its refcount.
func RetrieveTransaction(r storage.Reader, txHash flow.Identifier, tx *flow.Transaction) (int64, error) {
	return RetrieveRefcountedEntity(r, MakePrefix(ColTransactions, txHash), tx)
}

func IncrementReceipt(r storage.Reader, w storage.Writer, receipt *flow.Receipt) error {
	return IncrementRefcountByKey(r, w, MakePrefix(ColReceipts, receipt.ReceiptID), receipt, 1)
}

func RetrieveReceipt(r storage.Reader, receiptID flow.Identifier, receipt *flow.Receipt) (int64, error) {
	return RetrieveRefcountedEntity(r, MakePrefix(ColReceipts, receiptID), receipt)
}

// InsertOutcome stores an execution outcome under outcome_id ‖ block_hash.
func InsertOutcome(w storage.Writer, outcome *flow.Outcome) error {
	return UpsertByKey(w, ColTransactionResultForBlock.Key(OutcomeKey(outcome.OutcomeID, outcome.BlockHash)), outcome)
}

func RetrieveOutcome(r storage.Reader, outcomeID flow.Identifier, blockHash flow.Identifier, outcome *flow.Outcome) error {
	return RetrieveByKey(r, ColTransactionResultForBlock.Key(OutcomeKey(outcomeID, blockHash)), outcome)
}

func UpsertOutcomeIDs(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, ids []flow.Identifier) error {
	return UpsertByKey(w, ColOutcomeIds.Key(BlockShardKey(blockHash, shardID)), ids)
}

func RetrieveOutcomeIDs(r storage.Reader, blockHash flow.Identifier, shardID flow.ShardID, ids *[]flow.Identifier) error {
	return RetrieveByKey(r, ColOutcomeIds.Key(BlockShardKey(blockHash, shardID)), ids)
}
