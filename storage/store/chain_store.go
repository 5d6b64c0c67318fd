package store

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module"
	"github.com/shardchain/node/module/metrics"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// DefaultHeaderCacheSize is the number of block headers kept in memory.
const DefaultHeaderCacheSize = 1000

// ChainStore is the persistent chain: blocks, chunks, their auxiliary columns
// and the head/tail scalars. Reads through the embedded Access observe the
// committed database state.
type ChainStore struct {
	*Access
	db  storage.DB
	log zerolog.Logger
}

// NewChainStore creates a chain store over the database.
func NewChainStore(log zerolog.Logger, collector module.CacheMetrics, db storage.DB) *ChainStore {
	retrieve := func(r storage.Reader, blockHash flow.Identifier) (*flow.Header, error) {
		var header flow.Header
		err := operation.RetrieveHeader(r, blockHash, &header)
		return &header, err
	}

	headers := newCache(collector, metrics.ResourceHeader,
		withLimit[flow.Identifier, *flow.Header](DefaultHeaderCacheSize),
		withRetrieve(retrieve))

	return &ChainStore{
		Access: &Access{r: db.Reader(), headers: headers},
		db:     db,
		log:    log.With().Str("module", "chain_store").Logger(),
	}
}

// DB returns the database of the store.
func (s *ChainStore) DB() storage.DB {
	return s.db
}

// ReadsFrom returns an Access reading through r and sharing the header cache.
// Pending updates pass their batch reader here.
func (s *ChainStore) ReadsFrom(r storage.Reader) *Access {
	return &Access{r: r, headers: s.headers}
}

// SaveGenesis initializes the chain with the genesis block: head, header head,
// final head, tail and chunk tail all point at it.
func (s *ChainStore) SaveGenesis(rw storage.ReaderBatchWriter, genesis *flow.Block) error {
	header := genesis.Header
	if !header.IsGenesis() {
		return fmt.Errorf("block at height %d is not a genesis block", header.Height)
	}
	w := rw.Writer()
	if err := operation.UpsertHeight(w, operation.KeyGenesisHeight, header.Height); err != nil {
		return err
	}
	if err := operation.UpsertGenesisHash(w, genesis.ID()); err != nil {
		return err
	}
	if err := s.SaveBlock(rw, genesis); err != nil {
		return err
	}
	tip := flow.TipFromHeader(header)
	for _, name := range [][]byte{operation.KeyHead, operation.KeyHeaderHead, operation.KeyFinalHead} {
		if err := operation.UpsertTip(w, name, tip); err != nil {
			return fmt.Errorf("could not write %s: %w", name, err)
		}
	}
	if err := operation.IndexCanonicalHeight(w, header.Height, genesis.ID()); err != nil {
		return err
	}
	for _, name := range [][]byte{operation.KeyTail, operation.KeyChunkTail, operation.KeyForkTail} {
		if err := operation.UpsertHeight(w, name, header.Height); err != nil {
			return fmt.Errorf("could not write %s: %w", name, err)
		}
	}
	s.log.Info().Uint64("height", header.Height).Str("block_hash", genesis.ID().String()).Msg("stored genesis block")
	return nil
}

// SaveBlockHeader stores the header and indexes it by height.
func (s *ChainStore) SaveBlockHeader(rw storage.ReaderBatchWriter, header *flow.Header) error {
	blockHash := header.ID()
	if err := operation.InsertHeader(rw.Writer(), blockHash, header); err != nil {
		return fmt.Errorf("could not store header %v: %w", blockHash, err)
	}
	hashes, err := s.ReadsFrom(rw.BatchReader()).AllHeaderHashesByHeight(header.Height)
	if err != nil {
		return err
	}
	if !flow.IdentifierList(hashes).Contains(blockHash) {
		hashes = append(hashes, blockHash)
	}
	if err := operation.UpsertHeaderHashesByHeight(rw.Writer(), header.Height, hashes); err != nil {
		return err
	}
	s.headers.InsertOnCommit(rw, blockHash, header)
	return nil
}

// SaveBlock stores the block with its header and indexes it. The block starts
// with no children, and its parent gains one.
func (s *ChainStore) SaveBlock(rw storage.ReaderBatchWriter, block *flow.Block) error {
	header := block.Header
	blockHash := block.ID()
	reads := s.ReadsFrom(rw.BatchReader())
	w := rw.Writer()

	if err := s.SaveBlockHeader(rw, header); err != nil {
		return err
	}
	if err := operation.InsertBlock(w, blockHash, block); err != nil {
		return fmt.Errorf("could not store block %v: %w", blockHash, err)
	}

	index, err := reads.AllBlockHashesByHeight(header.Height)
	if err != nil {
		return err
	}
	index = index.Clone()
	if _, ok := index[header.EpochID]; !ok {
		index[header.EpochID] = make(map[flow.Identifier]struct{})
	}
	index[header.EpochID][blockHash] = struct{}{}
	if err := operation.UpsertBlocksPerHeight(w, header.Height, index); err != nil {
		return err
	}

	if err := operation.UpsertBlockRefcount(w, blockHash, 0); err != nil {
		return err
	}
	if header.IsGenesis() {
		return nil
	}
	parentRefcount, err := reads.BlockRefcount(header.PrevHash)
	if err != nil {
		return storage.RequirePresent(err, "parent %v of block %v has no refcount", header.PrevHash, blockHash)
	}
	return operation.UpsertBlockRefcount(w, header.PrevHash, parentRefcount+1)
}

// UpdateHead makes the block the canonical head: the height index and the
// parent's next-hash pointer are updated, and the header head is raised if it
// is lower.
func (s *ChainStore) UpdateHead(rw storage.ReaderBatchWriter, header *flow.Header) error {
	w := rw.Writer()
	tip := flow.TipFromHeader(header)
	if err := operation.UpsertTip(w, operation.KeyHead, tip); err != nil {
		return err
	}
	if err := operation.IndexCanonicalHeight(w, header.Height, tip.LastBlockHash); err != nil {
		return err
	}
	if !header.IsGenesis() {
		if err := operation.UpsertNextBlockHash(w, header.PrevHash, tip.LastBlockHash); err != nil {
			return err
		}
	}
	headerHead, err := s.ReadsFrom(rw.BatchReader()).HeaderHead()
	if err != nil {
		return err
	}
	if headerHead.Height < header.Height {
		return operation.UpsertTip(w, operation.KeyHeaderHead, tip)
	}
	return nil
}

// UpdateHeaderHead sets the header head, the highest known header.
func (s *ChainStore) UpdateHeaderHead(w storage.Writer, tip *flow.Tip) error {
	return operation.UpsertTip(w, operation.KeyHeaderHead, tip)
}

// UpdateFinalHead sets the last final block.
func (s *ChainStore) UpdateFinalHead(w storage.Writer, tip *flow.Tip) error {
	return operation.UpsertTip(w, operation.KeyFinalHead, tip)
}

// SaveChunk stores the chunk, indexes it at its creation height and takes a
// reference on each of its transactions.
func (s *ChainStore) SaveChunk(rw storage.ReaderBatchWriter, chunk *flow.Chunk) error {
	if err := operation.InsertChunk(rw.Writer(), chunk); err != nil {
		return fmt.Errorf("could not store chunk %v: %w", chunk.ChunkHash, err)
	}
	hashes, err := s.ReadsFrom(rw.BatchReader()).AllChunkHashesByHeight(chunk.HeightCreated)
	if err != nil {
		return err
	}
	if !flow.IdentifierList(hashes).Contains(chunk.ChunkHash) {
		hashes = append(hashes, chunk.ChunkHash)
	}
	if err := operation.UpsertChunkHashesByHeight(rw.Writer(), chunk.HeightCreated, hashes); err != nil {
		return err
	}
	for i := range chunk.Transactions {
		err := operation.IncrementTransaction(rw.BatchReader(), rw.Writer(), &chunk.Transactions[i])
		if err != nil {
			return fmt.Errorf("could not store transaction of chunk %v: %w", chunk.ChunkHash, err)
		}
	}
	return nil
}

// SavePartialChunk stores the partial chunk and takes a reference on each of
// the previous outgoing receipts it carries.
func (s *ChainStore) SavePartialChunk(rw storage.ReaderBatchWriter, partial *flow.PartialChunk) error {
	if err := operation.InsertPartialChunk(rw.Writer(), partial); err != nil {
		return fmt.Errorf("could not store partial chunk %v: %w", partial.ChunkHash, err)
	}
	for _, proof := range partial.PrevOutgoingReceipts {
		for i := range proof.Receipts {
			err := operation.IncrementReceipt(rw.BatchReader(), rw.Writer(), &proof.Receipts[i])
			if err != nil {
				return fmt.Errorf("could not store receipt of partial chunk %v: %w", partial.ChunkHash, err)
			}
		}
	}
	return nil
}

// MarkChunkInvalid records that the chunk failed validation.
func (s *ChainStore) MarkChunkInvalid(w storage.Writer, chunkHash flow.Identifier) error {
	return operation.MarkChunkInvalid(w, chunkHash)
}

func (s *ChainStore) SaveOutgoingReceipts(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, receipts []flow.Receipt) error {
	return operation.InsertOutgoingReceipts(w, blockHash, shardID, receipts)
}

func (s *ChainStore) SaveIncomingReceipts(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, proofs []flow.ReceiptProof) error {
	return operation.InsertIncomingReceipts(w, blockHash, shardID, proofs)
}

// SaveTrieChanges records the trie changes a block applied to a shard. The
// nodes themselves are written by the trie store.
func (s *ChainStore) SaveTrieChanges(w storage.Writer, blockHash flow.Identifier, uid flow.ShardUID, changes *flow.TrieChanges) error {
	return operation.InsertTrieChanges(w, blockHash, uid, changes)
}

func (s *ChainStore) SaveStateHeader(w storage.Writer, header *flow.StateHeader) error {
	return operation.InsertStateHeader(w, header)
}

func (s *ChainStore) SaveStatePart(w storage.Writer, syncHash flow.Identifier, shardID flow.ShardID, partID uint64, part []byte) error {
	return operation.InsertStatePart(w, syncHash, shardID, partID, part)
}

// SaveOutcomes stores the execution outcomes of a shard in a block together
// with their id list.
func (s *ChainStore) SaveOutcomes(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, outcomes []flow.Outcome) error {
	ids := make([]flow.Identifier, 0, len(outcomes))
	for i := range outcomes {
		outcome := outcomes[i]
		outcome.BlockHash = blockHash
		if err := operation.InsertOutcome(w, &outcome); err != nil {
			return fmt.Errorf("could not store outcome %v: %w", outcome.OutcomeID, err)
		}
		ids = append(ids, outcome.OutcomeID)
	}
	return operation.UpsertOutcomeIDs(w, blockHash, shardID, ids)
}

func (s *ChainStore) SaveStateChanges(w storage.Writer, blockHash flow.Identifier, changes []flow.StateChange) error {
	for i := range changes {
		if err := operation.InsertStateChange(w, blockHash, &changes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChainStore) SaveStateTransitionData(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, data *flow.StateTransitionData) error {
	return operation.InsertStateTransitionData(w, blockHash, shardID, data)
}

func (s *ChainStore) SaveChunkExtra(w storage.Writer, blockHash flow.Identifier, uid flow.ShardUID, extra *flow.ChunkExtra) error {
	return operation.InsertChunkExtra(w, blockHash, uid, extra)
}

func (s *ChainStore) SaveChunkApplyStats(w storage.Writer, blockHash flow.Identifier, shardID flow.ShardID, gasUsed uint64) error {
	return operation.InsertChunkApplyStats(w, blockHash, shardID, gasUsed)
}

func (s *ChainStore) MarkHeightProcessed(w storage.Writer, height uint64) error {
	return operation.MarkHeightProcessed(w, height)
}

func (s *ChainStore) SetTail(w storage.Writer, height uint64) error {
	return operation.UpsertHeight(w, operation.KeyTail, height)
}

func (s *ChainStore) SetChunkTail(w storage.Writer, height uint64) error {
	return operation.UpsertHeight(w, operation.KeyChunkTail, height)
}

func (s *ChainStore) SetForkTail(w storage.Writer, height uint64) error {
	return operation.UpsertHeight(w, operation.KeyForkTail, height)
}

func (s *ChainStore) SetGCStopHeight(w storage.Writer, height uint64) error {
	return operation.UpsertHeight(w, operation.KeyGCStopHeight, height)
}
