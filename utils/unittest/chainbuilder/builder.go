// Package chainbuilder grows realistic chains for tests: every block carries
// chunks, receipts, outcomes, state changes and trie changes, and is stored
// through the same write path a node uses.
package chainbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/module/metrics"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/store"
	"github.com/shardchain/node/storage/trie"
	"github.com/shardchain/node/utils/unittest"
)

// Builder stores blocks into a database together with the epoch bookkeeping
// and the trie nodes they insert.
type Builder struct {
	t       testing.TB
	DB      storage.DB
	Store   *store.ChainStore
	Epochs  *epochs.Manager
	Tries   *trie.ShardTries
	Genesis *flow.Block

	nonce uint64
	// nodes holds the trie node each block inserted per shard uid.
	nodes map[flow.Identifier]map[flow.ShardUID]flow.TrieRefcountChange
	// tracked limits the shards trie changes are recorded for. Nil means all.
	tracked map[flow.ShardID]struct{}
}

// New stores a genesis block at the given height and returns a builder
// extending it.
func New(t testing.TB, db storage.DB, genesisHeight uint64, config epochs.Config) *Builder {
	log := unittest.Logger()
	em, err := epochs.NewManager(log, db, config)
	require.NoError(t, err)

	b := &Builder{
		t:      t,
		DB:     db,
		Store:  store.NewChainStore(log, metrics.NewNoopCollector(), db),
		Epochs: em,
		Tries:  trie.NewShardTries(log),
		nodes:  make(map[flow.Identifier]map[flow.ShardUID]flow.TrieRefcountChange),
	}

	layout := config.Layouts.LayoutAt(0)
	chunks := make([]*flow.Chunk, 0, layout.NumShards())
	headers := make([]*flow.ChunkHeader, 0, layout.NumShards())
	for _, shardID := range layout.ShardIDs {
		chunk := chunkFixture(shardID, genesisHeight)
		chunks = append(chunks, chunk)
		headers = append(headers, chunkHeader(chunk, genesisHeight))
	}
	header := &flow.Header{Height: genesisHeight, EpochID: flow.ZeroEpochID}
	genesis := flow.NewBlock(header, headers)
	header.NextEpochID = epochs.GenesisNextEpochID(header)

	err = db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		if err := b.Store.SaveGenesis(rw, genesis); err != nil {
			return err
		}
		for _, chunk := range chunks {
			if err := b.Store.SaveChunk(rw, chunk); err != nil {
				return err
			}
		}
		return em.InitGenesis(rw, header)
	})
	require.NoError(t, err)
	b.Genesis = genesis
	return b
}

// TrackShards limits the shards later blocks record trie changes for, as if
// the node only applied chunks of those shards.
func (b *Builder) TrackShards(shardIDs ...flow.ShardID) {
	b.tracked = make(map[flow.ShardID]struct{}, len(shardIDs))
	for _, shardID := range shardIDs {
		b.tracked[shardID] = struct{}{}
	}
}

// TrackAllShards undoes TrackShards.
func (b *Builder) TrackAllShards() {
	b.tracked = nil
}

func (b *Builder) tracks(shardID flow.ShardID) bool {
	if b.tracked == nil {
		return true
	}
	_, ok := b.tracked[shardID]
	return ok
}

type blockOptions struct {
	skip          uint64
	fork          bool
	missingChunks map[flow.ShardID]struct{}
	stateParts    uint64
	transitions   bool
}

// Option customizes one block.
type Option func(*blockOptions)

// AsFork stores the block without making it the head.
func AsFork() Option {
	return func(s *blockOptions) { s.fork = true }
}

// SkipHeights leaves n empty heights between the parent and the block.
func SkipHeights(n uint64) Option {
	return func(s *blockOptions) { s.skip = n }
}

// WithMissingChunks makes the block carry the parent's chunk header for the
// shards, so no new chunk is created for them.
func WithMissingChunks(shardIDs ...flow.ShardID) Option {
	return func(s *blockOptions) {
		for _, shardID := range shardIDs {
			s.missingChunks[shardID] = struct{}{}
		}
	}
}

// WithStateParts stores a state header with n parts for every shard at the block.
func WithStateParts(n uint64) Option {
	return func(s *blockOptions) { s.stateParts = n }
}

// WithStateTransitions stores state transition data for every new chunk.
func WithStateTransitions() Option {
	return func(s *blockOptions) { s.transitions = true }
}

// Extend stores a child of the parent and returns it.
func (b *Builder) Extend(parent *flow.Block, opts ...Option) *flow.Block {
	cfg := blockOptions{missingChunks: make(map[flow.ShardID]struct{})}
	for _, opt := range opts {
		opt(&cfg)
	}

	parentHash := parent.ID()
	epochID, nextEpochID, err := b.Epochs.NextBlockEpochs(parentHash)
	require.NoError(b.t, err)
	layout, err := b.Epochs.ShardLayout(epochID)
	require.NoError(b.t, err)
	nextLayout, err := b.Epochs.ShardLayout(nextEpochID)
	require.NoError(b.t, err)

	height := parent.Header.Height + 1 + cfg.skip
	b.nonce++
	header := &flow.Header{
		Height:         height,
		PrevHash:       parentHash,
		EpochID:        epochID,
		NextEpochID:    nextEpochID,
		LastFinalBlock: lastFinalBlock(parent),
		Nonce:          b.nonce,
	}

	parentChunks := make(map[flow.ShardID]*flow.ChunkHeader, len(parent.Chunks))
	for _, chunk := range parent.Chunks {
		parentChunks[chunk.ShardID] = chunk
	}
	var newChunks []*flow.Chunk
	headers := make([]*flow.ChunkHeader, 0, layout.NumShards())
	for _, shardID := range layout.ShardIDs {
		if _, missing := cfg.missingChunks[shardID]; missing {
			if old, ok := parentChunks[shardID]; ok {
				headers = append(headers, old)
				continue
			}
		}
		chunk := chunkFixture(shardID, height)
		newChunks = append(newChunks, chunk)
		headers = append(headers, chunkHeader(chunk, height))
	}
	block := flow.NewBlock(header, headers)
	blockHash := block.ID()

	uids := layout.ShardUIDs()
	if !layout.Equal(nextLayout) {
		uids = append(uids, nextLayout.ShardUIDs()...)
	}

	err = b.DB.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
		w := rw.Writer()
		if err := b.Store.SaveBlock(rw, block); err != nil {
			return err
		}
		if !cfg.fork {
			if err := b.Store.UpdateHead(rw, header); err != nil {
				return err
			}
		}
		if err := b.Epochs.AddBlock(rw, header); err != nil {
			return err
		}
		for _, chunk := range newChunks {
			if err := b.Store.SaveChunk(rw, chunk); err != nil {
				return err
			}
			if err := b.Store.SavePartialChunk(rw, partialChunk(chunk)); err != nil {
				return err
			}
			outcome := flow.Outcome{OutcomeID: unittest.IdentifierFixture(), GasBurnt: 1}
			if err := b.Store.SaveOutcomes(w, blockHash, chunk.ShardID, []flow.Outcome{outcome}); err != nil {
				return err
			}
			if cfg.transitions {
				if err := b.Store.SaveStateTransitionData(w, blockHash, chunk.ShardID, unittest.StateTransitionDataFixture()); err != nil {
					return err
				}
			}
		}
		for _, shardID := range layout.ShardIDs {
			if err := b.Store.SaveOutgoingReceipts(w, blockHash, shardID, []flow.Receipt{unittest.ReceiptFixture()}); err != nil {
				return err
			}
			proof := flow.ReceiptProof{FromShardID: shardID, ToShardID: shardID, Receipts: []flow.Receipt{unittest.ReceiptFixture()}}
			if err := b.Store.SaveIncomingReceipts(w, blockHash, shardID, []flow.ReceiptProof{proof}); err != nil {
				return err
			}
			if err := b.Store.SaveChunkApplyStats(w, blockHash, shardID, 1); err != nil {
				return err
			}
			if cfg.stateParts > 0 {
				stateHeader := &flow.StateHeader{ShardID: shardID, SyncHash: blockHash, NumStateParts: cfg.stateParts}
				if err := b.Store.SaveStateHeader(w, stateHeader); err != nil {
					return err
				}
				for part := uint64(0); part < cfg.stateParts; part++ {
					if err := b.Store.SaveStatePart(w, blockHash, shardID, part, unittest.RandomBytes(8)); err != nil {
						return err
					}
				}
			}
		}
		for _, uid := range uids {
			if err := b.Store.SaveChunkExtra(w, blockHash, uid, &flow.ChunkExtra{StateRoot: unittest.IdentifierFixture()}); err != nil {
				return err
			}
			if !b.tracks(uid.ShardIDValue()) {
				continue
			}
			if err := b.applyTrieChanges(rw, parentHash, blockHash, uid); err != nil {
				return err
			}
		}
		change := flow.StateChange{Key: unittest.RandomBytes(8), Value: unittest.RandomBytes(8)}
		if err := b.Store.SaveStateChanges(w, blockHash, []flow.StateChange{change}); err != nil {
			return err
		}
		return b.Store.MarkHeightProcessed(w, height)
	})
	require.NoError(b.t, err)
	return block
}

// applyTrieChanges inserts a fresh node for the block and records the parent's
// node of the same shard uid as deleted, as a state transition replacing it.
func (b *Builder) applyTrieChanges(rw storage.ReaderBatchWriter, parentHash, blockHash flow.Identifier, uid flow.ShardUID) error {
	changes := unittest.TrieChangesFixture(1)
	if old, ok := b.nodes[parentHash][uid]; ok {
		changes.Deletions = append(changes.Deletions, old)
	}
	if err := b.Tries.ApplyInsertions(rw, changes, uid); err != nil {
		return err
	}
	if err := b.Store.SaveTrieChanges(rw.Writer(), blockHash, uid, changes); err != nil {
		return err
	}
	storage.OnCommitSucceed(rw, func() {
		if b.nodes[blockHash] == nil {
			b.nodes[blockHash] = make(map[flow.ShardUID]flow.TrieRefcountChange)
		}
		b.nodes[blockHash][uid] = changes.Insertions[0]
	})
	return nil
}

// Node returns the trie node the block inserted for the shard uid.
func (b *Builder) Node(blockHash flow.Identifier, uid flow.ShardUID) (flow.Identifier, bool) {
	node, ok := b.nodes[blockHash][uid]
	return node.Hash, ok
}

// ExtendN stores n canonical blocks on top of the parent and returns them.
func (b *Builder) ExtendN(parent *flow.Block, n int, opts ...Option) []*flow.Block {
	blocks := make([]*flow.Block, 0, n)
	for i := 0; i < n; i++ {
		parent = b.Extend(parent, opts...)
		blocks = append(blocks, parent)
	}
	return blocks
}

// lastFinalBlock treats the grandparent of a block as final.
func lastFinalBlock(parent *flow.Block) flow.Identifier {
	if parent.Header.IsGenesis() {
		return parent.ID()
	}
	return parent.Header.PrevHash
}

func chunkFixture(shardID flow.ShardID, height uint64) *flow.Chunk {
	return &flow.Chunk{
		ChunkHash:     unittest.IdentifierFixture(),
		ShardID:       shardID,
		HeightCreated: height,
		Transactions:  []flow.Transaction{unittest.TransactionFixture()},
	}
}

func chunkHeader(chunk *flow.Chunk, height uint64) *flow.ChunkHeader {
	return &flow.ChunkHeader{
		ChunkHash:      chunk.ChunkHash,
		ShardID:        chunk.ShardID,
		HeightCreated:  chunk.HeightCreated,
		HeightIncluded: height,
	}
}

func partialChunk(chunk *flow.Chunk) *flow.PartialChunk {
	return &flow.PartialChunk{
		ChunkHash:     chunk.ChunkHash,
		ShardID:       chunk.ShardID,
		HeightCreated: chunk.HeightCreated,
		Parts:         [][]byte{unittest.RandomBytes(8)},
		PrevOutgoingReceipts: []flow.ReceiptProof{{
			FromShardID: chunk.ShardID,
			ToShardID:   chunk.ShardID,
			Receipts:    []flow.Receipt{unittest.ReceiptFixture()},
		}},
	}
}

// RowCount returns the number of rows stored in the column.
func RowCount(t testing.TB, r storage.Reader, col operation.Column) int {
	keys, err := operation.CollectKeysByPrefix(r, col.Prefix())
	require.NoError(t, err)
	return len(keys)
}
