package gc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/config"
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/module/metrics"
	"github.com/shardchain/node/module/tracker"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/gc"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/operation/dbtest"
	"github.com/shardchain/node/storage/trie"
	"github.com/shardchain/node/utils/unittest"
	"github.com/shardchain/node/utils/unittest/chainbuilder"
)

var shard0 = flow.ShardUID{Version: 0, ShardID: 0}

// singleEpoch keeps every test block in the genesis epoch.
func singleEpoch() epochs.Config {
	return epochs.Config{EpochLength: 1000, NumEpochsToKeep: 3}
}

// fixedStopHeight pins the gc stop height, so tests choose what is collectable
// independently of epoch boundaries.
type fixedStopHeight struct {
	*epochs.Manager
	height uint64
}

func (f *fixedStopHeight) GCStopHeight(flow.Identifier) uint64 {
	return f.height
}

func newCollector(b *chainbuilder.Builder) *gc.Collector {
	return gc.NewCollector(unittest.Logger(), b.Store, metrics.NewNoopCollector())
}

func trackAll(t *testing.T, b *chainbuilder.Builder) *tracker.ShardTracker {
	st, err := tracker.NewShardTracker(unittest.Logger(), tracker.AllShards{}, b.Epochs)
	require.NoError(t, err)
	return st
}

func gcConfig(limit uint64) config.GCConfig {
	cfg := config.DefaultGCConfig()
	cfg.GCBlocksLimit = limit
	return cfg
}

func requireBlocksKept(t *testing.T, b *chainbuilder.Builder, blocks ...*flow.Block) {
	for _, block := range blocks {
		exists, err := b.Store.BlockExists(block.ID())
		require.NoError(t, err)
		require.True(t, exists, "block at height %d should be kept", block.Header.Height)
	}
}

func requireBlocksGone(t *testing.T, b *chainbuilder.Builder, blocks ...*flow.Block) {
	for _, block := range blocks {
		exists, err := b.Store.BlockExists(block.ID())
		require.NoError(t, err)
		require.False(t, exists, "block at height %d should be deleted", block.Header.Height)
	}
}

func requireHeights(t *testing.T, b *chainbuilder.Builder, tail, forkTail, chunkTail uint64) {
	actual, err := b.Store.Tail()
	require.NoError(t, err)
	assert.Equal(t, tail, actual, "tail")
	actual, err = b.Store.ForkTail()
	require.NoError(t, err)
	assert.Equal(t, forkTail, actual, "fork tail")
	actual, err = b.Store.ChunkTail()
	require.NoError(t, err)
	assert.Equal(t, chunkTail, actual, "chunk tail")
}

type forkChain struct {
	a, b, c, d *flow.Block
	e, f, g    *flow.Block
}

// buildForkChain stores genesis(100) A(101) B(102) C(103) D(104) with the forks
// B→E at 103 and A→F→G at 102 and 103.
func buildForkChain(b *chainbuilder.Builder) forkChain {
	var chain forkChain
	chain.a = b.Extend(b.Genesis)
	chain.b = b.Extend(chain.a)
	chain.c = b.Extend(chain.b)
	chain.d = b.Extend(chain.c)
	chain.e = b.Extend(chain.b, chainbuilder.AsFork())
	chain.f = b.Extend(chain.a, chainbuilder.AsFork())
	chain.g = b.Extend(chain.f, chainbuilder.AsFork())
	return chain
}

func TestForkPruning(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		chain := buildForkChain(b)
		em := &fixedStopHeight{Manager: b.Epochs, height: 104}
		collector := newCollector(b)
		st := trackAll(t, b)
		eNode, ok := b.Node(chain.e.ID(), shard0)
		require.True(t, ok)

		// the budget is spent on the forks and the canonical pass does not run
		require.NoError(t, collector.ClearOldBlocksData(gcConfig(3), em, st, b.Tries))
		requireBlocksGone(t, b, chain.e, chain.f, chain.g)
		requireBlocksKept(t, b, b.Genesis, chain.a, chain.b, chain.c, chain.d)
		requireHeights(t, b, 100, 104, 100)
		stopHeight, err := b.Store.GCStopHeight()
		require.NoError(t, err)
		assert.Equal(t, uint64(104), stopHeight)

		_, _, err = trie.ReadNode(db.Reader(), shard0, eNode)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "nodes inserted by a fork are released")

		for _, parent := range []*flow.Block{chain.a, chain.b} {
			refcount, err := b.Store.BlockRefcount(parent.ID())
			require.NoError(t, err)
			assert.Equal(t, uint64(1), refcount)
		}

		require.NoError(t, collector.ClearOldBlocksData(gcConfig(100), em, st, b.Tries))
		requireBlocksGone(t, b, b.Genesis, chain.a, chain.b)
		requireBlocksKept(t, b, chain.c, chain.d)
		requireHeights(t, b, 103, 103, 102)

		refcount, err := b.Store.BlockRefcount(chain.c.ID())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), refcount)
		_, err = b.Store.BlockRefcount(chain.b.ID())
		assert.True(t, errors.Is(err, storage.ErrNotFound))

		index, err := b.Store.AllBlockHashesByHeight(103)
		require.NoError(t, err)
		assert.Equal(t, []flow.Identifier{chain.c.ID()}, index.All())
		index, err = b.Store.AllBlockHashesByHeight(102)
		require.NoError(t, err)
		assert.Empty(t, index)

		// headers are kept for header sync
		_, err = b.Store.BlockHeader(chain.e.ID())
		assert.NoError(t, err)
		_, err = b.Store.BlockHeader(b.Genesis.ID())
		assert.NoError(t, err)
	})
}

func TestForkBudgetExhaustion(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		chain := buildForkChain(b)
		em := &fixedStopHeight{Manager: b.Epochs, height: 104}
		collector := newCollector(b)
		st := trackAll(t, b)

		require.NoError(t, collector.ClearOldBlocksData(gcConfig(1), em, st, b.Tries))
		deleted := 0
		for _, block := range []*flow.Block{chain.e, chain.g} {
			exists, err := b.Store.BlockExists(block.ID())
			require.NoError(t, err)
			if !exists {
				deleted++
			}
		}
		assert.Equal(t, 1, deleted)
		requireBlocksKept(t, b, chain.f)
		requireHeights(t, b, 100, 104, 100)

		// the next pass resumes at the same height
		require.NoError(t, collector.ClearOldBlocksData(gcConfig(100), em, st, b.Tries))
		requireBlocksGone(t, b, chain.e, chain.f, chain.g)
		requireBlocksKept(t, b, chain.c, chain.d)
		requireHeights(t, b, 103, 103, 102)
	})
}

func TestCanonicalHaltsAtLiveFork(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		canonical := b.ExtendN(b.Genesis, 4)
		sibling := b.Extend(canonical[0], chainbuilder.AsFork())
		child := b.Extend(sibling, chainbuilder.AsFork())
		em := &fixedStopHeight{Manager: b.Epochs, height: 103}
		collector := newCollector(b)

		require.NoError(t, collector.ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries))

		// 101 has two children, so the tail cannot move past it
		requireBlocksGone(t, b, b.Genesis)
		requireBlocksKept(t, b, canonical[0], canonical[1], sibling, child)
		requireHeights(t, b, 101, 101, 100)

		refcount, err := b.Store.BlockRefcount(canonical[0].ID())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), refcount)
	})
}

func TestCanonicalBlockWithoutChildren(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		b.ExtendN(b.Genesis, 3)
		require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(func(w storage.Writer) error {
			return operation.UpsertBlockRefcount(w, b.Genesis.ID(), 0)
		})))
		em := &fixedStopHeight{Manager: b.Epochs, height: 102}
		cfg := gcConfig(100)
		cfg.GCForkCleanStep = 1

		err := newCollector(b).ClearOldBlocksData(cfg, em, trackAll(t, b), b.Tries)
		require.Error(t, err)
		assert.True(t, gc.IsGCError(err))
		requireBlocksKept(t, b, b.Genesis)
		requireHeights(t, b, 100, 101, 100)
	})
}

func TestStopHeightAboveHead(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		b.ExtendN(b.Genesis, 4)
		em := &fixedStopHeight{Manager: b.Epochs, height: 200}

		err := newCollector(b).ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries)
		require.Error(t, err)
		assert.True(t, gc.IsGCError(err))

		stopHeight, err := b.Store.GCStopHeight()
		require.NoError(t, err)
		assert.Equal(t, uint64(100), stopHeight)
		requireHeights(t, b, 100, 100, 100)
	})
}

func TestHeadAtGenesis(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		// a stop height above the head is never looked at
		em := &fixedStopHeight{Manager: b.Epochs, height: 500}

		require.NoError(t, newCollector(b).ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries))
		requireBlocksKept(t, b, b.Genesis)
		requireHeights(t, b, 100, 100, 100)
	})
}

func TestClearDataIsIdempotent(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		b.ExtendN(b.Genesis, 10, chainbuilder.WithStateTransitions())
		em := &fixedStopHeight{Manager: b.Epochs, height: 6}
		collector := newCollector(b)
		st := trackAll(t, b)

		require.NoError(t, collector.ClearData(gcConfig(100), em, st, b.Tries))
		requireHeights(t, b, 5, 5, 4)

		counts := make(map[operation.Column]int)
		for _, col := range operation.AllColumns() {
			counts[col] = chainbuilder.RowCount(t, db.Reader(), col)
		}

		require.NoError(t, collector.ClearData(gcConfig(100), em, st, b.Tries))
		requireHeights(t, b, 5, 5, 4)
		for _, col := range operation.AllColumns() {
			assert.Equal(t, counts[col], chainbuilder.RowCount(t, db.Reader(), col), "column %v", col)
		}
	})
}

func TestCanonicalClearsChunkData(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 6)
		em := &fixedStopHeight{Manager: b.Epochs, height: 5}

		require.NoError(t, newCollector(b).ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries))
		requireHeights(t, b, 4, 4, 3)
		requireBlocksGone(t, b, b.Genesis, blocks[0], blocks[1], blocks[2])
		requireBlocksKept(t, b, blocks[3], blocks[4], blocks[5])

		for height := uint64(0); height < 3; height++ {
			hashes, err := b.Store.AllChunkHashesByHeight(height)
			require.NoError(t, err)
			assert.Empty(t, hashes, "chunks created at %d", height)
			headers, err := b.Store.AllHeaderHashesByHeight(height)
			require.NoError(t, err)
			assert.Empty(t, headers, "header index at %d", height)
		}
		for _, chunk := range blocks[1].Chunks {
			_, err := b.Store.Chunk(chunk.ChunkHash)
			assert.True(t, errors.Is(err, storage.ErrNotFound))
			_, err = b.Store.PartialChunk(chunk.ChunkHash)
			assert.True(t, errors.Is(err, storage.ErrNotFound))
		}
		for _, chunk := range blocks[2].Chunks {
			_, err := b.Store.Chunk(chunk.ChunkHash)
			assert.NoError(t, err)
		}

		// deletions of the blocks up to the new tail are applied
		node, ok := b.Node(blocks[2].ID(), shard0)
		require.True(t, ok)
		_, _, err := trie.ReadNode(db.Reader(), shard0, node)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		node, ok = b.Node(blocks[3].ID(), shard0)
		require.True(t, ok)
		_, _, err = trie.ReadNode(db.Reader(), shard0, node)
		assert.NoError(t, err)
	})
}

func TestClearStateTransitionData(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		b1 := b.Extend(b.Genesis, chainbuilder.WithStateTransitions())
		b2 := b.Extend(b1, chainbuilder.WithStateTransitions())
		// the final block carries the chunk created at height 2
		b3 := b.Extend(b2, chainbuilder.WithMissingChunks(0), chainbuilder.WithStateTransitions())
		b4 := b.Extend(b3, chainbuilder.WithStateTransitions())
		b5 := b.Extend(b4, chainbuilder.WithStateTransitions())
		require.Equal(t, b3.ID(), b5.Header.LastFinalBlock)

		require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(func(w storage.Writer) error {
			return b.Store.SaveStateTransitionData(w, b4.ID(), 7, unittest.StateTransitionDataFixture())
		})))

		require.NoError(t, newCollector(b).ClearStateTransitionData(b.Epochs))

		expected := map[*flow.Block]bool{b1: false, b2: true, b4: true, b5: true}
		for block, kept := range expected {
			exists, err := operation.StateTransitionDataExists(db.Reader(), block.ID(), 0)
			require.NoError(t, err)
			assert.Equal(t, kept, exists, "block at height %d", block.Header.Height)
		}
		exists, err := operation.StateTransitionDataExists(db.Reader(), b4.ID(), 7)
		require.NoError(t, err)
		assert.False(t, exists, "rows of shards outside the layout are deleted")
	})
}

func TestClearStateTransitionDataRejectsMalformedKeys(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		b.ExtendN(b.Genesis, 3)
		require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(func(w storage.Writer) error {
			return operation.UpsertByKey(w, operation.ColStateTransitionData.Key([]byte{1, 2, 3}), unittest.StateTransitionDataFixture())
		})))

		err := newCollector(b).ClearStateTransitionData(b.Epochs)
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrInconsistentState))
	})
}

func TestClearDataRunsBothCleaners(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		b.ExtendN(b.Genesis, 6)
		require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(func(w storage.Writer) error {
			return operation.UpsertByKey(w, operation.ColStateTransitionData.Key([]byte{1, 2, 3}), unittest.StateTransitionDataFixture())
		})))
		em := &fixedStopHeight{Manager: b.Epochs, height: 4}

		err := newCollector(b).ClearData(gcConfig(100), em, trackAll(t, b), b.Tries)
		require.Error(t, err)
		assert.True(t, errors.Is(err, storage.ErrInconsistentState))
		// old blocks are collected even though the first cleaner failed
		requireBlocksGone(t, b, b.Genesis)
		requireHeights(t, b, 3, 3, 2)
	})
}

func TestClearArchiveData(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 10)
		em := &fixedStopHeight{Manager: b.Epochs, height: 8}
		collector := newCollector(b)

		require.NoError(t, collector.ClearArchiveData(3, em))
		requireHeights(t, b, 0, 0, 3)
		for _, block := range blocks[:2] {
			for _, chunk := range block.Chunks {
				_, err := b.Store.PartialChunk(chunk.ChunkHash)
				assert.True(t, errors.Is(err, storage.ErrNotFound))
				_, err = b.Store.Chunk(chunk.ChunkHash)
				assert.NoError(t, err, "archival nodes keep chunks")
			}
		}
		for _, chunk := range blocks[2].Chunks {
			_, err := b.Store.PartialChunk(chunk.ChunkHash)
			assert.NoError(t, err)
		}

		require.NoError(t, collector.ClearArchiveData(100, em))
		requireHeights(t, b, 0, 0, 8)
		for _, chunk := range blocks[7].Chunks {
			_, err := b.Store.PartialChunk(chunk.ChunkHash)
			assert.NoError(t, err)
		}
		requireBlocksKept(t, b, append(blocks, b.Genesis)...)

		em.height = 20
		assert.True(t, gc.IsGCError(collector.ClearArchiveData(100, em)))
	})
}

func TestUndoHeadBlock(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 5, chainbuilder.WithStateTransitions(), chainbuilder.WithStateParts(2))
		head, parent := blocks[4], blocks[3]

		tip, err := newCollector(b).UndoHeadBlock(b.Epochs)
		require.NoError(t, err)
		assert.Equal(t, parent.ID(), tip.LastBlockHash)

		current, err := b.Store.Head()
		require.NoError(t, err)
		assert.Equal(t, parent.ID(), current.LastBlockHash)
		headerHead, err := b.Store.HeaderHead()
		require.NoError(t, err)
		assert.Equal(t, parent.ID(), headerHead.LastBlockHash)

		requireBlocksGone(t, b, head)
		_, err = b.Store.BlockHeader(head.ID())
		assert.NoError(t, err, "headers are kept")

		refcount, err := b.Store.BlockRefcount(parent.ID())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), refcount)
		_, err = b.Store.NextBlockHash(parent.ID())
		assert.True(t, errors.Is(err, storage.ErrNotFound))

		index, err := b.Store.AllBlockHashesByHeight(5)
		require.NoError(t, err)
		assert.Empty(t, index)
		chunks, err := b.Store.AllChunkHashesByHeight(5)
		require.NoError(t, err)
		assert.Empty(t, chunks)
		headers, err := b.Store.AllHeaderHashesByHeight(5)
		require.NoError(t, err)
		assert.Empty(t, headers)

		exists, err := operation.StateTransitionDataExists(db.Reader(), head.ID(), 0)
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = b.Store.StateHeader(0, head.ID())
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		exists, err = operation.StatePartExists(db.Reader(), head.ID(), 0, 1)
		require.NoError(t, err)
		assert.False(t, exists)

		// the chain grows again from the parent
		next := b.Extend(parent)
		requireBlocksKept(t, b, next)
	})
}

func TestUndoGenesis(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		_, err := newCollector(b).UndoHeadBlock(b.Epochs)
		require.Error(t, err)
		requireBlocksKept(t, b, b.Genesis)
	})
}

func TestClearedBlockInfoIsEvicted(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 6)
		em := &fixedStopHeight{Manager: b.Epochs, height: 5}
		for _, block := range []*flow.Block{blocks[1], blocks[5]} {
			_, err := b.Epochs.BlockInfo(block.ID())
			require.NoError(t, err)
		}

		require.NoError(t, newCollector(b).ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries))
		_, err := b.Epochs.BlockInfo(blocks[1].ID())
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = newCollector(b).UndoHeadBlock(b.Epochs)
		require.NoError(t, err)
		_, err = b.Epochs.BlockInfo(blocks[5].ID())
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = b.Epochs.BlockInfo(blocks[4].ID())
		assert.NoError(t, err)
	})
}

func TestCanonicalRejectsSecondBlockAtHeight(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 100, singleEpoch())
		b.ExtendN(b.Genesis, 4)
		// a fork off genesis that skips 101 and outlives the fork pass
		fork := b.Extend(b.Genesis, chainbuilder.AsFork(), chainbuilder.SkipHeights(1))
		b.Extend(fork, chainbuilder.AsFork(), chainbuilder.SkipHeights(2))
		require.Equal(t, uint64(102), fork.Header.Height)
		// hide the fork from the canonical refcount check
		require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(func(w storage.Writer) error {
			return operation.UpsertBlockRefcount(w, b.Genesis.ID(), 1)
		})))
		em := &fixedStopHeight{Manager: b.Epochs, height: 103}

		err := newCollector(b).ClearOldBlocksData(gcConfig(100), em, trackAll(t, b), b.Tries)
		require.ErrorIs(t, err, storage.ErrInconsistentState)
		tail, err := b.Store.Tail()
		require.NoError(t, err)
		assert.Equal(t, uint64(101), tail)
	})
}
