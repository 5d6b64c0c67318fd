package gc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/operation/dbtest"
	"github.com/shardchain/node/utils/unittest/chainbuilder"
)

func TestResetDataPreStateSync(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 150, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 60)
		head := blocks[49]
		syncBlock := blocks[59]
		require.Equal(t, uint64(200), head.Header.Height)
		require.Equal(t, uint64(210), syncBlock.Header.Height)

		// the node applied blocks up to 200 and downloaded headers past it
		require.NoError(t, db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			return b.Store.UpdateHead(rw, head.Header)
		}))

		_, err := b.Epochs.BlockInfo(blocks[10].ID())
		require.NoError(t, err)

		require.NoError(t, newCollector(b).ResetDataPreStateSync(syncBlock.ID(), b.Epochs, b.Tries))

		_, err = b.Epochs.BlockInfo(blocks[10].ID())
		assert.ErrorIs(t, err, storage.ErrNotFound, "cached block info is evicted")

		requireBlocksGone(t, b, b.Genesis)
		requireBlocksGone(t, b, blocks[:50]...)
		requireBlocksKept(t, b, blocks[50:]...)
		for _, block := range append([]*flow.Block{b.Genesis}, blocks[:50]...) {
			exists, err := operation.KeyExists(db.Reader(), operation.MakePrefix(operation.ColBlockInfo, block.ID()))
			require.NoError(t, err)
			assert.False(t, exists, "block info at height %d", block.Header.Height)
		}
		exists, err := operation.KeyExists(db.Reader(), operation.MakePrefix(operation.ColBlockInfo, syncBlock.Header.PrevHash))
		require.NoError(t, err)
		assert.True(t, exists, "block info of the sync block's parent is kept")

		chunks, err := b.Store.AllChunkHashesByHeight(201)
		require.NoError(t, err)
		assert.Empty(t, chunks)
		chunks, err = b.Store.AllChunkHashesByHeight(202)
		require.NoError(t, err)
		assert.NotEmpty(t, chunks)

		assert.Zero(t, chainbuilder.RowCount(t, db.Reader(), operation.ColState))
		requireHeights(t, b, 150, 150, 202)

		_, err = b.Store.BlockHeader(blocks[10].ID())
		assert.False(t, errors.Is(err, storage.ErrNotFound), "headers are kept")
	})
}

func TestResetDataPreStateSyncAtGenesis(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 150, singleEpoch())
		blocks := b.ExtendN(b.Genesis, 1, chainbuilder.AsFork())

		require.NoError(t, newCollector(b).ResetDataPreStateSync(blocks[0].ID(), b.Epochs, b.Tries))

		requireBlocksKept(t, b, b.Genesis, blocks[0])
		assert.NotZero(t, chainbuilder.RowCount(t, db.Reader(), operation.ColState))
	})
}
