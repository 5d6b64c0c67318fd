package epochs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation/dbtest"
	"github.com/shardchain/node/utils/unittest"
	"github.com/shardchain/node/utils/unittest/chainbuilder"
)

func testConfig() epochs.Config {
	return epochs.Config{
		EpochLength:     3,
		NumEpochsToKeep: 2,
		Layouts: epochs.LayoutSchedule{
			{FromEpochHeight: 2, Layout: flow.NewMultiShardLayout(1, []flow.AccountID{"m"})},
		},
		Validators: map[flow.AccountID][][]flow.ShardID{
			"alice": {{0}, {1}},
		},
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		_, err := epochs.NewManager(unittest.Logger(), db, epochs.Config{NumEpochsToKeep: 1})
		require.Error(t, err)
		_, err = epochs.NewManager(unittest.Logger(), db, epochs.Config{EpochLength: 1})
		require.Error(t, err)
	})
}

func TestGenesisEpochs(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		genesis := b.Genesis

		info, err := b.Epochs.BlockInfo(genesis.ID())
		require.NoError(t, err)
		assert.Equal(t, genesis.ID(), info.EpochFirstBlock)
		assert.Equal(t, flow.ZeroEpochID, info.EpochID)
		assert.Equal(t, epochs.GenesisNextEpochID(genesis.Header), info.NextEpochID)

		zero, err := b.Epochs.EpochInfo(flow.ZeroEpochID)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), zero.EpochHeight)

		next, err := b.Epochs.EpochInfo(info.NextEpochID)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), next.EpochHeight)
		assert.Equal(t, flow.ZeroEpochID, next.PrevEpochID)
	})
}

func TestEpochTransitions(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		blocks := append([]*flow.Block{b.Genesis}, b.ExtendN(b.Genesis, 7)...)

		// heights 0..2 are the genesis epoch, 3..5 the next one, 6.. the third
		genesisNext := epochs.GenesisNextEpochID(b.Genesis.Header)
		for h := 0; h <= 2; h++ {
			assert.Equal(t, flow.ZeroEpochID, blocks[h].Header.EpochID, "height %d", h)
		}
		for h := 3; h <= 5; h++ {
			assert.Equal(t, genesisNext, blocks[h].Header.EpochID, "height %d", h)
			assert.Equal(t, flow.EpochID(blocks[2].ID()), blocks[h].Header.NextEpochID, "height %d", h)
		}
		assert.Equal(t, flow.EpochID(blocks[2].ID()), blocks[6].Header.EpochID)
		assert.Equal(t, flow.EpochID(blocks[5].ID()), blocks[6].Header.NextEpochID)

		info, err := b.Epochs.BlockInfo(blocks[4].ID())
		require.NoError(t, err)
		assert.Equal(t, blocks[3].ID(), info.EpochFirstBlock)

		third, err := b.Epochs.EpochInfo(flow.EpochID(blocks[2].ID()))
		require.NoError(t, err)
		assert.Equal(t, uint64(2), third.EpochHeight)
		assert.Equal(t, genesisNext, third.PrevEpochID)
		assert.Equal(t, 2, third.ShardLayout.NumShards())

		prev, err := b.Epochs.PrevEpochIDFromPrevBlock(blocks[5].ID())
		require.NoError(t, err)
		assert.Equal(t, genesisNext, prev)

		epochID, err := b.Epochs.EpochIDFromPrevBlock(blocks[5].ID())
		require.NoError(t, err)
		assert.Equal(t, flow.EpochID(blocks[2].ID()), epochID)

		nextEpochID, err := b.Epochs.NextEpochIDFromPrevBlock(blocks[4].ID())
		require.NoError(t, err)
		assert.Equal(t, flow.EpochID(blocks[2].ID()), nextEpochID)

		layout, err := b.Epochs.ShardLayoutFromPrevBlock(blocks[5].ID())
		require.NoError(t, err)
		assert.Equal(t, uint32(1), layout.Version)
	})
}

func TestEpochInfoKnownAtEpochEnd(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		blocks := b.ExtendN(b.Genesis, 5)
		genesisNext := epochs.GenesisNextEpochID(b.Genesis.Header)

		// heights 1 and 4 are not the last of their epochs
		_, err := b.Epochs.EpochInfo(flow.EpochID(blocks[0].ID()))
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = b.Epochs.EpochInfo(flow.EpochID(blocks[3].ID()))
		require.ErrorIs(t, err, storage.ErrNotFound)

		// height 2 ends the genesis epoch before any block of the next one exists
		nextEpochID, err := b.Epochs.NextEpochIDFromPrevBlock(blocks[1].ID())
		require.NoError(t, err)
		require.Equal(t, flow.EpochID(blocks[1].ID()), nextEpochID)
		info, err := b.Epochs.EpochInfo(nextEpochID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), info.EpochHeight)
		assert.Equal(t, genesisNext, info.PrevEpochID)

		// height 5 ends the second epoch and is the head
		nextEpochID, err = b.Epochs.NextEpochIDFromPrevBlock(blocks[4].ID())
		require.NoError(t, err)
		info, err = b.Epochs.EpochInfo(nextEpochID)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), info.EpochHeight)
		assert.Equal(t, flow.EpochID(blocks[1].ID()), info.PrevEpochID)
		assert.Equal(t, 2, info.ShardLayout.NumShards())
	})
}

func TestSingleHeightEpochs(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, epochs.Config{EpochLength: 1, NumEpochsToKeep: 3})
		blocks := b.ExtendN(b.Genesis, 4)

		for i, block := range blocks {
			info, err := b.Epochs.BlockInfo(block.ID())
			require.NoError(t, err)
			assert.Equal(t, block.ID(), info.EpochFirstBlock, "height %d", i+1)
			epoch, err := b.Epochs.EpochInfo(block.Header.EpochID)
			require.NoError(t, err)
			assert.Equal(t, uint64(i+1), epoch.EpochHeight)
		}
		assert.Equal(t, blocks[1].Header.Height, b.Epochs.GCStopHeight(blocks[3].ID()))
	})
}

func TestIsLastBlockInFinishedEpoch(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		blocks := b.ExtendN(b.Genesis, 2)

		last, err := b.Epochs.IsLastBlockInFinishedEpoch(blocks[1].ID())
		require.NoError(t, err)
		assert.False(t, last, "next epoch has not started")

		b.Extend(blocks[1])

		last, err = b.Epochs.IsLastBlockInFinishedEpoch(blocks[1].ID())
		require.NoError(t, err)
		assert.True(t, last)

		last, err = b.Epochs.IsLastBlockInFinishedEpoch(blocks[0].ID())
		require.NoError(t, err)
		assert.False(t, last)
	})
}

func TestGCStopHeight(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 10, testConfig())
		blocks := b.ExtendN(b.Genesis, 7)

		// fewer epochs than kept
		assert.Equal(t, uint64(10), b.Epochs.GCStopHeight(blocks[1].ID()))
		// head in the second epoch keeps the genesis epoch
		assert.Equal(t, uint64(10), b.Epochs.GCStopHeight(blocks[3].ID()))
		// head in the third epoch keeps the second
		assert.Equal(t, uint64(13), b.Epochs.GCStopHeight(blocks[6].ID()))
		// unknown head falls back to genesis
		assert.Equal(t, uint64(10), b.Epochs.GCStopHeight(unittest.IdentifierFixture()))
	})
}

func TestCaresAboutShardInEpoch(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		genesisNext := epochs.GenesisNextEpochID(b.Genesis.Header)

		cares, err := b.Epochs.CaresAboutShardInEpoch(flow.ZeroEpochID, "alice", 0)
		require.NoError(t, err)
		assert.True(t, cares)

		cares, err = b.Epochs.CaresAboutShardInEpoch(genesisNext, "alice", 0)
		require.NoError(t, err)
		assert.False(t, cares)

		cares, err = b.Epochs.CaresAboutShardInEpoch(genesisNext, "alice", 1)
		require.NoError(t, err)
		assert.True(t, cares)

		cares, err = b.Epochs.CaresAboutShardInEpoch(flow.ZeroEpochID, "bob", 0)
		require.NoError(t, err)
		assert.False(t, cares)

		_, err = b.Epochs.CaresAboutShardInEpoch(flow.EpochID(unittest.IdentifierFixture()), "alice", 0)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestAddBlockRejectsWrongEpochs(t *testing.T) {
	dbtest.RunWithPebble(t, func(db storage.DB) {
		b := chainbuilder.New(t, db, 0, testConfig())
		header := &flow.Header{
			Height:      1,
			PrevHash:    b.Genesis.ID(),
			EpochID:     flow.EpochID(unittest.IdentifierFixture()),
			NextEpochID: b.Genesis.Header.NextEpochID,
		}
		err := db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			return b.Epochs.AddBlock(rw, header)
		})
		require.Error(t, err)
	})
}
