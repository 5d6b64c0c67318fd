package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/cmd/util/cmd"
	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/module/epochs"
	"github.com/shardchain/node/module/metrics"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/operation/pebbleimpl"
	"github.com/shardchain/node/storage/pebble"
	"github.com/shardchain/node/storage/store"
	"github.com/shardchain/node/utils/unittest"
	"github.com/shardchain/node/utils/unittest/chainbuilder"
)

var threeHeightEpochs = epochs.Config{EpochLength: 3, NumEpochsToKeep: 3}

// buildChain stores a genesis block and n blocks on top of it in a pebble
// database at dir, and closes the database.
func buildChain(t *testing.T, dir string, n int) (*flow.Block, []*flow.Block) {
	pdb, err := pebble.OpenDefaultPebbleDB(dir)
	require.NoError(t, err)
	db := pebbleimpl.ToDB(pdb)
	defer func() { require.NoError(t, db.Close()) }()

	b := chainbuilder.New(t, db, 0, threeHeightEpochs)
	return b.Genesis, b.ExtendN(b.Genesis, n)
}

// withChain reopens the database at dir.
func withChain(t *testing.T, dir string, fn func(storage.DB, *store.ChainStore)) {
	pdb, err := pebble.OpenDefaultPebbleDB(dir)
	require.NoError(t, err)
	db := pebbleimpl.ToDB(pdb)
	defer func() { require.NoError(t, db.Close()) }()
	fn(db, store.NewChainStore(unittest.Logger(), metrics.NewNoopCollector(), db))
}

func run(args ...string) error {
	root := cmd.NewRootCmd()
	root.SetArgs(append(args, "--loglevel=error"))
	return root.Execute()
}

func requireExists(t *testing.T, s *store.ChainStore, block *flow.Block, expected bool) {
	exists, err := s.BlockExists(block.ID())
	require.NoError(t, err)
	assert.Equal(t, expected, exists, "block at height %d", block.Header.Height)
}

func TestGCCommand(t *testing.T) {
	dir := t.TempDir()
	genesis, blocks := buildChain(t, dir, 12)
	metricsFile := filepath.Join(t.TempDir(), "gc.prom")

	// head 12 is in the fifth epoch; keeping three epochs stops at height 6
	require.NoError(t, run("gc",
		"--datadir", dir,
		"--epoch-length=3",
		"--gc-num-epochs-to-keep=3",
		"--gc-blocks-limit=100",
		"--tracked-shards=0",
		"--metrics-file", metricsFile,
	))

	withChain(t, dir, func(_ storage.DB, s *store.ChainStore) {
		tail, err := s.Tail()
		require.NoError(t, err)
		assert.Equal(t, uint64(5), tail)

		requireExists(t, s, genesis, false)
		requireExists(t, s, blocks[3], false)
		for _, block := range blocks[4:] {
			requireExists(t, s, block, true)
		}
	})

	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "shardchain_gc_stop_height 6")
}

func TestGCCommandArchive(t *testing.T) {
	dir := t.TempDir()
	genesis, _ := buildChain(t, dir, 12)

	require.NoError(t, run("gc",
		"--datadir", dir,
		"--epoch-length=3",
		"--gc-num-epochs-to-keep=3",
		"--gc-blocks-limit=100",
		"--archive",
	))

	withChain(t, dir, func(_ storage.DB, s *store.ChainStore) {
		tail, err := s.Tail()
		require.NoError(t, err)
		assert.Equal(t, uint64(0), tail)
		requireExists(t, s, genesis, true)

		chunkTail, err := s.ChunkTail()
		require.NoError(t, err)
		assert.Equal(t, uint64(6), chunkTail)
	})
}

func TestUndoBlockCommand(t *testing.T) {
	dir := t.TempDir()
	_, blocks := buildChain(t, dir, 5)

	require.NoError(t, run("undo-block", "--datadir", dir, "--count=2"))

	withChain(t, dir, func(_ storage.DB, s *store.ChainStore) {
		head, err := s.Head()
		require.NoError(t, err)
		assert.Equal(t, uint64(3), head.Height)
		assert.Equal(t, blocks[2].ID(), head.LastBlockHash)

		requireExists(t, s, blocks[2], true)
		requireExists(t, s, blocks[3], false)
		requireExists(t, s, blocks[4], false)
	})
}

func TestUndoBlockCommandRejectsZeroCount(t *testing.T) {
	assert.Error(t, run("undo-block", "--datadir", t.TempDir(), "--count=0"))
}

func TestResetStateSyncCommand(t *testing.T) {
	dir := t.TempDir()
	genesis, blocks := buildChain(t, dir, 10)
	syncBlock := blocks[7]

	require.NoError(t, run("reset-state-sync", "--datadir", dir, "--sync-hash", syncBlock.ID().String()))

	withChain(t, dir, func(db storage.DB, s *store.ChainStore) {
		requireExists(t, s, genesis, false)
		for _, block := range blocks[:6] {
			requireExists(t, s, block, false)
		}
		requireExists(t, s, blocks[6], true)
		assert.Zero(t, chainbuilder.RowCount(t, db.Reader(), operation.ColState))
	})
}

func TestResetStateSyncCommandRejectsInvalidHash(t *testing.T) {
	assert.Error(t, run("reset-state-sync", "--datadir", t.TempDir(), "--sync-hash", "not-a-hash"))
}

func TestRejectsUnknownBackend(t *testing.T) {
	assert.Error(t, run("gc", "--datadir", t.TempDir(), "--backend", "leveldb"))
}

func TestRequiresDataDir(t *testing.T) {
	assert.Error(t, run("gc"))
}

func TestRejectsMismatchedBackend(t *testing.T) {
	dir := t.TempDir()
	buildChain(t, dir, 1)
	assert.Error(t, run("undo-block", "--datadir", dir, "--backend", "badger"))
}
