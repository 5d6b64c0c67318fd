package dbtest

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation/badgerimpl"
	"github.com/shardchain/node/storage/operation/pebbleimpl"
	"github.com/shardchain/node/utils/unittest"
)

// WithWriter runs fn against a fresh batch and commits it.
type WithWriter func(*testing.T, func(storage.Writer) error)

// RunWithStorages runs fn against a badger and a pebble database.
func RunWithStorages(t *testing.T, fn func(*testing.T, storage.Reader, WithWriter)) {
	RunWithDB(t, func(t *testing.T, db storage.DB) {
		withWriter := func(t *testing.T, writing func(storage.Writer) error) {
			require.NoError(t, db.WithReaderBatchWriter(storage.OnlyWriter(writing)))
		}
		fn(t, db.Reader(), withWriter)
	})
}

// RunWithDB runs fn once per storage backend.
func RunWithDB(t *testing.T, fn func(*testing.T, storage.DB)) {
	t.Run("BadgerStorage", func(t *testing.T) {
		unittest.RunWithBadgerDB(t, func(db *badger.DB) {
			fn(t, badgerimpl.ToDB(db))
		})
	})

	t.Run("PebbleStorage", func(t *testing.T) {
		unittest.RunWithPebbleDB(t, func(db *pebble.DB) {
			fn(t, pebbleimpl.ToDB(db))
		})
	})
}

// RunWithPebble runs fn against a pebble database only. Most chain tests use
// it; backend conformance is covered by RunWithDB.
func RunWithPebble(t *testing.T, fn func(storage.DB)) {
	unittest.RunWithPebbleDB(t, func(db *pebble.DB) {
		fn(pebbleimpl.ToDB(db))
	})
}
