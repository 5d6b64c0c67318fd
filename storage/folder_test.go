package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/pebble"
	"github.com/shardchain/node/utils/unittest"
)

func TestDetectBackendEmpty(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		backend, err := storage.DetectBackend(dir)
		require.NoError(t, err)
		require.Equal(t, storage.BackendNone, backend)

		backend, err = storage.DetectBackend(filepath.Join(dir, "missing"))
		require.NoError(t, err)
		require.Equal(t, storage.BackendNone, backend)
	})
}

func TestDetectBackendBadger(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		db := unittest.BadgerDB(t, dir)
		require.NoError(t, db.Close())

		backend, err := storage.DetectBackend(dir)
		require.NoError(t, err)
		require.Equal(t, storage.BackendBadger, backend)
	})
}

func TestDetectBackendPebble(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		db, err := pebble.OpenDefaultPebbleDB(dir)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		backend, err := storage.DetectBackend(dir)
		require.NoError(t, err)
		require.Equal(t, storage.BackendPebble, backend)
	})
}

func TestDetectBackendUnknown(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

		_, err := storage.DetectBackend(dir)
		require.Error(t, err)
	})
}

func TestParseBackend(t *testing.T) {
	backend, err := storage.ParseBackend("Pebble")
	require.NoError(t, err)
	require.Equal(t, storage.BackendPebble, backend)

	backend, err = storage.ParseBackend("badger")
	require.NoError(t, err)
	require.Equal(t, storage.BackendBadger, backend)

	_, err = storage.ParseBackend("rocksdb")
	require.Error(t, err)
}
