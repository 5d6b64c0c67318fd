package operation_test

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/operation/dbtest"
)

type Entity struct {
	ID uint64
}

func (e Entity) Key() []byte {
	byteSlice := make([]byte, 8) // uint64 is 8 bytes
	binary.BigEndian.PutUint64(byteSlice, e.ID)
	return byteSlice
}

func TestReadWrite(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		e := Entity{ID: 1337}

		// Test read nothing should return not found
		var item Entity
		err := operation.RetrieveByKey(r, e.Key(), &item)
		require.True(t, errors.Is(err, storage.ErrNotFound), "expected not found error")

		withWriterTx(t, func(writer storage.Writer) error {
			return operation.UpsertByKey(writer, e.Key(), e)
		})

		var readBack Entity
		require.NoError(t, operation.RetrieveByKey(r, e.Key(), &readBack))
		require.Equal(t, e, readBack, "expected retrieved value to match written value")

		// Test write again should overwrite
		newEntity := Entity{ID: 42}
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.UpsertByKey(writer, e.Key(), newEntity)
		})

		require.NoError(t, operation.RetrieveByKey(r, e.Key(), &readBack))
		require.Equal(t, newEntity, readBack, "expected overwritten value to be retrieved")
	})
}

func TestDelete(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		e := Entity{ID: 1337}

		// Test delete nothing should return OK
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.RemoveByKey(writer, e.Key())
		})

		// Test write, delete, then read should return not found
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.UpsertByKey(writer, e.Key(), e)
		})
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.RemoveByKey(writer, e.Key())
		})

		var item Entity
		err := operation.RetrieveByKey(r, e.Key(), &item)
		require.True(t, errors.Is(err, storage.ErrNotFound), "expected not found error after delete")
	})
}

func TestConcurrentWrite(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		var wg sync.WaitGroup
		numWrites := 10 // number of concurrent writes

		for i := 0; i < numWrites; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				e := Entity{ID: uint64(i)}

				// Simulate a concurrent write to a different key
				withWriterTx(t, func(writer storage.Writer) error {
					return operation.UpsertByKey(writer, e.Key(), e)
				})

				var readBack Entity
				require.NoError(t, operation.RetrieveByKey(r, e.Key(), &readBack))
				require.Equal(t, e, readBack, "expected retrieved value to match written value for key %d", i)
			}(i)
		}

		wg.Wait() // Wait for all goroutines to finish
	})
}

func TestRemoveByKeyPrefix(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		keys := [][]byte{
			{0x10},
			{0x20, 0x00},
			{0x20, 0x01, 0xff},
			{0x21, 0x00},
		}
		withWriterTx(t, func(writer storage.Writer) error {
			for _, key := range keys {
				if err := operation.UpsertByKey(writer, key, true); err != nil {
					return err
				}
			}
			return nil
		})

		withWriterTx(t, func(writer storage.Writer) error {
			return operation.RemoveByKeyPrefix(r, writer, []byte{0x20})
		})

		for i, key := range keys {
			exists, err := operation.KeyExists(r, key)
			require.NoError(t, err)
			require.Equal(t, i == 0 || i == 3, exists, "key %x", key)
		}
	})
}

func TestRemoveByKeyRangeWithoutUpperBound(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		keys := [][]byte{{0xfe, 0x01}, {0xff}, {0xff, 0xff, 0x01}}
		withWriterTx(t, func(writer storage.Writer) error {
			for _, key := range keys {
				if err := operation.UpsertByKey(writer, key, true); err != nil {
					return err
				}
			}
			return nil
		})

		withWriterTx(t, func(writer storage.Writer) error {
			return operation.RemoveByKeyRange(r, writer, []byte{0xff}, []byte{0xff, 0xff})
		})

		exists, err := operation.KeyExists(r, keys[0])
		require.NoError(t, err)
		require.True(t, exists)
		for _, key := range keys[1:] {
			exists, err := operation.KeyExists(r, key)
			require.NoError(t, err)
			require.False(t, exists, "key %x", key)
		}
	})
}

func TestBatchReaderObservesPendingWrites(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		key := []byte{0x33, 0x01}
		err := db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			if err := operation.UpsertByKey(rw.Writer(), key, uint64(7)); err != nil {
				return err
			}

			// pending write is visible through the batch only
			var val uint64
			require.NoError(t, operation.RetrieveByKey(rw.BatchReader(), key, &val))
			require.Equal(t, uint64(7), val)

			err := operation.RetrieveByKey(rw.GlobalReader(), key, &val)
			require.True(t, errors.Is(err, storage.ErrNotFound))
			return nil
		})
		require.NoError(t, err)

		var val uint64
		require.NoError(t, operation.RetrieveByKey(db.Reader(), key, &val))
		require.Equal(t, uint64(7), val)
	})
}

func TestCallbacks(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		called := false
		err := db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			storage.OnCommitSucceed(rw, func() { called = true })
			return operation.UpsertByKey(rw.Writer(), []byte{0x01}, true)
		})
		require.NoError(t, err)
		require.True(t, called)

		called = false
		expected := errors.New("abort")
		err = db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			storage.OnCommitSucceed(rw, func() { called = true })
			return expected
		})
		require.ErrorIs(t, err, expected)
		require.False(t, called)
	})
}

func TestUncompressedValues(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		e := Entity{ID: 42}
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.UpsertByKey(writer, []byte{0x01}, e)
		})

		operation.SetCompression(false)
		defer operation.SetCompression(true)
		withWriterTx(t, func(writer storage.Writer) error {
			return operation.UpsertByKey(writer, []byte{0x02}, e)
		})

		var readBack Entity
		require.NoError(t, operation.RetrieveByKey(r, []byte{0x02}, &readBack))
		require.Equal(t, e, readBack)

		compressed, err := operation.RetrieveRawByKey(r, []byte{0x01})
		require.NoError(t, err)
		raw, err := operation.RetrieveRawByKey(r, []byte{0x02})
		require.NoError(t, err)
		require.NotEqual(t, compressed, raw)
	})
}
