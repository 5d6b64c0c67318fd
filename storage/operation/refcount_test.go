package operation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/shardchain/node/model/flow"
	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
	"github.com/shardchain/node/storage/operation/dbtest"
	"github.com/shardchain/node/utils/unittest"
)

func TestRefcountRemovedAtZero(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		key := []byte{0x52, 0x01}
		value := []byte("payload")

		update := func(delta int64) {
			require.NoError(t, db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
				return operation.UpdateRefcountByKey(rw.BatchReader(), rw.Writer(), key, value, delta)
			}))
		}

		update(2)
		payload, rc, err := operation.RetrieveRefcountedByKey(db.Reader(), key)
		require.NoError(t, err)
		require.Equal(t, value, payload)
		require.Equal(t, int64(2), rc)

		update(-1)
		_, rc, err = operation.RetrieveRefcountedByKey(db.Reader(), key)
		require.NoError(t, err)
		require.Equal(t, int64(1), rc)

		update(-1)
		_, _, err = operation.RetrieveRefcountedByKey(db.Reader(), key)
		require.True(t, errors.Is(err, storage.ErrNotFound))

		// decrementing a row that is gone has no effect
		update(-1)
		_, _, err = operation.RetrieveRefcountedByKey(db.Reader(), key)
		require.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

// Two updates of one key within a batch must both apply.
func TestRefcountWithinOneBatch(t *testing.T) {
	dbtest.RunWithDB(t, func(t *testing.T, db storage.DB) {
		tx := unittest.TransactionFixture()
		require.NoError(t, db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			if err := operation.IncrementTransaction(rw.BatchReader(), rw.Writer(), &tx); err != nil {
				return err
			}
			if err := operation.IncrementTransaction(rw.BatchReader(), rw.Writer(), &tx); err != nil {
				return err
			}
			return operation.IncrementTransaction(rw.BatchReader(), rw.Writer(), &tx)
		}))

		var stored flow.Transaction
		rc, err := operation.RetrieveTransaction(db.Reader(), tx.ID(), &stored)
		require.NoError(t, err)
		require.Equal(t, int64(3), rc)
		require.Equal(t, tx, stored)

		key := operation.MakePrefix(operation.ColTransactions, tx.ID())
		require.NoError(t, db.WithReaderBatchWriter(func(rw storage.ReaderBatchWriter) error {
			if err := operation.DecrementRefcountByKey(rw.BatchReader(), rw.Writer(), key, 1); err != nil {
				return err
			}
			return operation.DecrementRefcountByKey(rw.BatchReader(), rw.Writer(), key, 2)
		}))
		_, err = operation.RetrieveTransaction(db.Reader(), tx.ID(), &stored)
		require.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

// The stored refcount always equals the positive part of the running sum of
// deltas, where the sum restarts from zero whenever the row disappears.
func TestRefcountProperty(t *testing.T) {
	dbtest.RunWithStorages(t, func(t *testing.T, r storage.Reader, withWriterTx dbtest.WithWriter) {
		key := []byte{0x53, 0x00}
		rapid.Check(t, func(rt *rapid.T) {
			withWriterTx(t, func(w storage.Writer) error {
				return operation.RemoveByKey(w, key)
			})

			expected := int64(0)
			deltas := rapid.SliceOfN(rapid.Int64Range(-3, 3), 1, 20).Draw(rt, "deltas")
			for _, delta := range deltas {
				withWriterTx(t, func(w storage.Writer) error {
					return operation.UpdateRefcountByKey(r, w, key, []byte{0x01}, delta)
				})
				if expected > 0 || delta > 0 {
					expected += delta
				}
				if expected < 0 {
					expected = 0
				}

				_, rc, err := operation.RetrieveRefcountedByKey(r, key)
				if expected == 0 {
					if !errors.Is(err, storage.ErrNotFound) {
						rt.Fatalf("expected row to be removed, got rc=%d err=%v", rc, err)
					}
					continue
				}
				if err != nil || rc != expected {
					rt.Fatalf("expected rc=%d, got rc=%d err=%v", expected, rc, err)
				}
			}
		})
	})
}
