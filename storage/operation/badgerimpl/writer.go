package badgerimpl

import (
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v2"

	"github.com/shardchain/node/storage"
	"github.com/shardchain/node/storage/operation"
)

// ReaderBatchWriter wraps a badger read-write transaction. Reads through
// BatchReader observe the transaction's pending writes.
type ReaderBatchWriter struct {
	globalReader dbReader
	tx           *badger.Txn

	callbacks operation.CommitCallbacks
}

var _ storage.ReaderBatchWriter = (*ReaderBatchWriter)(nil)
var _ storage.Batch = (*ReaderBatchWriter)(nil)

// GlobalReader returns a database-backed reader which reads the latest committed global database state ("read-committed isolation").
// This reader will not read writes written to ReaderBatchWriter.Writer until the write batch is committed.
func (b *ReaderBatchWriter) GlobalReader() storage.Reader {
	return b.globalReader
}

// BatchReader reads through the pending transaction.
func (b *ReaderBatchWriter) BatchReader() storage.Reader {
	return txnReader{tx: b.tx}
}

// Writer returns a writer associated with a batch of writes. The batch is pending until it is committed.
func (b *ReaderBatchWriter) Writer() storage.Writer {
	return b
}

func (b *ReaderBatchWriter) BadgerTxn() *badger.Txn {
	return b.tx
}

// AddCallback adds a callback to execute after the batch has been flush
// regardless the batch update is succeeded or failed.
// The error parameter is the error returned by the batch update.
func (b *ReaderBatchWriter) AddCallback(callback func(error)) {
	b.callbacks.Add(callback)
}

// Commit flushes the batch to the database.
// No errors expected during normal operation
func (b *ReaderBatchWriter) Commit() error {
	err := b.tx.Commit()

	b.callbacks.Notify(err)

	return err
}

// Close discards the transaction. It is a no-op after Commit.
func (b *ReaderBatchWriter) Close() error {
	b.tx.Discard()
	return nil
}

func WithReaderBatchWriter(db *badger.DB, fn func(storage.ReaderBatchWriter) error) error {
	batch := NewReaderBatchWriter(db)
	defer batch.tx.Discard()

	err := fn(batch)
	if err != nil {
		// fn might use lock to ensure concurrent safety while reading and writing data
		// and the lock is usually released by a callback.
		// in other words, fn might hold a lock to be released by a callback,
		// we need to notify the callback for the locks to be released before
		// returning the error.
		batch.callbacks.Notify(err)
		return err
	}

	return batch.Commit()
}

func NewReaderBatchWriter(db *badger.DB) *ReaderBatchWriter {
	return &ReaderBatchWriter{
		globalReader: dbReader{db: db},
		tx:           db.NewTransaction(true),
	}
}

var _ storage.Writer = (*ReaderBatchWriter)(nil)

// Set sets the value for the given key. It overwrites any previous value
// for that key; a DB is not a multi-map.
//
// It is safe to modify the contents of the arguments after Set returns.
// No errors expected during normal operation
func (b *ReaderBatchWriter) Set(key, value []byte) error {
	// badger keeps the slices until the transaction commits
	return b.tx.Set(slices.Clone(key), slices.Clone(value))
}

// Delete deletes the value for the given key. Deletes are blind all will
// succeed even if the given key does not exist.
//
// It is safe to modify the contents of the arguments after Delete returns.
// No errors expected during normal operation
func (b *ReaderBatchWriter) Delete(key []byte) error {
	return b.tx.Delete(slices.Clone(key))
}

// DeleteByRange removes all keys with a prefix that falls within the
// range [start, end], both inclusive.
// Keys are collected before deleting, since badger does not allow writing
// while an iterator of the same transaction is open.
// No errors expected during normal operation
func (b *ReaderBatchWriter) DeleteByRange(reader storage.Reader, startPrefix, endPrefix []byte) error {
	var keys [][]byte
	err := operation.IterateKeysByPrefixRange(reader, startPrefix, endPrefix, func(key []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not find keys by range to be deleted: %w", err)
	}

	for _, key := range keys {
		err := b.tx.Delete(key)
		if err != nil {
			return fmt.Errorf("could not add key to delete batch (%v): %w", key, err)
		}
	}
	return nil
}
