package badgerimpl

import (
	"errors"
	"io"

	"github.com/dgraph-io/badger/v2"

	"github.com/shardchain/node/module/irrecoverable"
	"github.com/shardchain/node/storage"
)

type dbReader struct {
	db *badger.DB
}

type noopCloser struct{}

var _ io.Closer = (*noopCloser)(nil)

func (noopCloser) Close() error { return nil }

// Get gets the value for the given key. It returns ErrNotFound if the DB
// does not contain the key.
// other errors are exceptions
//
// The returned slice is a copy and remains valid after the closer is closed.
// when err == nil, the caller MUST call closer.Close() or a memory leak will occur.
func (b dbReader) Get(key []byte) ([]byte, io.Closer, error) {
	tx := b.db.NewTransaction(false)
	defer tx.Discard()
	return getFromTxn(tx, key)
}

func getFromTxn(tx *badger.Txn, key []byte) ([]byte, io.Closer, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, storage.ErrNotFound
		}
		return nil, nil, irrecoverable.NewExceptionf("could not load data: %w", err)
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, irrecoverable.NewExceptionf("could not load value: %w", err)
	}

	return value, noopCloser{}, nil
}

// NewIter returns a new Iterator for the given key prefix range [startPrefix, endPrefix], both inclusive.
// Specifically, all keys that meet ANY of the following conditions are included in the iteration:
//   - have a prefix equal to startPrefix OR
//   - have a prefix equal to the endPrefix OR
//   - have a prefix that is lexicographically between startPrefix and endPrefix
//
// No errors expected during normal operations.
func (b dbReader) NewIter(startPrefix, endPrefix []byte, ops storage.IteratorOption) (storage.Iterator, error) {
	tx := b.db.NewTransaction(false)
	return newBadgerIterator(tx, true, startPrefix, endPrefix, ops), nil
}

// ToReader is a helper function to convert a *badger.DB to a Reader
func ToReader(db *badger.DB) storage.Reader {
	return dbReader{db}
}

// txnReader reads through an update transaction, observing its pending writes.
type txnReader struct {
	tx *badger.Txn
}

func (t txnReader) Get(key []byte) ([]byte, io.Closer, error) {
	return getFromTxn(t.tx, key)
}

func (t txnReader) NewIter(startPrefix, endPrefix []byte, ops storage.IteratorOption) (storage.Iterator, error) {
	return newBadgerIterator(t.tx, false, startPrefix, endPrefix, ops), nil
}
